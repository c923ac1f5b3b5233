package hotkey

import (
	"sync"
)

// FakeBackend is an in-memory Backend for tests. Native codes equal the
// abstract ones.
type FakeBackend struct {
	mu         sync.Mutex
	loop       *Loop
	sink       Sink
	registered map[NativeShortcut]string
	failures   map[NativeShortcut]error
	registers  int
	unregs     int
	closed     bool
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		registered: make(map[NativeShortcut]string),
		failures:   make(map[NativeShortcut]error),
	}
}

// Factory returns a BackendFactory that hands out f.
func (f *FakeBackend) Factory() BackendFactory {
	return func(loop *Loop, sink Sink, _ Options) (Backend, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loop, f.sink = loop, sink
		return f, nil
	}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) NativeKeycode(k Key) (uint32, error) { return uint32(k), nil }

func (f *FakeBackend) NativeModifiers(m Modifiers) (uint32, error) { return uint32(m & modAll), nil }

func (f *FakeBackend) Register(ns NativeShortcut, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	if err := f.failures[ns]; err != nil {
		return err
	}
	f.registered[ns] = label
	return nil
}

func (f *FakeBackend) Unregister(ns NativeShortcut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregs++
	delete(f.registered, ns)
	return nil
}

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Fail makes every following Register of spec return err.
func (f *FakeBackend) Fail(spec KeySpec, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fakeNative(spec)] = err
}

// Calls returns how often Register and Unregister were called.
func (f *FakeBackend) Calls() (registers, unregisters int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers, f.unregs
}

// IsRegistered reports whether spec is currently held by the fake.
func (f *FakeBackend) IsRegistered(spec KeySpec) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.registered[fakeNative(spec)]
	return ok
}

// Closed reports whether Close was called.
func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SimPress delivers an activation for spec and waits until it was handled.
func (f *FakeBackend) SimPress(spec KeySpec, ts uint64) {
	f.deliver(func(s Sink) { s.Activate(fakeNative(spec), ts) })
}

// SimRelease delivers a release for spec and waits until it was handled.
func (f *FakeBackend) SimRelease(spec KeySpec, ts uint64) {
	f.deliver(func(s Sink) { s.Release(fakeNative(spec), ts) })
}

// SimRemove reports spec as dropped by the platform.
func (f *FakeBackend) SimRemove(spec KeySpec) {
	ns := fakeNative(spec)
	f.mu.Lock()
	delete(f.registered, ns)
	f.mu.Unlock()
	f.deliver(func(s Sink) { s.Removed(ns) })
}

func (f *FakeBackend) deliver(fn func(Sink)) {
	f.mu.Lock()
	loop, sink := f.loop, f.sink
	f.mu.Unlock()
	_ = loop.Call(func() { fn(sink) })
}

func fakeNative(spec KeySpec) NativeShortcut {
	return NativeShortcut{Key: uint32(spec.Key), Modifier: uint32(spec.Mods & modAll)}
}
