//go:build windows || darwin

package hotkey

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

// NativeBackend registers shortcuts through golang.design/x/hotkey on
// Windows and macOS.
type NativeBackend struct {
	loop *Loop
	sink Sink
	log  zerolog.Logger
	keys map[NativeShortcut]*nativeKey
}

type nativeKey struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
}

// NewNativeBackend satisfies BackendFactory.
func NewNativeBackend(loop *Loop, sink Sink, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	return &NativeBackend{
		loop: loop,
		sink: sink,
		log:  opts.Logger.With().Str("component", "native").Logger(),
		keys: make(map[NativeShortcut]*nativeKey),
	}, nil
}

func (b *NativeBackend) Name() string { return "Native (golang.design/x/hotkey)" }

func (b *NativeBackend) NativeKeycode(k Key) (uint32, error) {
	key, ok := nativeKeys[k]
	if !ok {
		return 0, newError(InvalidSpec, "translate", k.String(), fmt.Sprintf("key %s is not supported on this platform", k), nil)
	}
	return uint32(key), nil
}

func (b *NativeBackend) NativeModifiers(m Modifiers) (uint32, error) {
	var mask uint32
	for _, mm := range modifierOrder {
		if m&mm.abstract != 0 {
			mask |= uint32(mm.native)
		}
	}
	return mask, nil
}

func (b *NativeBackend) Register(ns NativeShortcut, _ string) error {
	if _, ok := b.keys[ns]; ok {
		return nil
	}
	var mods []hotkey.Modifier
	for _, mm := range modifierOrder {
		if ns.Modifier&uint32(mm.native) != 0 {
			mods = append(mods, mm.native)
		}
	}
	hk := hotkey.New(mods, hotkey.Key(ns.Key))
	if err := hk.Register(); err != nil {
		return newError(GrabFailed, "register", ns.String(), err.Error(), err)
	}
	nk := &nativeKey{hk: hk, stop: make(chan struct{})}
	b.keys[ns] = nk
	go b.relay(ns, nk)
	return nil
}

// relay forwards the library's channels onto the loop until stopped.
func (b *NativeBackend) relay(ns NativeShortcut, nk *nativeKey) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Stringer("native", ns).Msg("recovered in hotkey relay")
		}
	}()
	for {
		select {
		case <-nk.stop:
			return
		case <-nk.hk.Keydown():
			ts := uint64(time.Now().UnixMilli())
			b.loop.Post(func() { b.sink.Activate(ns, ts) })
		case <-nk.hk.Keyup():
			ts := uint64(time.Now().UnixMilli())
			b.loop.Post(func() { b.sink.Release(ns, ts) })
		}
	}
}

func (b *NativeBackend) Unregister(ns NativeShortcut) error {
	nk, ok := b.keys[ns]
	if !ok {
		return nil
	}
	delete(b.keys, ns)
	close(nk.stop)
	if err := nk.hk.Unregister(); err != nil {
		return newError(GrabFailed, "unregister", ns.String(), err.Error(), err)
	}
	return nil
}

func (b *NativeBackend) Close() error {
	for ns := range b.keys {
		if err := b.Unregister(ns); err != nil {
			b.log.Warn().Err(err).Stringer("native", ns).Msg("unregister on close failed")
		}
	}
	return nil
}
