package hotkey

import (
	"sync"
)

// State is the registration state of a Hotkey.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateError
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateError:
		return "error"
	default:
		return "unregistered"
	}
}

// Event is delivered on activation and release.
type Event struct {
	Spec      KeySpec
	Timestamp uint64
	Released  bool
}

// Option configures a Hotkey at construction.
type Option func(*Hotkey)

// WithDescription sets the human-readable text shown by shortcut brokers.
func WithDescription(desc string) Option {
	return func(h *Hotkey) { h.description = desc }
}

// WithAutoRegister registers the hotkey right after construction. The outcome
// is available from State and LastError.
func WithAutoRegister() Option {
	return func(h *Hotkey) { h.autoRegister = true }
}

// Hotkey is one application-level global shortcut. Its methods are safe for
// concurrent use; the registration work itself runs on the service loop.
type Hotkey struct {
	svc          *Service
	description  string
	autoRegister bool

	// loop-owned
	native      NativeShortcut
	nativeSpec  KeySpec
	registered  bool
	onActivated []func(Event)
	onReleased  []func(Event)

	mu      sync.Mutex
	spec    KeySpec
	state   State
	lastErr string

	activated chan Event
	released  chan Event
}

// Spec returns the abstract key spec.
func (h *Hotkey) Spec() KeySpec {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spec
}

// Description returns the broker display text, which may be empty.
func (h *Hotkey) Description() string {
	return h.description
}

// State returns the current registration state.
func (h *Hotkey) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsRegistered reports whether the hotkey is currently live.
func (h *Hotkey) IsRegistered() bool {
	return h.State() == StateRegistered
}

// LastError returns the most recent backend failure, or "" after a success.
func (h *Hotkey) LastError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Native returns the native shortcut while registered.
func (h *Hotkey) Native() (NativeShortcut, bool) {
	var (
		ns NativeShortcut
		ok bool
	)
	_ = h.svc.loop.Call(func() {
		ns, ok = h.native, h.registered
	})
	return ns, ok
}

// Activated returns a channel receiving activation events. Events are dropped
// when the buffer is full.
func (h *Hotkey) Activated() <-chan Event { return h.activated }

// Released returns a channel receiving release events. Events are dropped when
// the buffer is full.
func (h *Hotkey) Released() <-chan Event { return h.released }

// OnActivated adds a callback run on the service loop for every activation.
// Callbacks must not block. They must not call any Hotkey or Service method
// either, since those wait on the loop the callback is running on; start a
// goroutine for such work instead.
func (h *Hotkey) OnActivated(fn func(Event)) {
	_ = h.svc.loop.Call(func() { h.onActivated = append(h.onActivated, fn) })
}

// OnReleased adds a callback run on the service loop for every release. The
// same restrictions as OnActivated apply.
func (h *Hotkey) OnReleased(fn func(Event)) {
	_ = h.svc.loop.Call(func() { h.onReleased = append(h.onReleased, fn) })
}

// Register makes the hotkey live. Registering again with an unchanged spec is
// a no-op.
func (h *Hotkey) Register() error {
	var err error
	if cerr := h.svc.loop.Call(func() { err = h.register() }); cerr != nil {
		return cerr
	}
	return err
}

// Unregister releases the hotkey. It is not an error to unregister a hotkey
// that is not registered.
func (h *Hotkey) Unregister() error {
	var err error
	if cerr := h.svc.loop.Call(func() { err = h.unregister() }); cerr != nil {
		return cerr
	}
	return err
}

// SetSpec changes the key spec. A registered hotkey is re-registered under
// the new spec.
func (h *Hotkey) SetSpec(spec KeySpec) error {
	var err error
	cerr := h.svc.loop.Call(func() {
		h.mu.Lock()
		h.spec = spec
		h.mu.Unlock()
		if h.registered {
			err = h.register()
		}
	})
	if cerr != nil {
		return cerr
	}
	return err
}

func (h *Hotkey) register() error {
	spec := h.Spec()
	if h.registered {
		if h.nativeSpec == spec {
			return nil
		}
		if err := h.unregister(); err != nil {
			return err
		}
	}

	ns, err := h.svc.translate(spec)
	if err != nil {
		h.failed(err)
		return err
	}
	if err := h.svc.reg.register(h, ns, spec.String(), h.description); err != nil {
		h.failed(err)
		return err
	}
	h.native, h.nativeSpec, h.registered = ns, spec, true
	h.setState(StateRegistered, "")
	return nil
}

func (h *Hotkey) unregister() error {
	if !h.registered {
		return nil
	}
	err := h.svc.reg.unregister(h, h.native)
	h.native, h.nativeSpec, h.registered = NativeShortcut{}, KeySpec{}, false
	if err != nil {
		h.setState(StateUnregistered, err.Error())
		return err
	}
	h.setState(StateUnregistered, "")
	return nil
}

// failed records a registration failure. A broker that cannot be reached
// leaves the hotkey unregistered rather than in the error state, so a later
// retry starts clean.
func (h *Hotkey) failed(err error) {
	state := StateError
	if KindOf(err) == BrokerUnavailable {
		state = StateUnregistered
	}
	h.setState(state, err.Error())
	h.svc.log.Warn().Err(err).Str("shortcut", h.Spec().String()).Msg("hotkey registration failed")
}

// removed is called when the platform dropped the registration on its own.
func (h *Hotkey) removed() {
	h.native, h.nativeSpec, h.registered = NativeShortcut{}, KeySpec{}, false
	h.setState(StateUnregistered, "")
}

func (h *Hotkey) setState(s State, lastErr string) {
	h.mu.Lock()
	h.state = s
	h.lastErr = lastErr
	h.mu.Unlock()
}

func (h *Hotkey) fire(ev Event) {
	ch, fns := h.activated, h.onActivated
	if ev.Released {
		ch, fns = h.released, h.onReleased
	}
	for _, fn := range fns {
		fn(ev)
	}
	select {
	case ch <- ev:
	default:
	}
}
