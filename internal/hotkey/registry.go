package hotkey

import (
	"fmt"

	"github.com/rs/zerolog"
)

type entry struct {
	owner   *Hotkey
	pressed bool
}

// registry maps native shortcuts to the Hotkey that owns them and keeps the
// per-shortcut press state used for edge triggering. Loop-owned.
type registry struct {
	backend Backend
	entries map[NativeShortcut]*entry
	log     zerolog.Logger
}

func newRegistry(log zerolog.Logger) *registry {
	return &registry{
		entries: make(map[NativeShortcut]*entry),
		log:     log,
	}
}

func (r *registry) register(owner *Hotkey, ns NativeShortcut, shortcut, label string) error {
	if e, ok := r.entries[ns]; ok {
		if e.owner == owner {
			return nil
		}
		return newError(AlreadyInUse, "register", shortcut,
			fmt.Sprintf("The shortcut %s is already in use by another hotkey of this application.", shortcut), nil)
	}
	if err := r.backend.Register(ns, label); err != nil {
		return err
	}
	r.entries[ns] = &entry{owner: owner}
	r.log.Debug().Str("shortcut", shortcut).Stringer("native", ns).Msg("registered")
	return nil
}

// unregister drops the entry before asking the backend, so a backend failure
// never leaves a stale owner behind.
func (r *registry) unregister(owner *Hotkey, ns NativeShortcut) error {
	e, ok := r.entries[ns]
	if !ok || e.owner != owner {
		return nil
	}
	delete(r.entries, ns)
	r.log.Debug().Stringer("native", ns).Msg("unregistered")
	return r.backend.Unregister(ns)
}

func (r *registry) has(ns NativeShortcut) bool {
	_, ok := r.entries[ns]
	return ok
}

func (r *registry) len() int {
	return len(r.entries)
}

func (r *registry) owners() []*Hotkey {
	out := make([]*Hotkey, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.owner)
	}
	return out
}

// Activate implements Sink.
func (r *registry) Activate(ns NativeShortcut, timestamp uint64) {
	e, ok := r.entries[ns]
	if !ok || e.pressed {
		return
	}
	e.pressed = true
	e.owner.fire(Event{Spec: e.owner.Spec(), Timestamp: timestamp})
}

// Release implements Sink.
func (r *registry) Release(ns NativeShortcut, timestamp uint64) {
	e, ok := r.entries[ns]
	if !ok || !e.pressed {
		return
	}
	e.pressed = false
	e.owner.fire(Event{Spec: e.owner.Spec(), Timestamp: timestamp, Released: true})
}

// Removed implements Sink.
func (r *registry) Removed(ns NativeShortcut) {
	e, ok := r.entries[ns]
	if !ok {
		return
	}
	delete(r.entries, ns)
	r.log.Info().Stringer("native", ns).Msg("shortcut removed by the platform")
	e.owner.removed()
}
