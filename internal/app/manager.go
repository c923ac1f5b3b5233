package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/diffutil"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
	"github.com/TanaroSch/hotkeyd/internal/ui"
)

// ActionRunner executes a configured action.
type ActionRunner interface {
	Run(name string, a config.Action) error
}

// binding pairs a config entry with its hotkey. cfg is read from hotkey
// callbacks on the loop, which must never wait for Manager.mu.
type binding struct {
	cfg atomic.Pointer[config.HotkeyConfig]
	hk  *hotkey.Hotkey
}

func newBinding(h config.HotkeyConfig) *binding {
	b := &binding{}
	b.cfg.Store(&h)
	return b
}

func (b *binding) config() config.HotkeyConfig { return *b.cfg.Load() }

// Manager keeps one registered Hotkey per enabled config entry.
type Manager struct {
	svc     *hotkey.Service
	runner  ActionRunner
	onError func(name string, err error)
	log     zerolog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
}

func NewManager(svc *hotkey.Service, runner ActionRunner, onError func(string, error), log zerolog.Logger) *Manager {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Manager{
		svc:      svc,
		runner:   runner,
		onError:  onError,
		log:      log.With().Str("component", "manager").Logger(),
		bindings: make(map[string]*binding),
	}
}

// Apply brings the registrations in line with hotkeys. Entries whose keys and
// description did not change keep their registration; a key change moves the
// registration with SetSpec. Registration failures are returned joined, the
// remaining hotkeys are still applied.
func (m *Manager) Apply(hotkeys []config.HotkeyConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]config.HotkeyConfig)
	for _, h := range hotkeys {
		if h.Enabled {
			want[h.Name] = h
		}
	}

	var errs []error
	for name, b := range m.bindings {
		if _, ok := want[name]; ok {
			continue
		}
		if err := b.hk.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(m.bindings, name)
		m.log.Info().Str("hotkey", name).Msg("hotkey removed")
	}

	for _, name := range sortedKeys(want) {
		h := want[name]
		spec, err := hotkey.ParseKeySpec(h.Keys)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		b, ok := m.bindings[name]
		switch {
		case !ok:
			b = newBinding(h)
			b.hk = m.newHotkey(b, spec, h.Label())
			m.bindings[name] = b
			if err := b.hk.Register(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		case b.config().Label() != h.Label():
			// the broker shows the label, so it needs a fresh registration
			if err := b.hk.Unregister(); err != nil {
				m.log.Warn().Err(err).Str("hotkey", name).Msg("unregister before relabel failed")
			}
			b = newBinding(h)
			b.hk = m.newHotkey(b, spec, h.Label())
			m.bindings[name] = b
			if err := b.hk.Register(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		default:
			b.cfg.Store(&h)
			var err error
			if b.hk.Spec() != spec {
				err = b.hk.SetSpec(spec)
			}
			if err == nil && !b.hk.IsRegistered() {
				err = b.hk.Register()
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) newHotkey(b *binding, spec hotkey.KeySpec, label string) *hotkey.Hotkey {
	hk := m.svc.NewHotkey(spec, hotkey.WithDescription(label))
	// callbacks run on the hotkey loop; actions may block, so leave it
	hk.OnActivated(func(hotkey.Event) {
		cfg := b.config()
		go m.run(cfg.Name, cfg.Action)
	})
	hk.OnReleased(func(hotkey.Event) {
		if cfg := b.config(); cfg.ReleaseAction != nil {
			go m.run(cfg.Name, *cfg.ReleaseAction)
		}
	})
	return hk
}

func (m *Manager) run(name string, a config.Action) {
	if err := m.runner.Run(name, a); err != nil {
		m.onError(name, err)
	}
}

// Statuses lists the managed hotkeys sorted by name.
func (m *Manager) Statuses() []ui.HotkeyStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ui.HotkeyStatus, 0, len(m.bindings))
	for _, name := range sortedKeys(m.bindings) {
		out = append(out, statusOf(name, m.bindings[name].hk))
	}
	return out
}

// Status returns the status of one hotkey.
func (m *Manager) Status(name string) (ui.HotkeyStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[name]
	if !ok {
		return ui.HotkeyStatus{}, false
	}
	return statusOf(name, b.hk), true
}

// UnregisterAll releases every registration and forgets the bindings.
func (m *Manager) UnregisterAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for name, b := range m.bindings {
		if err := b.hk.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(m.bindings, name)
	}
	return errors.Join(errs...)
}

func statusOf(name string, hk *hotkey.Hotkey) ui.HotkeyStatus {
	return ui.HotkeyStatus{
		Name:      name,
		Keys:      hk.Spec().String(),
		State:     hk.State().String(),
		LastError: hk.LastError(),
	}
}

// Bindings renders the enabled entries of hotkeys for change summaries.
func Bindings(hotkeys []config.HotkeyConfig) []diffutil.Binding {
	var out []diffutil.Binding
	for _, h := range hotkeys {
		if !h.Enabled {
			continue
		}
		keys := h.Keys
		if spec, err := hotkey.ParseKeySpec(h.Keys); err == nil {
			keys = spec.String()
		}
		details := keys + " " + describeAction(h.Action)
		if h.ReleaseAction != nil {
			details += ", release " + describeAction(*h.ReleaseAction)
		}
		out = append(out, diffutil.Binding{Name: h.Name, Details: details})
	}
	return out
}

func describeAction(a config.Action) string {
	switch a.Type {
	case config.ActionCommand:
		return "command " + strings.TrimSpace(a.Command+" "+strings.Join(a.Args, " "))
	case config.ActionClipboard:
		if a.Secret != "" {
			return "clipboard secret " + a.Secret
		}
		return "clipboard"
	default:
		return a.Type
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
