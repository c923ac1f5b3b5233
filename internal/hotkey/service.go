package hotkey

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Service owns the event loop, the active backend and the registry. Create
// one per process.
type Service struct {
	loop    *Loop
	backend Backend
	reg     *registry
	log     zerolog.Logger
	opts    Options

	closeOnce sync.Once
	closeErr  error
}

// NewService detects the display server, selects a backend and starts the
// loop. PlatformUnsupported is returned when no backend fits.
func NewService(opts Options) (*Service, error) {
	opts = opts.withDefaults()
	factory, err := SelectBackend(opts)
	if err != nil {
		return nil, err
	}
	return NewServiceWith(opts, factory)
}

// NewServiceWith builds a service around the given backend factory.
func NewServiceWith(opts Options, factory BackendFactory) (*Service, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With().Str("component", "hotkey").Logger()

	s := &Service{
		loop: NewLoop(),
		reg:  newRegistry(log),
		log:  log,
		opts: opts,
	}
	var berr error
	if err := s.loop.Call(func() {
		s.backend, berr = factory(s.loop, s.reg, opts)
	}); err != nil {
		return nil, err
	}
	if berr != nil {
		s.loop.Close()
		return nil, berr
	}
	s.reg.backend = s.backend
	log.Info().Str("backend", s.backend.Name()).Msg("hotkey service started")
	return s, nil
}

// NewHotkey creates a hotkey for spec. It is not registered unless
// WithAutoRegister is given.
func (s *Service) NewHotkey(spec KeySpec, opts ...Option) *Hotkey {
	h := &Hotkey{
		svc:       s,
		spec:      spec,
		activated: make(chan Event, 8),
		released:  make(chan Event, 8),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.autoRegister {
		_ = h.Register()
	}
	return h
}

// BackendName returns the name of the active backend.
func (s *Service) BackendName() string {
	return s.backend.Name()
}

// Loop returns the service loop. Work posted to it is serialized with all
// hotkey callbacks.
func (s *Service) Loop() *Loop {
	return s.loop
}

// Registered returns the number of live registrations.
func (s *Service) Registered() int {
	var n int
	_ = s.loop.Call(func() { n = s.reg.len() })
	return n
}

// BrokerActions lists the actions the shortcut broker knows for this
// application. It fails when the active backend is not broker based.
func (s *Service) BrokerActions() ([]BrokerAction, error) {
	b, ok := s.backend.(*KGlobalAccelBackend)
	if !ok {
		return nil, newError(PlatformUnsupported, "actions", "", fmt.Sprintf("backend %s has no shortcut broker", s.backend.Name()), nil)
	}
	var actions []BrokerAction
	if err := s.loop.Call(func() { actions = b.Actions() }); err != nil {
		return nil, err
	}
	return actions, nil
}

// Close unregisters every hotkey, tears down the backend and stops the loop.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		err := s.loop.Call(func() {
			for _, h := range s.reg.owners() {
				if err := h.unregister(); err != nil {
					errs = append(errs, err)
				}
			}
			if err := s.backend.Close(); err != nil {
				errs = append(errs, err)
			}
		})
		if err != nil {
			errs = append(errs, err)
		}
		s.loop.Close()
		s.closeErr = errors.Join(errs...)
		s.log.Info().Msg("hotkey service stopped")
	})
	return s.closeErr
}

func (s *Service) translate(spec KeySpec) (NativeShortcut, error) {
	if !spec.Key.Known() {
		return NativeShortcut{}, newError(InvalidSpec, "translate", spec.String(), fmt.Sprintf("unknown key %s", spec.Key), nil)
	}
	key, err := s.backend.NativeKeycode(spec.Key)
	if err != nil {
		return NativeShortcut{}, err
	}
	mods, err := s.backend.NativeModifiers(spec.Mods)
	if err != nil {
		return NativeShortcut{}, err
	}
	// Backends reject keys they cannot map; zero is a real code on macOS.
	return NativeShortcut{Key: key, Modifier: mods}, nil
}
