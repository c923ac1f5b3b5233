package hotkey

import (
	"time"

	"github.com/rs/zerolog"
)

// Backend translates abstract key specs into native shortcuts and registers
// them with the platform. Implementations are driven exclusively from the
// service loop and report key activity to the Sink they were built with.
type Backend interface {
	// Name returns a human-readable name for this backend (for logging).
	Name() string

	// NativeKeycode translates an abstract key into the platform keycode.
	NativeKeycode(k Key) (uint32, error)

	// NativeModifiers translates abstract modifiers into the platform mask.
	NativeModifiers(m Modifiers) (uint32, error)

	// Register makes the shortcut fire globally. label is a human-readable
	// description that broker-based backends display to the user.
	Register(ns NativeShortcut, label string) error

	// Unregister releases the shortcut. Unregistering an unknown shortcut
	// is not an error.
	Unregister(ns NativeShortcut) error

	// Close releases every platform resource held by the backend.
	Close() error
}

// Sink receives key activity from a backend. All methods run on the loop.
type Sink interface {
	Activate(ns NativeShortcut, timestamp uint64)
	Release(ns NativeShortcut, timestamp uint64)
	// Removed reports that the platform dropped a registration on its own.
	Removed(ns NativeShortcut)
}

// BackendKind selects a backend explicitly instead of by detection.
type BackendKind string

const (
	BackendAuto         BackendKind = "auto"
	BackendX11          BackendKind = "x11"
	BackendKGlobalAccel BackendKind = "kglobalaccel"
	BackendNative       BackendKind = "native"
)

// Options configure backend construction.
type Options struct {
	Backend BackendKind

	// DebounceDelay is the release debounce window of the direct-grab backend.
	DebounceDelay time.Duration

	// BrokerTimeout bounds each round trip to the shortcut broker.
	BrokerTimeout time.Duration

	// OrganizationDomain and ApplicationName scope broker actions to this
	// application. ExecutablePath feeds the component identity.
	OrganizationDomain string
	ApplicationName    string
	ExecutablePath     string

	// Logger receives backend diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// BackendFactory builds a backend bound to the service loop and the registry.
type BackendFactory func(loop *Loop, sink Sink, opts Options) (Backend, error)

const (
	DefaultDebounceDelay = 50 * time.Millisecond
	DefaultBrokerTimeout = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendAuto
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = DefaultDebounceDelay
	}
	if o.BrokerTimeout <= 0 {
		o.BrokerTimeout = DefaultBrokerTimeout
	}
	if o.ApplicationName == "" {
		o.ApplicationName = "hotkeyd"
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}
