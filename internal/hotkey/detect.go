package hotkey

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// DisplayServer represents the type of display server in use
type DisplayServer int

const (
	DisplayServerUnknown DisplayServer = iota
	DisplayServerWindows
	DisplayServerDarwin
	DisplayServerX11
	DisplayServerWayland
)

func (ds DisplayServer) String() string {
	switch ds {
	case DisplayServerWindows:
		return "Windows"
	case DisplayServerDarwin:
		return "macOS"
	case DisplayServerX11:
		return "X11"
	case DisplayServerWayland:
		return "Wayland"
	default:
		return "Unknown"
	}
}

// environment is the subset of the process environment detection reads.
type environment struct {
	goos           string
	display        string
	waylandDisplay string
	sessionType    string
	sessionBus     string
}

func currentEnvironment() environment {
	return environment{
		goos:           runtime.GOOS,
		display:        os.Getenv("DISPLAY"),
		waylandDisplay: os.Getenv("WAYLAND_DISPLAY"),
		sessionType:    os.Getenv("XDG_SESSION_TYPE"),
		sessionBus:     os.Getenv("DBUS_SESSION_BUS_ADDRESS"),
	}
}

// DetectDisplayServer determines which display server is currently in use.
// This function is safe to call on any platform.
func DetectDisplayServer() DisplayServer {
	return currentEnvironment().displayServer()
}

func (e environment) displayServer() DisplayServer {
	switch e.goos {
	case "windows":
		return DisplayServerWindows
	case "darwin":
		return DisplayServerDarwin
	}
	// Wayland first: XWayland sessions also set DISPLAY.
	if e.waylandDisplay != "" || strings.EqualFold(e.sessionType, "wayland") {
		return DisplayServerWayland
	}
	if e.display != "" {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

// HasSessionBus reports whether a D-Bus session bus address is advertised.
func HasSessionBus() bool {
	return currentEnvironment().sessionBus != ""
}

// resolveBackend turns the requested kind into a concrete one. Auto picks the
// direct-grab backend on X11, the broker on Wayland with a session bus and the
// native backend on Windows and macOS.
func (e environment) resolveBackend(kind BackendKind, log zerolog.Logger) (BackendKind, error) {
	ds := e.displayServer()
	log.Debug().Stringer("display_server", ds).Str("requested", string(kind)).Msg("selecting hotkey backend")

	switch kind {
	case BackendX11, BackendKGlobalAccel, BackendNative:
		return kind, nil
	case BackendAuto:
	default:
		return "", newError(InvalidSpec, "select backend", "", fmt.Sprintf("unknown backend %q", kind), nil)
	}

	switch ds {
	case DisplayServerWindows, DisplayServerDarwin:
		return BackendNative, nil
	case DisplayServerX11:
		return BackendX11, nil
	case DisplayServerWayland:
		if e.sessionBus == "" {
			return "", newError(PlatformUnsupported, "select backend", "",
				"Wayland session without a D-Bus session bus; global shortcuts are unavailable", nil)
		}
		return BackendKGlobalAccel, nil
	}
	return "", newError(PlatformUnsupported, "select backend", "", "no display server detected", nil)
}

// SelectBackend returns the factory for the backend named by opts.Backend, or
// for the detected display server when it is auto.
func SelectBackend(opts Options) (BackendFactory, error) {
	opts = opts.withDefaults()
	kind, err := currentEnvironment().resolveBackend(opts.Backend, *opts.Logger)
	if err != nil {
		return nil, err
	}
	switch kind {
	case BackendX11:
		return NewX11Backend, nil
	case BackendKGlobalAccel:
		return NewKGlobalAccelBackend, nil
	default:
		return NewNativeBackend, nil
	}
}
