//go:build !windows && !darwin

package hotkey

// NewNativeBackend is only available on Windows and macOS.
func NewNativeBackend(*Loop, Sink, Options) (Backend, error) {
	return nil, newError(PlatformUnsupported, "select backend", "", "the native backend is only available on Windows and macOS", nil)
}
