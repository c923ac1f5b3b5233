//go:build !windows

package actions

import (
	"errors"
	"fmt"
	"os/exec"
)

// pasteCommands are tried in order: X11, Wayland, macOS.
var pasteCommands = [][]string{
	{"xdotool", "key", "ctrl+v"},
	{"wtype", "-M", "ctrl", "-P", "v", "-m", "ctrl"},
	{"osascript", "-e", `tell application "System Events" to keystroke "v" using command down`},
}

func simulatePaste() error {
	var errs []error
	for _, argv := range pasteCommands {
		out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w (%s)", argv[0], err, out))
	}
	return errors.Join(errs...)
}
