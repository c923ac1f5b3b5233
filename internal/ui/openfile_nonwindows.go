//go:build !windows

package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"
)

// OpenFileInDefaultApp opens path with the desktop's default handler.
func OpenFileInDefaultApp(path string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	cmd := exec.Command(opener, path)
	log.Debug().Str("cmd", cmd.String()).Msg("opening file")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.String(), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
