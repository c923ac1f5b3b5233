//go:build windows

package ui

import "github.com/rs/zerolog/log"

// OpenFileInDefaultApp opens path with the registered handler via ShellExecuteW.
func OpenFileInDefaultApp(path string) error {
	err := shellExecute(0, "open", path, "", "", swShowNormal)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ShellExecuteW failed")
	}
	return err
}
