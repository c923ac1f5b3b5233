//go:build !windows

package ui

import "github.com/gen2brain/beeep"

func platformNotify(_, title, message string) error {
	return beeep.Notify(title, message, "")
}
