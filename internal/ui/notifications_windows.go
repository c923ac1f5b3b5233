//go:build windows

package ui

import (
	"fmt"
	"strings"

	"github.com/go-toast/toast"
)

func platformNotify(appName, title, message string) error {
	n := toast.Notification{
		AppID:   appName,
		Title:   title,
		Message: message,
	}
	if err := n.Push(); err != nil {
		if strings.Contains(err.Error(), "notification platform is unavailable") {
			return fmt.Errorf("toast: notifications are disabled in Windows settings: %w", err)
		}
		return fmt.Errorf("toast: %w", err)
	}
	return nil
}
