package ui

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Notifier shows desktop notifications when enabled.
type Notifier struct {
	appName string
	enabled atomic.Bool
	push    func(appName, title, message string) error
}

func NewNotifier(enabled bool, appName string) *Notifier {
	n := &Notifier{appName: appName, push: platformNotify}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled follows the use_notifications setting across reloads.
func (n *Notifier) SetEnabled(enabled bool) { n.enabled.Store(enabled) }

// Notify shows title and message. Failures are logged, never returned.
func (n *Notifier) Notify(title, message string) {
	if !n.enabled.Load() {
		log.Debug().Str("title", title).Msg("notifications disabled, not shown")
		return
	}
	if err := n.push(n.appName, title, message); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("notification failed")
	}
}
