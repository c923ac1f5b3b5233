// Package actions executes what a configured hotkey is bound to.
package actions

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/TanaroSch/hotkeyd/internal/config"
)

// ErrSecretNotLoaded is returned when a clipboard action names a secret the
// keyring did not provide.
var ErrSecretNotLoaded = errors.New("secret not loaded")

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string)
}

// pasteDelay gives the target window time to see the new clipboard owner.
const pasteDelay = 100 * time.Millisecond

// Runner executes actions. Run may block on child processes or paste
// simulation, so callers keep it off the hotkey loop.
type Runner struct {
	notifier Notifier
	log      zerolog.Logger

	writeClipboard func(string) error
	paste          func() error
	start          func(name string, args ...string) error

	mu      sync.RWMutex
	secrets map[string]string
}

func NewRunner(n Notifier, log zerolog.Logger) *Runner {
	return &Runner{
		notifier:       n,
		log:            log.With().Str("component", "actions").Logger(),
		writeClipboard: clipboard.WriteAll,
		paste:          simulatePaste,
		start:          startDetached,
		secrets:        make(map[string]string),
	}
}

// SetSecrets replaces the resolved secrets, typically after a reload.
func (r *Runner) SetSecrets(secrets map[string]string) {
	cp := make(map[string]string, len(secrets))
	for k, v := range secrets {
		cp[k] = v
	}
	r.mu.Lock()
	r.secrets = cp
	r.mu.Unlock()
}

func (r *Runner) secret(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.secrets[name]
	return v, ok
}

// Run executes a on behalf of the hotkey called name.
func (r *Runner) Run(name string, a config.Action) error {
	log := r.log.With().Str("hotkey", name).Str("action", a.Type).Logger()
	var err error
	switch a.Type {
	case config.ActionNotify:
		msg := a.Text
		if msg == "" {
			msg = name + " pressed"
		}
		r.notifier.Notify(name, msg)
	case config.ActionClipboard:
		err = r.runClipboard(a)
	case config.ActionCommand:
		err = r.start(a.Command, a.Args...)
	default:
		err = fmt.Errorf("unknown action type %q", a.Type)
	}
	if err != nil {
		log.Error().Err(err).Msg("action failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug().Msg("action done")
	return nil
}

func (r *Runner) runClipboard(a config.Action) error {
	text := a.Text
	if a.Secret != "" {
		v, ok := r.secret(a.Secret)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSecretNotLoaded, a.Secret)
		}
		text = v
	}
	if err := r.writeClipboard(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if !a.Paste {
		return nil
	}
	time.Sleep(pasteDelay)
	if err := r.paste(); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.String(), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
