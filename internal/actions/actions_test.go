package actions

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanaroSch/hotkeyd/internal/config"
)

type note struct{ title, message string }

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{title, message})
}

type harness struct {
	runner   *Runner
	notifier *recordingNotifier
	clip     []string
	pastes   int
	started  [][]string
}

func newHarness() *harness {
	h := &harness{notifier: &recordingNotifier{}}
	h.runner = NewRunner(h.notifier, zerolog.Nop())
	h.runner.writeClipboard = func(s string) error { h.clip = append(h.clip, s); return nil }
	h.runner.paste = func() error { h.pastes++; return nil }
	h.runner.start = func(name string, args ...string) error {
		h.started = append(h.started, append([]string{name}, args...))
		return nil
	}
	return h
}

func TestNotifyAction(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.runner.Run("hello", config.Action{Type: config.ActionNotify, Text: "hi"}))
	require.NoError(t, h.runner.Run("bare", config.Action{Type: config.ActionNotify}))
	assert.Equal(t, []note{{"hello", "hi"}, {"bare", "bare pressed"}}, h.notifier.notes)
}

func TestClipboardText(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.runner.Run("sig", config.Action{Type: config.ActionClipboard, Text: "Best regards"}))
	assert.Equal(t, []string{"Best regards"}, h.clip)
	assert.Zero(t, h.pastes)
}

func TestClipboardSecretAndPaste(t *testing.T) {
	h := newHarness()
	h.runner.SetSecrets(map[string]string{"token": "s3cret"})

	require.NoError(t, h.runner.Run("tok", config.Action{Type: config.ActionClipboard, Secret: "token", Text: "ignored", Paste: true}))
	assert.Equal(t, []string{"s3cret"}, h.clip)
	assert.Equal(t, 1, h.pastes)

	err := h.runner.Run("tok", config.Action{Type: config.ActionClipboard, Secret: "other"})
	assert.ErrorIs(t, err, ErrSecretNotLoaded)
	assert.Len(t, h.clip, 1)
}

func TestClipboardWriteFailure(t *testing.T) {
	h := newHarness()
	h.runner.writeClipboard = func(string) error { return errors.New("no clipboard") }
	err := h.runner.Run("sig", config.Action{Type: config.ActionClipboard, Text: "x", Paste: true})
	assert.ErrorContains(t, err, "no clipboard")
	assert.Zero(t, h.pastes)
}

func TestCommandAction(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.runner.Run("term", config.Action{Type: config.ActionCommand, Command: "xterm", Args: []string{"-e", "top"}}))
	assert.Equal(t, [][]string{{"xterm", "-e", "top"}}, h.started)
}

func TestUnknownAction(t *testing.T) {
	h := newHarness()
	assert.ErrorContains(t, h.runner.Run("x", config.Action{Type: "beep"}), `unknown action type "beep"`)
}

func TestStartDetachedMissingBinary(t *testing.T) {
	assert.Error(t, startDetached("hotkeyd-no-such-binary"))
}
