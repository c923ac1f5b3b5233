package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
)

type nopRunner struct{}

func (nopRunner) Run(string, config.Action) error { return nil }

func newTestService(t *testing.T) (*hotkey.Service, *hotkey.FakeBackend) {
	t.Helper()
	fb := hotkey.NewFakeBackend()
	svc, err := hotkey.NewServiceWith(hotkey.Options{}, fb.Factory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, fb
}

func TestManagerSkipsInvalidEntries(t *testing.T) {
	svc, fb := newTestService(t)
	m := NewManager(svc, nopRunner{}, nil, zerolog.Nop())

	err := m.Apply([]config.HotkeyConfig{
		notifyHotkey("bad", "ctrl+nosuchkey"),
		notifyHotkey("good", "ctrl+k"),
	})
	require.ErrorIs(t, err, hotkey.ErrInvalidSpec)
	assert.Contains(t, err.Error(), "bad")
	assert.True(t, fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+k")))
	require.Len(t, m.Statuses(), 1)
}

func TestManagerRetriesFailedOnApply(t *testing.T) {
	svc, fb := newTestService(t)
	m := NewManager(svc, nopRunner{}, nil, zerolog.Nop())
	spec := hotkey.MustParseKeySpec("ctrl+r")
	fb.Fail(spec, &hotkey.Error{Kind: hotkey.GrabFailed, Op: "register", Msg: "BadValue"})

	hotkeys := []config.HotkeyConfig{notifyHotkey("r", "ctrl+r")}
	require.ErrorIs(t, m.Apply(hotkeys), hotkey.ErrGrabFailed)
	st, _ := m.Status("r")
	assert.Equal(t, "error", st.State)

	fb.Fail(spec, nil)
	require.NoError(t, m.Apply(hotkeys))
	st, _ = m.Status("r")
	assert.Equal(t, "registered", st.State)
}

func TestManagerRelabelReregisters(t *testing.T) {
	svc, fb := newTestService(t)
	m := NewManager(svc, nopRunner{}, nil, zerolog.Nop())

	h := notifyHotkey("x", "meta+x")
	require.NoError(t, m.Apply([]config.HotkeyConfig{h}))
	h.Description = "Something else"
	require.NoError(t, m.Apply([]config.HotkeyConfig{h}))

	regs, unregs := fb.Calls()
	assert.Equal(t, 2, regs)
	assert.Equal(t, 1, unregs)
	assert.True(t, fb.IsRegistered(hotkey.MustParseKeySpec("meta+x")))
}

func TestManagerDisabledEntryIsUnregistered(t *testing.T) {
	svc, fb := newTestService(t)
	m := NewManager(svc, nopRunner{}, nil, zerolog.Nop())

	h := notifyHotkey("x", "meta+x")
	require.NoError(t, m.Apply([]config.HotkeyConfig{h}))
	h.Enabled = false
	require.NoError(t, m.Apply([]config.HotkeyConfig{h}))
	assert.False(t, fb.IsRegistered(hotkey.MustParseKeySpec("meta+x")))
	_, ok := m.Status("x")
	assert.False(t, ok)
}

func TestBindingsDescribeActions(t *testing.T) {
	cmd := config.HotkeyConfig{
		Name: "term", Keys: "meta+return", Enabled: true,
		Action: config.Action{Type: config.ActionCommand, Command: "xterm", Args: []string{"-e", "htop"}},
	}
	secret := config.HotkeyConfig{
		Name: "tok", Keys: "ctrl+alt+t", Enabled: true,
		Action:        config.Action{Type: config.ActionClipboard, Secret: "api"},
		ReleaseAction: &config.Action{Type: config.ActionNotify},
	}
	off := notifyHotkey("off", "f1")
	off.Enabled = false

	bs := Bindings([]config.HotkeyConfig{cmd, secret, off})
	require.Len(t, bs, 2)
	assert.Equal(t, "Meta+Return command xterm -e htop", bs[0].Details)
	assert.Equal(t, "Ctrl+Alt+T clipboard secret api, release notify", bs[1].Details)
}

func TestProbe(t *testing.T) {
	svc, fb := newTestService(t)

	res, err := Probe(svc, "ctrl+alt+p")
	require.NoError(t, err)
	assert.NoError(t, res.Err)
	assert.Equal(t, "fake", res.Backend)
	assert.Equal(t, uint32(hotkey.MustParseKeySpec("p").Key), res.Native.Key)
	assert.False(t, fb.IsRegistered(res.Spec), "probe releases the shortcut")

	fb.Fail(hotkey.MustParseKeySpec("ctrl+alt+p"), &hotkey.Error{Kind: hotkey.AlreadyInUse, Op: "register", Msg: "in use"})
	res, err = Probe(svc, "ctrl+alt+p")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, hotkey.ErrAlreadyInUse)

	_, err = Probe(svc, "ctrl+")
	assert.ErrorIs(t, err, hotkey.ErrInvalidSpec)
}
