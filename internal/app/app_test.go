package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
)

type note struct{ title, message string }

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{title, message})
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		out = append(out, n.title)
	}
	return out
}

func (r *recorder) has(title, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.title == title && n.message == message {
			return true
		}
	}
	return false
}

type fixture struct {
	app      *Application
	fb       *hotkey.FakeBackend
	notes    *recorder
	path     string
	services int
	prepare  func(*hotkey.FakeBackend)
}

func notifyHotkey(name, keys string) config.HotkeyConfig {
	return config.HotkeyConfig{
		Name:    name,
		Keys:    keys,
		Enabled: true,
		Action:  config.Action{Type: config.ActionNotify, Text: name + " fired"},
	}
}

func writeCfg(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func newFixture(t *testing.T, hotkeys ...config.HotkeyConfig) *fixture {
	t.Helper()
	f := &fixture{
		fb:    hotkey.NewFakeBackend(),
		notes: &recorder{},
		path:  filepath.Join(t.TempDir(), config.DefaultFileName),
	}
	writeCfg(t, f.path, &config.Config{UseNotifications: true, Hotkeys: hotkeys})
	cfg, err := config.Load(f.path)
	require.NoError(t, err)

	factory := func(opts hotkey.Options) (*hotkey.Service, error) {
		f.services++
		f.fb = hotkey.NewFakeBackend()
		if f.prepare != nil {
			f.prepare(f.fb)
		}
		return hotkey.NewServiceWith(opts, f.fb.Factory())
	}
	f.app = New(cfg, "test", zerolog.Nop(), WithServiceFactory(factory), WithNotifier(f.notes), WithoutTray())
	t.Cleanup(func() { _ = f.app.Shutdown() })
	return f
}

func (f *fixture) rewrite(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	cfg := &config.Config{UseNotifications: true}
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, cfg))
	mutate(cfg)
	writeCfg(t, f.path, cfg)
}

func TestStartRegistersEnabledHotkeys(t *testing.T) {
	disabled := notifyHotkey("off", "ctrl+shift+o")
	disabled.Enabled = false
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"), disabled)

	require.NoError(t, f.app.Start())
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+h")))
	assert.False(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+o")))

	st := f.app.Status()
	assert.Equal(t, "fake", st.Backend)
	require.Len(t, st.Hotkeys, 1)
	assert.Equal(t, "hello", st.Hotkeys[0].Name)
	assert.Equal(t, "Ctrl+Shift+H", st.Hotkeys[0].Keys)
	assert.Equal(t, "registered", st.Hotkeys[0].State)
	assert.Empty(t, st.LastError)
}

func TestActivationRunsAction(t *testing.T) {
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"))
	require.NoError(t, f.app.Start())

	f.fb.SimPress(hotkey.MustParseKeySpec("ctrl+shift+h"), 10)
	require.Eventually(t, func() bool { return f.notes.has("hello", "hello fired") }, time.Second, 5*time.Millisecond)
}

func TestReleaseActionRuns(t *testing.T) {
	h := notifyHotkey("ptt", "f9")
	h.ReleaseAction = &config.Action{Type: config.ActionNotify, Text: "released"}
	f := newFixture(t, h)
	require.NoError(t, f.app.Start())

	spec := hotkey.MustParseKeySpec("f9")
	f.fb.SimPress(spec, 1)
	f.fb.SimRelease(spec, 2)
	require.Eventually(t, func() bool { return f.notes.has("ptt", "released") }, time.Second, 5*time.Millisecond)
}

func TestRegistrationFailureIsReported(t *testing.T) {
	f := newFixture(t, notifyHotkey("taken", "ctrl+g"), notifyHotkey("free", "ctrl+f"))
	f.prepare = func(fb *hotkey.FakeBackend) {
		fb.Fail(hotkey.MustParseKeySpec("ctrl+g"), &hotkey.Error{Kind: hotkey.AlreadyInUse, Op: "register", Msg: "BadAccess (attempt to access private resource denied)"})
	}

	require.NoError(t, f.app.Start())
	taken, ok := f.app.HotkeyStatus("taken")
	require.True(t, ok)
	assert.Equal(t, "error", taken.State)
	assert.Contains(t, taken.LastError, "BadAccess")

	free, ok := f.app.HotkeyStatus("free")
	require.True(t, ok)
	assert.Equal(t, "registered", free.State)

	assert.Contains(t, f.app.LastError(), "taken")
	assert.Contains(t, f.notes.titles(), "Hotkey Registration Issue")
}

func TestReloadReportsChanges(t *testing.T) {
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"), notifyHotkey("gone", "ctrl+shift+g"))
	require.NoError(t, f.app.Start())

	f.rewrite(t, func(c *config.Config) {
		c.Hotkeys = []config.HotkeyConfig{
			notifyHotkey("hello", "ctrl+shift+j"),
			notifyHotkey("new", "meta+n"),
		}
	})
	summary, err := f.app.Reload()
	require.NoError(t, err)
	assert.Equal(t, "1 added, 1 removed, 1 changed\n"+
		"- gone: Ctrl+Shift+G notify\n"+
		"~ hello: Ctrl+Shift+H notify -> Ctrl+Shift+J notify\n"+
		"+ new: Meta+N notify", summary)

	assert.Equal(t, 1, f.services, "same backend settings keep the service")
	assert.False(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+h")))
	assert.False(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+g")))
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+j")))
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("meta+n")))

	summary, err = f.app.Reload()
	require.NoError(t, err)
	assert.Equal(t, "No hotkey changes.", summary)
}

func TestReloadActionChangeKeepsRegistration(t *testing.T) {
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"))
	require.NoError(t, f.app.Start())
	regs, _ := f.fb.Calls()

	f.rewrite(t, func(c *config.Config) {
		c.Hotkeys[0].Action.Text = "changed"
	})
	_, err := f.app.Reload()
	require.NoError(t, err)
	after, unregs := f.fb.Calls()
	assert.Equal(t, regs, after)
	assert.Zero(t, unregs)

	f.fb.SimPress(hotkey.MustParseKeySpec("ctrl+shift+h"), 1)
	require.Eventually(t, func() bool { return f.notes.has("hello", "changed") }, time.Second, 5*time.Millisecond)
}

func TestReloadBackendSettingsRestartService(t *testing.T) {
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"))
	require.NoError(t, f.app.Start())
	first := f.fb

	f.rewrite(t, func(c *config.Config) { c.DebounceMs = 120 })
	_, err := f.app.Reload()
	require.NoError(t, err)

	assert.Equal(t, 2, f.services)
	assert.True(t, first.Closed())
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+h")))
}

func TestReloadWithBrokenFileKeepsRunning(t *testing.T) {
	f := newFixture(t, notifyHotkey("hello", "ctrl+shift+h"))
	require.NoError(t, f.app.Start())

	require.NoError(t, os.WriteFile(f.path, []byte("{"), 0o600))
	_, err := f.app.Reload()
	require.Error(t, err)
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+shift+h")))
}

func TestAddHotkeyPersistsAndRegisters(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Start())

	require.NoError(t, f.app.AddHotkey(notifyHotkey("added", "alt+a")))
	assert.True(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("alt+a")))

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"added"`))

	assert.Error(t, f.app.AddHotkey(notifyHotkey("added", "alt+b")))
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t, notifyHotkey("a", "ctrl+1"), notifyHotkey("b", "ctrl+2"))
	require.NoError(t, f.app.Start())

	require.NoError(t, f.app.Shutdown())
	assert.True(t, f.fb.Closed())
	assert.False(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+1")))
	assert.False(t, f.fb.IsRegistered(hotkey.MustParseKeySpec("ctrl+2")))
	assert.Empty(t, f.app.Status().Hotkeys)

	require.NoError(t, f.app.Shutdown())
	_, err := f.app.Reload()
	assert.Error(t, err)
}

func TestRunReturnsAfterShutdown(t *testing.T) {
	f := newFixture(t, notifyHotkey("a", "ctrl+1"))
	done := make(chan error, 1)
	go func() { done <- f.app.Run() }()

	require.Eventually(t, func() bool { return f.app.Status().Backend != "" }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.app.Shutdown())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestActionErrorBecomesLastError(t *testing.T) {
	h := config.HotkeyConfig{
		Name:    "secret",
		Keys:    "ctrl+s",
		Enabled: true,
		Action:  config.Action{Type: config.ActionClipboard, Secret: "missing"},
	}
	f := newFixture(t, h)
	require.NoError(t, f.app.Start())

	f.fb.SimPress(hotkey.MustParseKeySpec("ctrl+s"), 1)
	require.Eventually(t, func() bool { return strings.Contains(f.app.LastError(), "secret not loaded") }, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.notes.titles(), "Hotkey secret failed")
}
