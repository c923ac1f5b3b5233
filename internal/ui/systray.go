package ui

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog/log"

	"github.com/TanaroSch/hotkeyd/internal/resources"
)

// HotkeyStatus is one row of the tray's hotkey list.
type HotkeyStatus struct {
	Name      string
	Keys      string
	State     string // "registered", "unregistered" or "error"
	LastError string
}

// Status is everything the tray displays.
type Status struct {
	Backend   string
	Hotkeys   []HotkeyStatus
	LastError string
}

// TrayCallbacks are invoked from tray goroutines. A nil callback disables its
// menu item.
type TrayCallbacks struct {
	Reload        func()
	OpenConfig    func()
	AddHotkey     func()
	AddSecret     func()
	ListSecrets   func()
	RemoveSecret  func()
	ShowHotkey    func(name string)
	ShowLastError func()
	Quit          func()
}

// Tray owns the system tray icon and menu.
type Tray struct {
	title string
	cb    TrayCallbacks

	mu          sync.Mutex
	ready       bool
	status      Status
	health      resources.Health
	miBackend   *systray.MenuItem
	miHotkeys   *systray.MenuItem
	miLastError *systray.MenuItem
	slots       []*systray.MenuItem
	slotNames   []string
}

func NewTray(title string, cb TrayCallbacks) *Tray {
	return &Tray{title: title, cb: cb, health: resources.Failing}
}

// Run blocks until Quit. It must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetStatus updates the menu. It may be called before the tray is ready.
func (t *Tray) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	if t.ready {
		t.applyLocked()
	}
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title)

	t.mu.Lock()
	t.miBackend = systray.AddMenuItem("Backend: -", "Active hotkey backend")
	t.miBackend.Disable()
	t.miHotkeys = systray.AddMenuItem("Hotkeys", "Configured hotkeys and their state")
	t.miLastError = systray.AddMenuItem("Last Error: none", "Show the most recent error")
	t.miLastError.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	miAdd := systray.AddMenuItem("Add Hotkey...", "Bind a new key combination")
	miSecrets := systray.AddMenuItem("Manage Secrets", "Values copied by clipboard hotkeys")
	miAddSecret := miSecrets.AddSubMenuItem("Add/Update Secret...", "Store a value in the OS keyring")
	miListSecrets := miSecrets.AddSubMenuItem("List Secret Names", "Show names of stored secrets")
	miRemoveSecret := miSecrets.AddSubMenuItem("Remove Secret...", "Delete a stored secret")
	systray.AddSeparator()

	miReload := systray.AddMenuItem("Reload Configuration", "Re-read config.json and re-register hotkeys")
	miOpen := systray.AddMenuItem("Open Config File", "Open config.json in the default editor")
	systray.AddSeparator()
	miQuit := systray.AddMenuItem("Quit", "Release all hotkeys and exit")

	handle(miAdd, t.cb.AddHotkey)
	handle(miAddSecret, t.cb.AddSecret)
	handle(miListSecrets, t.cb.ListSecrets)
	handle(miRemoveSecret, t.cb.RemoveSecret)
	handle(miReload, t.cb.Reload)
	handle(miOpen, t.cb.OpenConfig)
	handle(t.miLastError, t.cb.ShowLastError)

	go func() {
		<-miQuit.ClickedCh
		log.Info().Msg("quit requested from tray")
		if t.cb.Quit != nil {
			t.cb.Quit()
		}
		systray.Quit()
	}()

	t.mu.Lock()
	t.ready = true
	t.applyLocked()
	t.mu.Unlock()
	log.Debug().Msg("tray ready")
}

func (t *Tray) onExit() {
	log.Debug().Msg("tray exiting")
}

func handle(item *systray.MenuItem, fn func()) {
	if fn == nil {
		item.Disable()
		return
	}
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

func (t *Tray) applyLocked() {
	s := t.status
	t.miBackend.SetTitle("Backend: " + orDash(s.Backend))

	for len(t.slots) < len(s.Hotkeys) {
		idx := len(t.slots)
		item := t.miHotkeys.AddSubMenuItem("", "")
		t.slots = append(t.slots, item)
		t.slotNames = append(t.slotNames, "")
		go t.slotClicks(idx, item)
	}
	for i, item := range t.slots {
		if i >= len(s.Hotkeys) {
			t.slotNames[i] = ""
			item.Hide()
			continue
		}
		h := s.Hotkeys[i]
		t.slotNames[i] = h.Name
		item.SetTitle(HotkeyTitle(h))
		item.SetTooltip(orDash(h.LastError))
		item.Show()
	}
	t.miHotkeys.SetTitle(fmt.Sprintf("Hotkeys (%d)", len(s.Hotkeys)))

	if s.LastError == "" {
		t.miLastError.SetTitle("Last Error: none")
		t.miLastError.Disable()
	} else {
		t.miLastError.SetTitle("Last Error: " + truncate(s.LastError, 60))
		t.miLastError.Enable()
	}

	t.health = HealthOf(s)
	systray.SetIcon(resources.Icon(t.health))
	systray.SetTooltip(fmt.Sprintf("%s (%s)", t.title, orDash(s.Backend)))
}

func (t *Tray) slotClicks(idx int, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.mu.Lock()
		name := t.slotNames[idx]
		t.mu.Unlock()
		if name != "" && t.cb.ShowHotkey != nil {
			t.cb.ShowHotkey(name)
		}
	}
}

// HotkeyTitle renders a hotkey row, e.g. "● hello  Ctrl+Shift+H".
func HotkeyTitle(h HotkeyStatus) string {
	mark := "○"
	switch h.State {
	case "registered":
		mark = "●"
	case "error":
		mark = "✗"
	}
	return fmt.Sprintf("%s %s  %s", mark, h.Name, h.Keys)
}

// HealthOf picks the icon colour for s.
func HealthOf(s Status) resources.Health {
	if s.Backend == "" {
		return resources.Failing
	}
	registered := 0
	for _, h := range s.Hotkeys {
		if h.State == "registered" {
			registered++
		}
	}
	switch {
	case registered == len(s.Hotkeys):
		return resources.Healthy
	case registered == 0:
		return resources.Failing
	default:
		return resources.Degraded
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
