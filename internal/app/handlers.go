package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TanaroSch/hotkeyd/internal/ui"
)

// Tray callbacks. Each runs on its own tray goroutine.

func (a *Application) onReloadConfig() {
	summary, err := a.Reload()
	if err != nil {
		a.reportError("Reload Failed", err)
		return
	}
	a.notifier.Notify("Configuration Reloaded", summary)
}

func (a *Application) onOpenConfigFile() {
	a.mu.Lock()
	path := a.cfg.GetConfigPath()
	a.mu.Unlock()
	if err := ui.OpenFileInDefaultApp(path); err != nil {
		a.reportError("Open Config Failed", err)
	}
}

func (a *Application) onAddHotkey() {
	a.mu.Lock()
	secrets := a.cfg.GetSecretNames()
	a.mu.Unlock()

	h, err := a.dialogs.PromptHotkey(secrets)
	if errors.Is(err, ui.ErrCanceled) {
		return
	}
	if err != nil {
		a.reportError("Add Hotkey Failed", err)
		return
	}
	if err := a.AddHotkey(h); err != nil {
		a.dialogs.Error("Add Hotkey", err.Error())
		a.reportError("Add Hotkey Failed", err)
		return
	}
	if st, ok := a.HotkeyStatus(h.Name); ok && st.State != "registered" {
		a.dialogs.Error("Add Hotkey", fmt.Sprintf("%s was saved but is not active:\n%s", h.Name, st.LastError))
		return
	}
	a.notifier.Notify("Hotkey Added", h.Name+": "+h.Keys)
}

func (a *Application) onAddSecret() {
	name, value, err := a.dialogs.PromptSecret()
	if err != nil {
		return
	}
	a.mu.Lock()
	if a.watcher != nil {
		a.watcher.Pause()
	}
	err = a.cfg.AddSecretReference(name, value)
	if a.watcher != nil {
		a.watcher.Resume()
	}
	a.mu.Unlock()
	if err != nil {
		a.reportError("Store Secret Failed", err)
		return
	}
	if _, err := a.Reload(); err != nil {
		a.reportError("Reload Failed", err)
		return
	}
	a.notifier.Notify("Secret Stored", "Secret '"+name+"' is available to clipboard hotkeys.")
}

func (a *Application) onListSecrets() {
	a.mu.Lock()
	names := a.cfg.GetSecretNames()
	a.mu.Unlock()
	msg := "No managed secrets."
	if len(names) > 0 {
		msg = "Managed secrets:\n\n" + strings.Join(names, "\n")
	}
	a.dialogs.Info("Managed Secrets", msg)
}

func (a *Application) onRemoveSecret() {
	a.mu.Lock()
	names := a.cfg.GetSecretNames()
	a.mu.Unlock()
	name, err := a.dialogs.PickSecretToRemove(names)
	if err != nil {
		return
	}
	a.mu.Lock()
	if a.watcher != nil {
		a.watcher.Pause()
	}
	err = a.cfg.RemoveSecretReference(name)
	if a.watcher != nil {
		a.watcher.Resume()
	}
	a.mu.Unlock()
	if err != nil {
		a.reportError("Remove Secret Failed", err)
		return
	}
	if _, err := a.Reload(); err != nil {
		a.reportError("Reload Failed", err)
	}
}

func (a *Application) onShowHotkey(name string) {
	st, ok := a.HotkeyStatus(name)
	if !ok {
		return
	}
	msg := fmt.Sprintf("%s\nKeys: %s\nState: %s", st.Name, st.Keys, st.State)
	if st.LastError != "" {
		msg += "\n\nLast error:\n" + st.LastError
	}
	a.dialogs.Info("Hotkey", msg)
}

func (a *Application) onShowLastError() {
	if msg := a.LastError(); msg != "" {
		a.dialogs.Error("Last Error", msg)
	}
}

func (a *Application) onQuit() {
	if err := a.Shutdown(); err != nil {
		a.log.Warn().Err(err).Msg("shutdown reported errors")
	}
}
