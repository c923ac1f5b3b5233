package ui

import (
	"errors"
	"strings"

	"github.com/ncruces/zenity"

	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
)

// ErrCanceled is returned when the user dismisses a dialog.
var ErrCanceled = zenity.ErrCanceled

// Dialogs wraps the zenity prompts used by the tray.
type Dialogs struct {
	AppName string
}

func (d Dialogs) title(step string) zenity.Option {
	return zenity.Title(d.AppName + " - " + step)
}

// Info shows a message box.
func (d Dialogs) Info(title, msg string) {
	_ = zenity.Info(msg, d.title(title), zenity.InfoIcon)
}

// Error shows an error box.
func (d Dialogs) Error(title, msg string) {
	_ = zenity.Error(msg, d.title(title), zenity.ErrorIcon)
}

// PromptHotkey walks the user through a new hotkey entry. secrets lists the
// managed secret names a clipboard action may use.
func (d Dialogs) PromptHotkey(secrets []string) (config.HotkeyConfig, error) {
	var h config.HotkeyConfig
	var err error

	h.Name, err = zenity.Entry("Name for the new hotkey (unique, e.g. open_terminal):",
		d.title("Add Hotkey"), zenity.DisallowEmpty())
	if err != nil {
		return h, err
	}
	h.Name = strings.TrimSpace(h.Name)

	prompt := "Key combination (e.g. ctrl+shift+t, meta+f12):"
	for {
		h.Keys, err = zenity.Entry(prompt, d.title("Add Hotkey"), zenity.DisallowEmpty())
		if err != nil {
			return h, err
		}
		spec, perr := hotkey.ParseKeySpec(h.Keys)
		if perr == nil {
			h.Keys = spec.String()
			break
		}
		prompt = perr.Error() + "\n\nKey combination (e.g. ctrl+shift+t, meta+f12):"
	}

	h.Description, err = zenity.Entry("Description shown in the tray and the shortcut settings (optional):",
		d.title("Add Hotkey"))
	if err != nil {
		return h, err
	}

	kind, err := zenity.List("What should the hotkey do?",
		[]string{config.ActionNotify, config.ActionClipboard, config.ActionCommand},
		d.title("Add Hotkey"), zenity.DefaultItems(config.ActionNotify))
	if err != nil {
		return h, err
	}
	h.Action.Type = kind

	switch kind {
	case config.ActionNotify:
		h.Action.Text, err = zenity.Entry("Notification text:", d.title("Add Hotkey"))
	case config.ActionClipboard:
		h.Action, err = d.promptClipboard(secrets)
	case config.ActionCommand:
		h.Action, err = d.promptCommand()
	}
	if err != nil {
		return h, err
	}
	h.Enabled = true
	return h, nil
}

func (d Dialogs) promptClipboard(secrets []string) (config.Action, error) {
	a := config.Action{Type: config.ActionClipboard}
	if len(secrets) > 0 {
		err := zenity.Question("Copy a stored secret instead of plain text?",
			d.title("Add Hotkey"), zenity.OKLabel("Use Secret"), zenity.CancelLabel("Plain Text"))
		switch {
		case err == nil:
			a.Secret, err = zenity.List("Secret to copy:", secrets, d.title("Add Hotkey"))
			if err != nil {
				return a, err
			}
		case !errors.Is(err, zenity.ErrCanceled):
			return a, err
		}
	}
	if a.Secret == "" {
		var err error
		a.Text, err = zenity.Entry("Text to copy:", d.title("Add Hotkey"), zenity.DisallowEmpty())
		if err != nil {
			return a, err
		}
	}
	a.Paste = zenity.Question("Paste into the focused window after copying?",
		d.title("Add Hotkey"), zenity.OKLabel("Paste"), zenity.CancelLabel("Only Copy")) == nil
	return a, nil
}

func (d Dialogs) promptCommand() (config.Action, error) {
	line, err := zenity.Entry("Command to start (arguments separated by spaces):",
		d.title("Add Hotkey"), zenity.DisallowEmpty())
	if err != nil {
		return config.Action{}, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return config.Action{}, ErrCanceled
	}
	return config.Action{Type: config.ActionCommand, Command: fields[0], Args: fields[1:]}, nil
}

// PromptSecret asks for a logical name and a hidden value.
func (d Dialogs) PromptSecret() (name, value string, err error) {
	name, err = zenity.Entry("Logical name (e.g. api_token, no spaces):",
		d.title("Add/Update Secret"), zenity.DisallowEmpty())
	if err != nil {
		return "", "", err
	}
	name = strings.TrimSpace(name)
	if strings.ContainsAny(name, " \t") {
		d.Error("Add/Update Secret", "Secret names must not contain spaces.")
		return "", "", ErrCanceled
	}
	_, value, err = zenity.Password(d.title("Value for '" + name + "'"))
	if err != nil {
		return "", "", err
	}
	return name, value, nil
}

// PickSecretToRemove lets the user choose and confirm a secret for removal.
func (d Dialogs) PickSecretToRemove(names []string) (string, error) {
	if len(names) == 0 {
		d.Info("Remove Secret", "There are no managed secrets.")
		return "", ErrCanceled
	}
	name, err := zenity.List("Secret to remove:", names, d.title("Remove Secret"))
	if err != nil {
		return "", err
	}
	err = zenity.Question("Remove '"+name+"' from the keyring and the configuration?",
		d.title("Confirm Removal"), zenity.WarningIcon, zenity.OKLabel("Remove"), zenity.CancelLabel("Cancel"))
	if err != nil {
		return "", err
	}
	return name, nil
}
