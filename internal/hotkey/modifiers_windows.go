//go:build windows

package hotkey

import "golang.design/x/hotkey"

var modifierOrder = []modifierMapping{
	{ModCtrl, hotkey.ModCtrl},
	{ModAlt, hotkey.ModAlt},
	{ModShift, hotkey.ModShift},
	{ModMeta, hotkey.ModWin},
}
