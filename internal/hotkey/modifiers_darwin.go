//go:build darwin

package hotkey

import "golang.design/x/hotkey"

var modifierOrder = []modifierMapping{
	{ModCtrl, hotkey.ModCtrl},
	{ModAlt, hotkey.ModOption},
	{ModShift, hotkey.ModShift},
	{ModMeta, hotkey.ModCmd},
}
