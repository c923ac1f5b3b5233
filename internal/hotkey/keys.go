package hotkey

import (
	"fmt"
	"strings"
)

// Key is a platform-independent key code. Printable keys use their upper-case
// ASCII code and special keys live in the 0x01000000 block, which is also the
// code space the KDE shortcut service expects on the wire.
type Key uint32

// Modifiers is a set of abstract modifier bits. The bit values match the
// modifier bits of the wire key codes so that Key|Modifiers is a valid
// broker key sequence.
type Modifiers uint32

const (
	ModShift Modifiers = 0x02000000
	ModCtrl  Modifiers = 0x04000000
	ModAlt   Modifiers = 0x08000000
	ModMeta  Modifiers = 0x10000000

	modAll = ModShift | ModCtrl | ModAlt | ModMeta
)

const (
	KeySpace      Key = 0x20
	KeyApostrophe Key = 0x27
	KeyComma      Key = 0x2c
	KeyMinus      Key = 0x2d
	KeyPeriod     Key = 0x2e
	KeySlash      Key = 0x2f
	Key0          Key = 0x30
	Key9          Key = 0x39
	KeySemicolon  Key = 0x3b
	KeyEqual      Key = 0x3d
	KeyA          Key = 0x41
	KeyZ          Key = 0x5a
	KeyBracketL   Key = 0x5b
	KeyBackslash  Key = 0x5c
	KeyBracketR   Key = 0x5d
	KeyGrave      Key = 0x60

	KeyEscape    Key = 0x01000000
	KeyTab       Key = 0x01000001
	KeyBackspace Key = 0x01000003
	KeyReturn    Key = 0x01000004
	KeyEnter     Key = 0x01000005
	KeyInsert    Key = 0x01000006
	KeyDelete    Key = 0x01000007
	KeyPause     Key = 0x01000008
	KeyPrint     Key = 0x01000009
	KeyHome      Key = 0x01000010
	KeyEnd       Key = 0x01000011
	KeyLeft      Key = 0x01000012
	KeyUp        Key = 0x01000013
	KeyRight     Key = 0x01000014
	KeyDown      Key = 0x01000015
	KeyPageUp    Key = 0x01000016
	KeyPageDown  Key = 0x01000017
	KeyF1        Key = 0x01000030
	KeyF24       Key = 0x01000047

	KeyMediaPlay       Key = 0x01000080
	KeyMediaStop       Key = 0x01000081
	KeyMediaPrevious   Key = 0x01000082
	KeyMediaNext       Key = 0x01000083
	KeyMediaRecord     Key = 0x01000084
	KeyMediaPause      Key = 0x01000085
	KeyMediaTogglePlay Key = 0x01000086
)

// keyInfo describes one key: its display text, its X11 keysym name and the
// extra spellings accepted by ParseKeySpec.
type keyInfo struct {
	display string
	x11     string
	aliases []string
}

var keyTable = map[Key]keyInfo{
	KeySpace:      {"Space", "space", nil},
	KeyApostrophe: {"'", "apostrophe", []string{"quote"}},
	KeyComma:      {",", "comma", nil},
	KeyMinus:      {"-", "minus", nil},
	KeyPeriod:     {".", "period", []string{"dot"}},
	KeySlash:      {"/", "slash", nil},
	KeySemicolon:  {";", "semicolon", nil},
	KeyEqual:      {"=", "equal", nil},
	KeyBracketL:   {"[", "bracketleft", nil},
	KeyBackslash:  {"\\", "backslash", nil},
	KeyBracketR:   {"]", "bracketright", nil},
	KeyGrave:      {"`", "grave", []string{"backquote"}},

	KeyEscape:    {"Esc", "Escape", []string{"escape"}},
	KeyTab:       {"Tab", "Tab", nil},
	KeyBackspace: {"Backspace", "BackSpace", nil},
	KeyReturn:    {"Return", "Return", []string{"enter"}},
	KeyEnter:     {"Enter", "KP_Enter", []string{"kpenter"}},
	KeyInsert:    {"Ins", "Insert", []string{"insert"}},
	KeyDelete:    {"Del", "Delete", []string{"delete"}},
	KeyPause:     {"Pause", "Pause", nil},
	KeyPrint:     {"Print", "Print", []string{"printscreen"}},
	KeyHome:      {"Home", "Home", nil},
	KeyEnd:       {"End", "End", nil},
	KeyLeft:      {"Left", "Left", nil},
	KeyUp:        {"Up", "Up", nil},
	KeyRight:     {"Right", "Right", nil},
	KeyDown:      {"Down", "Down", nil},
	KeyPageUp:    {"PgUp", "Prior", []string{"pageup"}},
	KeyPageDown:  {"PgDown", "Next", []string{"pagedown", "pgdn"}},

	KeyMediaPlay:       {"Media Play", "XF86AudioPlay", nil},
	KeyMediaStop:       {"Media Stop", "XF86AudioStop", nil},
	KeyMediaPrevious:   {"Media Previous", "XF86AudioPrev", []string{"mediaprev"}},
	KeyMediaNext:       {"Media Next", "XF86AudioNext", nil},
	KeyMediaRecord:     {"Media Record", "XF86AudioRecord", nil},
	KeyMediaPause:      {"Media Pause", "XF86AudioPlay", nil},
	KeyMediaTogglePlay: {"Toggle Media Play/Pause", "XF86AudioPlay", []string{"mediaplaypause"}},
}

// keyByName is the reverse lookup used by ParseKeySpec. Names are lower-case
// with spaces removed.
var keyByName = map[string]Key{}

func init() {
	for c := KeyA; c <= KeyZ; c++ {
		s := string(rune(c))
		keyTable[c] = keyInfo{display: s, x11: strings.ToLower(s)}
	}
	for c := Key0; c <= Key9; c++ {
		s := string(rune(c))
		keyTable[c] = keyInfo{display: s, x11: s}
	}
	for c := KeyF1; c <= KeyF24; c++ {
		s := fmt.Sprintf("F%d", c-KeyF1+1)
		keyTable[c] = keyInfo{display: s, x11: s}
	}
	for k, info := range keyTable {
		keyByName[normalizeName(info.display)] = k
	}
	// Aliases win over display names ("enter" is Return, not keypad Enter).
	for k, info := range keyTable {
		for _, a := range info.aliases {
			keyByName[a] = k
		}
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// String returns the native display text of the key.
func (k Key) String() string {
	if info, ok := keyTable[k]; ok {
		return info.display
	}
	return fmt.Sprintf("0x%x", uint32(k))
}

// X11Name returns the X11 keysym name of the key, or "" when unknown.
func (k Key) X11Name() string {
	return keyTable[k].x11
}

// Known reports whether k has an entry in the key table.
func (k Key) Known() bool {
	_, ok := keyTable[k]
	return ok
}

// String renders the modifiers in native order, joined by "+".
func (m Modifiers) String() string {
	var parts []string
	if m&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if m&ModMeta != 0 {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}

// KeySpec is the abstract, platform-independent description of a shortcut.
type KeySpec struct {
	Key  Key
	Mods Modifiers
}

// String returns the native text form, e.g. "Ctrl+Shift+A".
func (s KeySpec) String() string {
	if s.Mods == 0 {
		return s.Key.String()
	}
	return s.Mods.String() + "+" + s.Key.String()
}

// Code returns the combined wire key code (key | modifiers).
func (s KeySpec) Code() int32 {
	return int32(uint32(s.Key) | uint32(s.Mods&modAll))
}

// SpecFromCode splits a combined wire key code back into a KeySpec.
func SpecFromCode(code int32) KeySpec {
	c := uint32(code)
	return KeySpec{Key: Key(c &^ uint32(modAll)), Mods: Modifiers(c) & modAll}
}

// ParseKeySpec converts a combination such as "ctrl+alt+v" or "Ctrl+Shift+F12"
// into a KeySpec. The last part is the key, every other part a modifier.
func ParseKeySpec(s string) (KeySpec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return KeySpec{}, newError(InvalidSpec, "parse", "", "hotkey spec is empty", nil)
	}
	parts := strings.Split(raw, "+")
	keyName := normalizeName(parts[len(parts)-1])
	key, ok := keyByName[keyName]
	if !ok {
		return KeySpec{}, newError(InvalidSpec, "parse", raw, fmt.Sprintf("unsupported key: %s", parts[len(parts)-1]), nil)
	}

	var mods Modifiers
	for _, part := range parts[:len(parts)-1] {
		switch normalizeName(part) {
		case "ctrl", "control":
			mods |= ModCtrl
		case "alt", "option":
			mods |= ModAlt
		case "shift":
			mods |= ModShift
		case "meta", "super", "win", "cmd":
			mods |= ModMeta
		default:
			return KeySpec{}, newError(InvalidSpec, "parse", raw, fmt.Sprintf("unsupported modifier: %s", part), nil)
		}
	}
	return KeySpec{Key: key, Mods: mods}, nil
}

// MustParseKeySpec is ParseKeySpec for literals known to be valid.
func MustParseKeySpec(s string) KeySpec {
	spec, err := ParseKeySpec(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// NativeShortcut is the platform-native (keycode, modifier mask) pair and the
// unit of registration identity.
type NativeShortcut struct {
	Key      uint32
	Modifier uint32
}

func (n NativeShortcut) String() string {
	return fmt.Sprintf("key=0x%x mods=0x%x", n.Key, n.Modifier)
}
