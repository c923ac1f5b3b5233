package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeySpec(t *testing.T) {
	tests := []struct {
		in   string
		want KeySpec
		text string
	}{
		{"ctrl+shift+a", KeySpec{Key: KeyA, Mods: ModCtrl | ModShift}, "Ctrl+Shift+A"},
		{"Shift+Ctrl+A", KeySpec{Key: KeyA, Mods: ModCtrl | ModShift}, "Ctrl+Shift+A"},
		{"alt+F12", KeySpec{Key: KeyF1 + 11, Mods: ModAlt}, "Alt+F12"},
		{"super+space", KeySpec{Key: KeySpace, Mods: ModMeta}, "Meta+Space"},
		{"control + option + enter", KeySpec{Key: KeyReturn, Mods: ModCtrl | ModAlt}, "Ctrl+Alt+Return"},
		{"Media Next", KeySpec{Key: KeyMediaNext}, "Media Next"},
		{"cmd+pgdn", KeySpec{Key: KeyPageDown, Mods: ModMeta}, "Meta+PgDown"},
		{"7", KeySpec{Key: Key0 + 7}, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeySpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestParseKeySpecErrors(t *testing.T) {
	for _, in := range []string{"", "ctrl+", "hyper+a", "ctrl+nosuchkey"} {
		_, err := ParseKeySpec(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrInvalidSpec, in)
	}
}

func TestSpecCodeRoundTrip(t *testing.T) {
	spec := MustParseKeySpec("ctrl+alt+shift+meta+z")
	assert.Equal(t, int32(0x1e00005a), spec.Code())
	assert.Equal(t, spec, SpecFromCode(spec.Code()))
}

func TestKeyTable(t *testing.T) {
	assert.Equal(t, "a", KeyA.X11Name())
	assert.Equal(t, "XF86AudioPrev", KeyMediaPrevious.X11Name())
	assert.Equal(t, "F24", KeyF24.String())
	assert.False(t, Key(0x7fff).Known())
	assert.Equal(t, "0x7fff", Key(0x7fff).String())
}

func TestMustParseKeySpecPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseKeySpec("ctrl+bogus") })
}
