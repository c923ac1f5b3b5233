package hotkey

import (
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/keybind"
)

// xgbGrabber implements keyGrabber on a real X connection.
type xgbGrabber struct {
	xu   *xgbutil.XUtil
	root xproto.Window
}

func dialX11() (*xgbGrabber, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	keybind.Initialize(xu)
	return &xgbGrabber{xu: xu, root: xu.RootWin()}, nil
}

func (g *xgbGrabber) Keycodes(keysym string) []uint32 {
	codes := keybind.StrToKeycodes(g.xu, keysym)
	out := make([]uint32, 0, len(codes))
	for _, c := range codes {
		out = append(out, uint32(c))
	}
	return out
}

func (g *xgbGrabber) KeysymKeycodes(keysym uint32) []uint32 {
	keyMap := keybind.KeyMapGet(g.xu)
	if keyMap == nil {
		return nil
	}
	setup := xproto.Setup(g.xu.Conn())
	var out []uint32
	for kc := int(setup.MinKeycode); kc <= int(setup.MaxKeycode); kc++ {
		for col := byte(0); col < keyMap.KeysymsPerKeycode; col++ {
			if keybind.KeysymGet(g.xu, xproto.Keycode(kc), col) == xproto.Keysym(keysym) {
				out = append(out, uint32(kc))
				break
			}
		}
	}
	return out
}

func (g *xgbGrabber) GrabKey(keycode uint32, mods uint16) error {
	return xproto.GrabKeyChecked(g.xu.Conn(), false, g.root, mods, xproto.Keycode(keycode),
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
}

func (g *xgbGrabber) UngrabKey(keycode uint32, mods uint16) error {
	return xproto.UngrabKeyChecked(g.xu.Conn(), xproto.Keycode(keycode), g.root, mods).Check()
}

func (g *xgbGrabber) Listen(onEvent func(KeyEvent), onError func(request uint8, err error)) {
	for {
		ev, xerr := g.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return // connection closed
		}
		if xerr != nil {
			onError(majorOpcode(xerr), xerr)
			continue
		}
		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			onEvent(KeyEvent{Type: KeyPress, Detail: uint32(e.Detail), State: uint32(e.State), Time: uint64(e.Time)})
		case xproto.KeyReleaseEvent:
			onEvent(KeyEvent{Type: KeyRelease, Detail: uint32(e.Detail), State: uint32(e.State), Time: uint64(e.Time)})
		}
	}
}

func (g *xgbGrabber) Close() error {
	g.xu.Conn().Close()
	return nil
}

func majorOpcode(err error) uint8 {
	switch e := err.(type) {
	case xproto.AccessError:
		return e.MajorOpcode
	case xproto.ValueError:
		return e.MajorOpcode
	case xproto.WindowError:
		return e.MajorOpcode
	}
	return 0
}
