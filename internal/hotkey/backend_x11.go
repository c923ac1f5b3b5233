package hotkey

import (
	"fmt"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog"
)

// X request opcodes the error trap cares about.
const (
	requestGrabKey   uint8 = 33
	requestUngrabKey uint8 = 34
)

// Lock and NumLock variants grabbed alongside every shortcut so it fires
// regardless of lock state.
var specialModifiers = []uint16{
	0,
	xproto.ModMask2,
	xproto.ModMaskLock,
	xproto.ModMask2 | xproto.ModMaskLock,
}

// validModsMask strips everything but Shift, Control, Alt and Super from the
// state of incoming key events.
const validModsMask = xproto.ModMaskShift | xproto.ModMaskControl | xproto.ModMask1 | xproto.ModMask4

// KeyEventType distinguishes presses from releases.
type KeyEventType uint8

const (
	KeyPress KeyEventType = iota + 1
	KeyRelease
)

// KeyEvent is a raw key event as read from the X connection.
type KeyEvent struct {
	Type   KeyEventType
	Detail uint32 // keycode
	State  uint32 // modifier state at the time of the event
	Time   uint64
}

// keyGrabber is the part of the X connection the backend needs.
type keyGrabber interface {
	Keycodes(keysym string) []uint32
	// KeysymKeycodes looks a raw keysym value up in the keyboard map.
	KeysymKeycodes(keysym uint32) []uint32
	GrabKey(keycode uint32, mods uint16) error
	UngrabKey(keycode uint32, mods uint16) error
	// Listen delivers raw key events until the connection is closed. Errors
	// not tied to a checked request are delivered with their opcode.
	Listen(onEvent func(KeyEvent), onError func(request uint8, err error))
	Close() error
}

// xErrorHandler sees every X error the backend does not consume itself.
type xErrorHandler func(request uint8, err error)

// X11Backend grabs shortcuts on the X root window.
type X11Backend struct {
	conn     keyGrabber
	sink     Sink
	log      zerolog.Logger
	debounce time.Duration
	schedule func(d time.Duration, fn func())

	errorHandler xErrorHandler

	prevEvent   KeyEvent
	prevHandled KeyEvent
}

// NewX11Backend connects to the X server named by DISPLAY. It satisfies
// BackendFactory.
func NewX11Backend(loop *Loop, sink Sink, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	conn, err := dialX11()
	if err != nil {
		return nil, newError(PlatformUnsupported, "connect", "", "cannot connect to the X server", err)
	}
	b := newX11Backend(conn, loop, sink, opts)
	go conn.Listen(
		func(ev KeyEvent) { loop.Post(func() { b.HandleEvent(ev) }) },
		func(req uint8, err error) { loop.Post(func() { b.errorHandler(req, err) }) },
	)
	return b, nil
}

func newX11Backend(conn keyGrabber, loop *Loop, sink Sink, opts Options) *X11Backend {
	b := &X11Backend{
		conn:     conn,
		sink:     sink,
		log:      opts.Logger.With().Str("component", "x11").Logger(),
		debounce: opts.DebounceDelay,
		schedule: loop.AfterFunc,
	}
	b.errorHandler = b.logError
	return b
}

func (b *X11Backend) Name() string { return "X11 (direct grab)" }

// NativeKeycode resolves k through its keysym name. When the name is unknown
// to the keyboard map, a key code up to 0xFFFF is tried as the keysym itself.
func (b *X11Backend) NativeKeycode(k Key) (uint32, error) {
	var codes []uint32
	if name := k.X11Name(); name != "" {
		codes = b.conn.Keycodes(name)
	}
	if (len(codes) == 0 || codes[0] == 0) && k <= 0xFFFF {
		codes = b.conn.KeysymKeycodes(uint32(k))
	}
	if len(codes) == 0 || codes[0] == 0 {
		return 0, newError(InvalidSpec, "translate", k.String(), fmt.Sprintf("key %s is not on the current keyboard map", k), nil)
	}
	return codes[0], nil
}

func (b *X11Backend) NativeModifiers(m Modifiers) (uint32, error) {
	var mask uint32
	if m&ModShift != 0 {
		mask |= xproto.ModMaskShift
	}
	if m&ModCtrl != 0 {
		mask |= xproto.ModMaskControl
	}
	if m&ModAlt != 0 {
		mask |= xproto.ModMask1
	}
	if m&ModMeta != 0 {
		mask |= xproto.ModMask4
	}
	return mask, nil
}

// Register grabs every special-modifier variant of ns. If any grab fails the
// variants already grabbed are released again.
func (b *X11Backend) Register(ns NativeShortcut, _ string) error {
	trap := b.trapErrors()
	defer trap.release()

	for _, special := range specialModifiers {
		if err := b.conn.GrabKey(ns.Key, uint16(ns.Modifier)|special); err != nil {
			b.errorHandler(requestGrabKey, err)
		}
	}
	if !trap.failed {
		return nil
	}

	for _, special := range specialModifiers {
		if err := b.conn.UngrabKey(ns.Key, uint16(ns.Modifier)|special); err != nil {
			b.errorHandler(requestUngrabKey, err)
		}
	}
	kind := GrabFailed
	if trap.access {
		kind = AlreadyInUse
	}
	b.log.Warn().Stringer("native", ns).Str("x_error", trap.text).Msg("grab failed")
	return newError(kind, "register", ns.String(), trap.text, nil)
}

// Unregister releases every variant, continuing past failures.
func (b *X11Backend) Unregister(ns NativeShortcut) error {
	trap := b.trapErrors()
	defer trap.release()

	for _, special := range specialModifiers {
		if err := b.conn.UngrabKey(ns.Key, uint16(ns.Modifier)|special); err != nil {
			b.errorHandler(requestUngrabKey, err)
		}
	}
	if trap.failed {
		return newError(GrabFailed, "unregister", ns.String(), trap.text, nil)
	}
	return nil
}

func (b *X11Backend) Close() error {
	return b.conn.Close()
}

// HandleEvent runs every raw key event through the press and release rules.
// It always reports false: events are observed, never consumed.
func (b *X11Backend) HandleEvent(ev KeyEvent) bool {
	switch ev.Type {
	case KeyPress:
		// A press carrying the timestamp of the release just handled is the
		// same physical event delivered twice.
		if !(b.prevHandled.Type == KeyRelease && b.prevHandled.Time == ev.Time) {
			b.sink.Activate(NativeShortcut{Key: ev.Detail, Modifier: ev.State & validModsMask}, ev.Time)
		}
		b.prevEvent = ev
	case KeyRelease:
		b.prevEvent = ev
		b.schedule(b.debounce, func() {
			if b.prevEvent.Time == ev.Time && b.prevEvent.Type == ev.Type && b.prevEvent.Detail == ev.Detail {
				b.sink.Release(NativeShortcut{Key: ev.Detail, Modifier: ev.State & validModsMask}, ev.Time)
			}
		})
		b.prevHandled = ev
	}
	return false
}

func (b *X11Backend) logError(request uint8, err error) {
	b.log.Error().Err(err).Uint8("request", request).Msg("X error")
}

// errorTrap temporarily replaces the backend's X error handler and records
// grab related failures. release must run on every exit path.
type errorTrap struct {
	b      *X11Backend
	prev   xErrorHandler
	failed bool
	access bool
	text   string
}

func (b *X11Backend) trapErrors() *errorTrap {
	t := &errorTrap{b: b, prev: b.errorHandler}
	b.errorHandler = t.handle
	return t
}

func (t *errorTrap) handle(request uint8, err error) {
	kind := classifyXError(err)
	if (request == requestGrabKey || request == requestUngrabKey) && kind != xErrOther {
		if !t.failed {
			t.text = kind.text()
			t.access = kind == xErrAccess
		}
		t.failed = true
		return
	}
	t.prev(request, err)
}

func (t *errorTrap) release() {
	t.b.errorHandler = t.prev
}

type xErrKind int

const (
	xErrOther xErrKind = iota
	xErrAccess
	xErrValue
	xErrWindow
)

func (k xErrKind) text() string {
	switch k {
	case xErrAccess:
		return "BadAccess (attempt to access private resource denied)"
	case xErrValue:
		return "BadValue (integer parameter out of range for operation)"
	case xErrWindow:
		return "BadWindow (invalid Window parameter)"
	}
	return "unknown X error"
}

func classifyXError(err error) xErrKind {
	switch err.(type) {
	case xproto.AccessError, *xproto.AccessError:
		return xErrAccess
	case xproto.ValueError, *xproto.ValueError:
		return xErrValue
	case xproto.WindowError, *xproto.WindowError:
		return xErrWindow
	}
	return xErrOther
}
