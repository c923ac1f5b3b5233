package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	accelService         = "org.kde.kglobalaccel"
	accelPath            = dbus.ObjectPath("/kglobalaccel")
	accelInterface       = "org.kde.KGlobalAccel"
	accelComponentIface  = "org.kde.kglobalaccel.Component"
	accelNoSuchComponent = "org.kde.kglobalaccel.NoSuchComponent"
)

// dbusAccel talks to kglobalaccel on the session bus.
type dbusAccel struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	raw     chan *dbus.Signal
	signals chan BrokerSignal
}

// DialAccelService connects to the KDE global shortcut service. ctx bounds
// the setup calls only; the connection stays open until Close.
func DialAccelService(ctx context.Context) (AccelService, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	a := &dbusAccel{
		conn:    conn,
		obj:     conn.Object(accelService, accelPath),
		raw:     make(chan *dbus.Signal, 64),
		signals: make(chan BrokerSignal, 64),
	}

	var owner string
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, accelService).Store(&owner); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s is not running: %w", accelService, err)
	}

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(accelInterface), dbus.WithMatchMember("yourShortcutGotChanged")},
		{dbus.WithMatchInterface(accelComponentIface), dbus.WithMatchMember("globalShortcutPressed")},
		{dbus.WithMatchInterface(accelComponentIface), dbus.WithMatchMember("globalShortcutReleased")},
	}
	for _, m := range matches {
		if err := conn.AddMatchSignalContext(ctx, m...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe to broker signals: %w", err)
		}
	}
	conn.Signal(a.raw)
	go a.translate()
	return a, nil
}

func (a *dbusAccel) translate() {
	defer close(a.signals)
	for sig := range a.raw {
		if bs, ok := decodeSignal(sig); ok {
			a.signals <- bs
		}
	}
}

func decodeSignal(sig *dbus.Signal) (BrokerSignal, bool) {
	switch sig.Name {
	case accelInterface + ".yourShortcutGotChanged":
		var (
			id   []string
			keys []int32
		)
		if err := dbus.Store(sig.Body, &id, &keys); err != nil || len(id) < 2 {
			return BrokerSignal{}, false
		}
		return BrokerSignal{Kind: SignalKeysChanged, Component: id[0], Action: id[1], Keys: keys}, true
	case accelComponentIface + ".globalShortcutPressed", accelComponentIface + ".globalShortcutReleased":
		var (
			component, action string
			ts                int64
		)
		if err := dbus.Store(sig.Body, &component, &action, &ts); err != nil {
			return BrokerSignal{}, false
		}
		kind := SignalPressed
		if strings.HasSuffix(sig.Name, "Released") {
			kind = SignalReleased
		}
		return BrokerSignal{Kind: kind, Component: component, Action: action, Timestamp: uint64(ts)}, true
	}
	return BrokerSignal{}, false
}

type shortcutInfoWire struct {
	ContextUnique     string
	ContextFriendly   string
	ComponentUnique   string
	ComponentFriendly string
	UniqueName        string
	FriendlyName      string
	Keys              []int32
	DefaultKeys       []int32
}

func (a *dbusAccel) ShortcutInfos(ctx context.Context, component string) ([]ShortcutInfo, error) {
	var path dbus.ObjectPath
	err := a.obj.CallWithContext(ctx, accelInterface+".getComponent", 0, component).Store(&path)
	if err != nil {
		if dbusErrorName(err) == accelNoSuchComponent {
			return nil, nil
		}
		return nil, err
	}

	var wire []shortcutInfoWire
	if err := a.conn.Object(accelService, path).CallWithContext(ctx, accelComponentIface+".allShortcutInfos", 0).Store(&wire); err != nil {
		return nil, err
	}
	infos := make([]ShortcutInfo, 0, len(wire))
	for _, w := range wire {
		infos = append(infos, ShortcutInfo{
			ComponentUnique:   w.ComponentUnique,
			ComponentFriendly: w.ComponentFriendly,
			UniqueName:        w.UniqueName,
			FriendlyName:      w.FriendlyName,
			Keys:              w.Keys,
			DefaultKeys:       w.DefaultKeys,
		})
	}
	return infos, nil
}

func (a *dbusAccel) DoRegister(ctx context.Context, id ActionID) error {
	return a.obj.CallWithContext(ctx, accelInterface+".doRegister", 0, id.Strings()).Err
}

func (a *dbusAccel) SetShortcut(ctx context.Context, id ActionID, keys []int32, flags uint32) ([]int32, error) {
	var out []int32
	err := a.obj.CallWithContext(ctx, accelInterface+".setShortcut", 0, id.Strings(), keys, flags).Store(&out)
	return out, err
}

func (a *dbusAccel) Unregister(ctx context.Context, component, action string) error {
	var ok bool
	// ok is false when the broker had no such action, which is not a failure.
	return a.obj.CallWithContext(ctx, accelInterface+".unregister", 0, component, action).Store(&ok)
}

func (a *dbusAccel) IsShortcutAvailable(ctx context.Context, key int32, component string) (bool, error) {
	var ok bool
	err := a.obj.CallWithContext(ctx, accelInterface+".isGlobalShortcutAvailable", 0, key, component).Store(&ok)
	return ok, err
}

func (a *dbusAccel) Signals() <-chan BrokerSignal {
	return a.signals
}

// Close ends the connection. The bus closes the raw signal channel, which in
// turn closes Signals.
func (a *dbusAccel) Close() error {
	return a.conn.Close()
}

func dbusErrorName(err error) string {
	var v dbus.Error
	if errors.As(err, &v) {
		return v.Name
	}
	var p *dbus.Error
	if errors.As(err, &p) {
		return p.Name
	}
	return ""
}
