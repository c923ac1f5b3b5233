package hotkey

import "context"

// setShortcut flags understood by the broker.
const (
	AccelIsDefault     uint32 = 1
	AccelSetPresent    uint32 = 2
	AccelNoAutoloading uint32 = 4
)

// ActionID addresses one broker action.
type ActionID struct {
	Component         string
	Action            string
	ComponentFriendly string
	ActionFriendly    string
}

// Strings returns the id in the broker's wire order.
func (id ActionID) Strings() []string {
	return []string{id.Component, id.Action, id.ComponentFriendly, id.ActionFriendly}
}

// ShortcutInfo is what the broker stores for one action of a component.
type ShortcutInfo struct {
	ComponentUnique   string
	ComponentFriendly string
	UniqueName        string
	FriendlyName      string
	Keys              []int32
	DefaultKeys       []int32
}

// BrokerSignalKind identifies a push notification from the broker.
type BrokerSignalKind int

const (
	SignalKeysChanged BrokerSignalKind = iota + 1
	SignalPressed
	SignalReleased
)

// BrokerSignal is one push notification.
type BrokerSignal struct {
	Kind      BrokerSignalKind
	Component string
	Action    string
	Keys      []int32 // SignalKeysChanged only
	Timestamp uint64
}

// AccelService is the shortcut broker as seen by KGlobalAccelBackend.
type AccelService interface {
	ShortcutInfos(ctx context.Context, component string) ([]ShortcutInfo, error)
	DoRegister(ctx context.Context, id ActionID) error
	SetShortcut(ctx context.Context, id ActionID, keys []int32, flags uint32) ([]int32, error)
	Unregister(ctx context.Context, component, action string) error
	IsShortcutAvailable(ctx context.Context, key int32, component string) (bool, error)
	// Signals is closed when the service connection ends.
	Signals() <-chan BrokerSignal
	Close() error
}
