package hotkey

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionKey struct {
	component string
	action    string
}

type brokerAction struct {
	component string
	friendly  string
	keys      []int32
}

// fakeBroker is an in-memory kglobalaccel. It outlives the services that
// connect to it, like the real session daemon.
type fakeBroker struct {
	mu      sync.Mutex
	actions map[actionKey]*brokerAction
	down    bool
	calls   []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{actions: make(map[actionKey]*brokerAction)}
}

func (fb *fakeBroker) connect() *fakeAccelConn {
	return &fakeAccelConn{broker: fb, signals: make(chan BrokerSignal, 16)}
}

func (fb *fakeBroker) owner(key int32) string {
	for _, a := range fb.actions {
		if slices.Contains(a.keys, key) {
			return a.component
		}
	}
	return ""
}

// keysOf returns the keys of the first action with the given name.
func (fb *fakeBroker) keysOf(action string) []int32 {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for k, a := range fb.actions {
		if k.action == action {
			return slices.Clone(a.keys)
		}
	}
	return nil
}

// userRebind changes keys the way the system settings would.
func (fb *fakeBroker) userRebind(action string, keys []int32) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for k, a := range fb.actions {
		if k.action == action {
			a.keys = keys
		}
	}
}

func (fb *fakeBroker) setDown(down bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.down = down
}

func (fb *fakeBroker) record(call string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls = append(fb.calls, call)
	if fb.down {
		return context.DeadlineExceeded
	}
	return nil
}

type fakeAccelConn struct {
	broker  *fakeBroker
	signals chan BrokerSignal
	once    sync.Once
}

func (c *fakeAccelConn) ShortcutInfos(_ context.Context, component string) ([]ShortcutInfo, error) {
	if err := c.broker.record("allShortcutInfos"); err != nil {
		return nil, err
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	var out []ShortcutInfo
	for k, a := range c.broker.actions {
		if k.component != component {
			continue
		}
		out = append(out, ShortcutInfo{
			ComponentUnique: component,
			UniqueName:      k.action,
			FriendlyName:    a.friendly,
			Keys:            slices.Clone(a.keys),
		})
	}
	return out, nil
}

func (c *fakeAccelConn) DoRegister(_ context.Context, id ActionID) error {
	if err := c.broker.record("doRegister"); err != nil {
		return err
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	k := actionKey{id.Component, id.Action}
	if a, ok := c.broker.actions[k]; ok {
		a.friendly = id.ActionFriendly
		return nil
	}
	c.broker.actions[k] = &brokerAction{component: id.Component, friendly: id.ActionFriendly}
	return nil
}

// SetShortcut with autoloading keeps keys already stored for the action.
func (c *fakeAccelConn) SetShortcut(_ context.Context, id ActionID, keys []int32, flags uint32) ([]int32, error) {
	if err := c.broker.record("setShortcut"); err != nil {
		return nil, err
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	k := actionKey{id.Component, id.Action}
	a, ok := c.broker.actions[k]
	if !ok {
		a = &brokerAction{component: id.Component, friendly: id.ActionFriendly}
		c.broker.actions[k] = a
	}
	if flags&AccelNoAutoloading != 0 || len(a.keys) == 0 {
		a.keys = slices.Clone(keys)
	}
	return slices.Clone(a.keys), nil
}

func (c *fakeAccelConn) Unregister(_ context.Context, component, action string) error {
	if err := c.broker.record("unregister"); err != nil {
		return err
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	delete(c.broker.actions, actionKey{component, action})
	return nil
}

func (c *fakeAccelConn) IsShortcutAvailable(_ context.Context, key int32, component string) (bool, error) {
	if err := c.broker.record("isGlobalShortcutAvailable"); err != nil {
		return false, err
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	owner := c.broker.owner(key)
	return owner == "" || owner == component, nil
}

func (c *fakeAccelConn) Signals() <-chan BrokerSignal { return c.signals }

func (c *fakeAccelConn) Close() error {
	c.once.Do(func() { close(c.signals) })
	return nil
}

type brokerFixture struct {
	svc     *Service
	backend *KGlobalAccelBackend
	conn    *fakeAccelConn
}

func newBrokerService(t *testing.T, broker *fakeBroker, exe string) *brokerFixture {
	t.Helper()
	f := &brokerFixture{conn: broker.connect()}
	opts := Options{
		OrganizationDomain: "example.org",
		ApplicationName:    "hotkeyd",
		ExecutablePath:     exe,
		BrokerTimeout:      100 * time.Millisecond,
	}
	svc, err := NewServiceWith(opts, func(loop *Loop, sink Sink, opts Options) (Backend, error) {
		b, err := newKGlobalAccelBackend(f.conn, loop, sink, opts)
		f.backend = b
		return b, err
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

const ctrlShiftA = "org.hotkeyd.ShortcutService.ThirdParty.example.orghotkeyd.ctrl+shift+a"

func TestBrokerIdentity(t *testing.T) {
	f := newBrokerService(t, newFakeBroker(), "/usr/bin/hotkeyd")
	defer f.svc.Close()

	assert.Equal(t, "org.hotkeyd.ShortcutService.ThirdParty.example.orghotkeyd/org/hotkeyd/ShortcutService//usr/bin/hotkeyd", f.backend.Component())
	assert.Equal(t, ctrlShiftA, f.backend.identifier("Ctrl+Shift+A"))
}

func TestBrokerRegisterUnregisterLeavesNoResidue(t *testing.T) {
	broker := newFakeBroker()
	f := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	defer f.svc.Close()

	h := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"))
	require.NoError(t, h.Register())
	assert.Equal(t, []int32{MustParseKeySpec("ctrl+shift+a").Code()}, broker.keysOf(ctrlShiftA))

	actions, err := f.svc.BrokerActions()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "Ctrl+Shift+A by hotkeyd", actions[0].Description)
	assert.Equal(t, []KeySpec{MustParseKeySpec("ctrl+shift+a")}, actions[0].KeySpecs())

	require.NoError(t, h.Unregister())
	assert.Nil(t, broker.keysOf(ctrlShiftA))
	actions, err = f.svc.BrokerActions()
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Equal(t, 0, f.svc.Registered())
}

func TestBrokerConflictWithOtherApplication(t *testing.T) {
	broker := newFakeBroker()
	other := newBrokerService(t, broker, "/opt/other/bin/app")
	defer other.svc.Close()
	mine := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	defer mine.svc.Close()

	first := other.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"))
	require.NoError(t, first.Register())

	second := mine.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"), WithDescription("Paste snippet"))
	err := second.Register()
	require.ErrorIs(t, err, ErrAlreadyInUse)
	assert.Equal(t, "register: The shortcut Ctrl+Shift+A is already in use by another application.", second.LastError())
	assert.Equal(t, 0, mine.svc.Registered())

	assert.True(t, first.IsRegistered())
	assert.Equal(t, 1, other.svc.Registered())
}

func TestBrokerPressedReleased(t *testing.T) {
	f := newBrokerService(t, newFakeBroker(), "/usr/bin/hotkeyd")
	defer f.svc.Close()

	h := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"), WithAutoRegister())
	require.True(t, h.IsRegistered())

	f.conn.signals <- BrokerSignal{Kind: SignalPressed, Component: f.backend.Component(), Action: ctrlShiftA, Timestamp: 4242}
	select {
	case ev := <-h.Activated():
		assert.Equal(t, uint64(4242), ev.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for activation")
	}

	// Signals for other components are ignored.
	f.conn.signals <- BrokerSignal{Kind: SignalReleased, Component: "someone-else", Action: ctrlShiftA, Timestamp: 4243}
	f.conn.signals <- BrokerSignal{Kind: SignalReleased, Component: f.backend.Component(), Action: ctrlShiftA, Timestamp: 4250}
	select {
	case ev := <-h.Released():
		assert.Equal(t, uint64(4250), ev.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for release")
	}
}

func TestBrokerRestartRestoresUserKeys(t *testing.T) {
	broker := newFakeBroker()
	spec := MustParseKeySpec("ctrl+shift+a")
	userKey := MustParseKeySpec("ctrl+alt+b").Code()

	first := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	h := first.svc.NewHotkey(spec, WithAutoRegister())
	require.True(t, h.IsRegistered())
	// Simulate a crash: the process goes away without teardown.
	first.svc.loop.Close()

	broker.userRebind(ctrlShiftA, []int32{userKey})

	second := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	defer second.svc.Close()
	actions, err := second.svc.BrokerActions()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ctrlShiftA, actions[0].ID)
	assert.Equal(t, []int32{userKey}, actions[0].Keys)

	// Registering again keeps the user's choice.
	h2 := second.svc.NewHotkey(spec)
	require.NoError(t, h2.Register())
	assert.Equal(t, []int32{userKey}, broker.keysOf(ctrlShiftA))
}

func TestBrokerKeysChangedToEmptyUnregisters(t *testing.T) {
	f := newBrokerService(t, newFakeBroker(), "/usr/bin/hotkeyd")
	defer f.svc.Close()
	h := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"), WithAutoRegister())
	require.True(t, h.IsRegistered())

	newKey := MustParseKeySpec("meta+k").Code()
	f.conn.signals <- BrokerSignal{Kind: SignalKeysChanged, Component: f.backend.Component(), Action: ctrlShiftA, Keys: []int32{newKey}}
	require.Eventually(t, func() bool {
		actions, _ := f.svc.BrokerActions()
		return len(actions) == 1 && slices.Equal(actions[0].Keys, []int32{newKey})
	}, time.Second, 5*time.Millisecond)
	assert.True(t, h.IsRegistered())

	f.conn.signals <- BrokerSignal{Kind: SignalKeysChanged, Component: f.backend.Component(), Action: ctrlShiftA, Keys: nil}
	require.Eventually(t, func() bool { return !h.IsRegistered() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateUnregistered, h.State())
	assert.Equal(t, 0, f.svc.Registered())
}

func TestBrokerUnavailable(t *testing.T) {
	broker := newFakeBroker()
	f := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	defer f.svc.Close()

	broker.setDown(true)
	h := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"))
	err := h.Register()
	require.ErrorIs(t, err, ErrBrokerUnavailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StateUnregistered, h.State())
	assert.Contains(t, h.LastError(), "did not answer in time")

	broker.setDown(false)
	require.NoError(t, h.Register())
}

func TestBrokerConstructionFailsWhenDown(t *testing.T) {
	broker := newFakeBroker()
	broker.setDown(true)
	conn := broker.connect()
	_, err := NewServiceWith(Options{}, func(loop *Loop, sink Sink, opts Options) (Backend, error) {
		return newKGlobalAccelBackend(conn, loop, sink, opts)
	})
	require.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestBrokerCloseRemovesHeldActions(t *testing.T) {
	broker := newFakeBroker()
	f := newBrokerService(t, broker, "/usr/bin/hotkeyd")
	a := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+a"), WithAutoRegister())
	b := f.svc.NewHotkey(MustParseKeySpec("ctrl+shift+b"), WithAutoRegister())
	require.True(t, a.IsRegistered())
	require.True(t, b.IsRegistered())

	require.NoError(t, f.svc.Close())
	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Empty(t, broker.actions)
}
