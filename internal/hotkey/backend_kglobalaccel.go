package hotkey

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	accelNamespace = "/org/hotkeyd/ShortcutService/"
	accelAppPrefix = "org.hotkeyd.ShortcutService.ThirdParty."
)

// BrokerAction is the local copy of one action stored by the broker.
type BrokerAction struct {
	ID          string
	Description string
	Keys        []int32
}

// KeySpecs renders the action's keys as key specs.
func (a BrokerAction) KeySpecs() []KeySpec {
	out := make([]KeySpec, 0, len(a.Keys))
	for _, k := range a.Keys {
		if k != 0 {
			out = append(out, SpecFromCode(k))
		}
	}
	return out
}

// KGlobalAccelBackend registers shortcuts as named actions with the KDE
// global shortcut service instead of grabbing keys.
type KGlobalAccelBackend struct {
	svc     AccelService
	sink    Sink
	log     zerolog.Logger
	timeout time.Duration

	appName   string
	appID     string
	component string

	actions   map[string]*BrokerAction  // identifier -> action
	shortcuts map[string]NativeShortcut // identifier -> requested shortcut
}

// NewKGlobalAccelBackend dials the broker on the session bus. It satisfies
// BackendFactory.
func NewKGlobalAccelBackend(loop *Loop, sink Sink, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), opts.BrokerTimeout)
	defer cancel()
	svc, err := DialAccelService(ctx)
	if err != nil {
		return nil, newError(BrokerUnavailable, "connect", "", "shortcut broker is not reachable", err)
	}
	b, err := newKGlobalAccelBackend(svc, loop, sink, opts)
	if err != nil {
		svc.Close()
		return nil, err
	}
	return b, nil
}

func newKGlobalAccelBackend(svc AccelService, loop *Loop, sink Sink, opts Options) (*KGlobalAccelBackend, error) {
	opts = opts.withDefaults()
	appID := accelAppPrefix + opts.OrganizationDomain + opts.ApplicationName
	b := &KGlobalAccelBackend{
		svc:       svc,
		sink:      sink,
		log:       opts.Logger.With().Str("component", "kglobalaccel").Logger(),
		timeout:   opts.BrokerTimeout,
		appName:   opts.ApplicationName,
		appID:     appID,
		component: appID + accelNamespace + opts.ExecutablePath,
		actions:   make(map[string]*BrokerAction),
		shortcuts: make(map[string]NativeShortcut),
	}
	if err := b.loadActions(); err != nil {
		return nil, err
	}
	go func() {
		for sig := range svc.Signals() {
			loop.Post(func() { b.handleSignal(sig) })
		}
	}()
	return b, nil
}

func (b *KGlobalAccelBackend) Name() string { return "KGlobalAccel (shortcut broker)" }

// Component returns the component identity used with the broker.
func (b *KGlobalAccelBackend) Component() string { return b.component }

// NativeKeycode passes the abstract key through: the broker speaks the same
// key code space.
func (b *KGlobalAccelBackend) NativeKeycode(k Key) (uint32, error) {
	return uint32(k), nil
}

func (b *KGlobalAccelBackend) NativeModifiers(m Modifiers) (uint32, error) {
	return uint32(m & modAll), nil
}

func (b *KGlobalAccelBackend) identifier(desc string) string {
	return b.appID + "." + strings.ToLower(desc)
}

func (b *KGlobalAccelBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *KGlobalAccelBackend) unavailable(op, shortcut string, err error) error {
	msg := "shortcut broker is not reachable"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "shortcut broker did not answer in time"
	}
	return newError(BrokerUnavailable, op, shortcut, msg, err)
}

// loadActions rebuilds the action list from what the broker stored for this
// component and asks it to load the user's keys for each.
func (b *KGlobalAccelBackend) loadActions() error {
	ctx, cancel := b.ctx()
	defer cancel()

	infos, err := b.svc.ShortcutInfos(ctx, b.component)
	if err != nil {
		return b.unavailable("load actions", "", err)
	}
	for _, info := range infos {
		id := ActionID{
			Component:         b.component,
			Action:            info.UniqueName,
			ComponentFriendly: b.appName,
			ActionFriendly:    info.FriendlyName,
		}
		keys, err := b.svc.SetShortcut(ctx, id, info.Keys, AccelSetPresent)
		if err != nil {
			return b.unavailable("load actions", info.UniqueName, err)
		}
		b.actions[info.UniqueName] = &BrokerAction{
			ID:          info.UniqueName,
			Description: info.FriendlyName,
			Keys:        keys,
		}
	}
	b.log.Debug().Int("actions", len(b.actions)).Str("component", b.component).Msg("loaded broker actions")
	return nil
}

// Register creates or updates the broker action for ns. Keys the user stored
// for an existing action win over the requested combination.
func (b *KGlobalAccelBackend) Register(ns NativeShortcut, label string) error {
	spec := SpecFromCode(int32(ns.Key | ns.Modifier))
	desc := spec.String()

	ctx, cancel := b.ctx()
	defer cancel()

	available, err := b.svc.IsShortcutAvailable(ctx, spec.Code(), b.component)
	if err != nil {
		return b.unavailable("register", desc, err)
	}
	if !available {
		return newError(AlreadyInUse, "register", desc,
			fmt.Sprintf("The shortcut %s is already in use by another application.", desc), nil)
	}

	friendly := label
	if friendly == "" {
		friendly = desc + " by " + b.appName
	}
	id := b.identifier(desc)
	action, ok := b.actions[id]
	if !ok {
		action = &BrokerAction{ID: id}
	}
	action.Description = friendly
	keys := []int32{spec.Code()}
	if len(action.Keys) > 0 {
		keys = action.Keys
	}

	actionID := ActionID{
		Component:         b.component,
		Action:            id,
		ComponentFriendly: b.appName,
		ActionFriendly:    friendly,
	}
	if err := b.svc.DoRegister(ctx, actionID); err != nil {
		return b.unavailable("register", desc, err)
	}
	got, err := b.svc.SetShortcut(ctx, actionID, keys, AccelSetPresent)
	if err != nil {
		return b.unavailable("register", desc, err)
	}
	action.Keys = got
	b.actions[id] = action
	b.shortcuts[id] = ns
	b.log.Debug().Str("action", id).Ints32("keys", got).Msg("broker action registered")
	return nil
}

// Unregister removes the action from the broker and forgets it locally. The
// local state is dropped even when the broker call fails.
func (b *KGlobalAccelBackend) Unregister(ns NativeShortcut) error {
	desc := SpecFromCode(int32(ns.Key | ns.Modifier)).String()
	id := b.identifier(desc)

	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.svc.Unregister(ctx, b.component, id); err != nil {
		b.log.Warn().Err(err).Str("action", id).Msg("broker unregister failed")
	}
	delete(b.actions, id)
	delete(b.shortcuts, id)
	return nil
}

// Close removes every action of this component that is still held locally,
// then closes the broker connection.
func (b *KGlobalAccelBackend) Close() error {
	ctx, cancel := b.ctx()
	defer cancel()

	var errs []error
	infos, err := b.svc.ShortcutInfos(ctx, b.component)
	if err != nil {
		errs = append(errs, b.unavailable("close", "", err))
	}
	for _, info := range infos {
		if _, ok := b.actions[info.UniqueName]; !ok {
			continue
		}
		if err := b.svc.Unregister(ctx, b.component, info.UniqueName); err != nil {
			errs = append(errs, b.unavailable("close", info.UniqueName, err))
		}
		delete(b.actions, info.UniqueName)
	}
	if err := b.svc.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Actions returns a snapshot of the local action list, sorted by id.
func (b *KGlobalAccelBackend) Actions() []BrokerAction {
	out := make([]BrokerAction, 0, len(b.actions))
	for _, a := range b.actions {
		out = append(out, BrokerAction{ID: a.ID, Description: a.Description, Keys: slices.Clone(a.Keys)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *KGlobalAccelBackend) handleSignal(sig BrokerSignal) {
	if sig.Component != b.component {
		return
	}
	switch sig.Kind {
	case SignalKeysChanged:
		action, ok := b.actions[sig.Action]
		if !ok {
			return
		}
		action.Keys = slices.Clone(sig.Keys)
		b.log.Info().Str("action", sig.Action).Ints32("keys", sig.Keys).Msg("broker keys changed")
		if len(nonZero(sig.Keys)) > 0 {
			return
		}
		if ns, ok := b.shortcuts[sig.Action]; ok {
			delete(b.shortcuts, sig.Action)
			b.sink.Removed(ns)
		}
	case SignalPressed:
		if ns, ok := b.shortcuts[sig.Action]; ok {
			b.sink.Activate(ns, sig.Timestamp)
		}
	case SignalReleased:
		if ns, ok := b.shortcuts[sig.Action]; ok {
			b.sink.Release(ns, sig.Timestamp)
		}
	}
}

func nonZero(keys []int32) []int32 {
	var out []int32
	for _, k := range keys {
		if k != 0 {
			out = append(out, k)
		}
	}
	return out
}
