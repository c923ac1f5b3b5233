package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/hotkeyd/internal/actions"
	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/diffutil"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
	"github.com/TanaroSch/hotkeyd/internal/ui"
)

const (
	AppName = "hotkeyd"

	statusInterval = 2 * time.Second
)

// ServiceFactory builds the hotkey service. Tests substitute a fake backend.
type ServiceFactory func(opts hotkey.Options) (*hotkey.Service, error)

// Application wires configuration, the hotkey service, actions and the tray.
type Application struct {
	version    string
	log        zerolog.Logger
	newService ServiceFactory
	notifier   actions.Notifier
	runner     *actions.Runner
	dialogs    ui.Dialogs
	tray       *ui.Tray
	watch      bool

	mu      sync.Mutex // serializes reloads, edits and shutdown
	cfg     *config.Config
	opts    hotkey.Options
	svc     *hotkey.Service
	manager *Manager
	watcher *config.Watcher

	errMu   sync.Mutex
	lastErr string

	stop     chan struct{}
	stopOnce sync.Once
}

// Option customizes an Application.
type Option func(*Application)

// WithServiceFactory replaces hotkey.NewService.
func WithServiceFactory(f ServiceFactory) Option {
	return func(a *Application) { a.newService = f }
}

// WithNotifier replaces the desktop notifier.
func WithNotifier(n actions.Notifier) Option {
	return func(a *Application) { a.notifier = n }
}

// WithoutTray runs headless: no tray, no config watcher.
func WithoutTray() Option {
	return func(a *Application) { a.tray, a.watch = nil, false }
}

// New creates the application for cfg. Nothing is registered until Start.
func New(cfg *config.Config, version string, log zerolog.Logger, opts ...Option) *Application {
	a := &Application{
		version:    version,
		log:        log.With().Str("component", "app").Logger(),
		newService: hotkey.NewService,
		dialogs:    ui.Dialogs{AppName: AppName},
		cfg:        cfg,
		watch:      true,
		stop:       make(chan struct{}),
	}
	a.notifier = ui.NewNotifier(cfg.UseNotifications, AppName)
	a.tray = ui.NewTray(fmt.Sprintf("%s %s", AppName, version), ui.TrayCallbacks{
		Reload:        a.onReloadConfig,
		OpenConfig:    a.onOpenConfigFile,
		AddHotkey:     a.onAddHotkey,
		AddSecret:     a.onAddSecret,
		ListSecrets:   a.onListSecrets,
		RemoveSecret:  a.onRemoveSecret,
		ShowHotkey:    a.onShowHotkey,
		ShowLastError: a.onShowLastError,
		Quit:          a.onQuit,
	})
	for _, opt := range opts {
		opt(a)
	}
	a.runner = actions.NewRunner(a.notifier, log)
	a.runner.SetSecrets(cfg.GetResolvedSecrets())
	return a
}

// Start creates the hotkey service and registers every enabled hotkey.
// Individual registration failures are reported but do not fail Start.
func (a *Application) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.startServiceLocked(); err != nil {
		return err
	}
	if err := a.manager.Apply(a.cfg.Hotkeys); err != nil {
		a.reportError("Hotkey Registration Issue", err)
	}
	if a.watch && a.cfg.GetConfigPath() != "" {
		w, err := config.Watch(a.cfg.GetConfigPath(), 0, a.onReloadConfig)
		if err != nil {
			a.log.Warn().Err(err).Msg("config file will not be watched")
		} else {
			a.watcher = w
		}
	}
	a.publishStatus()
	return nil
}

func (a *Application) serviceOptions() hotkey.Options {
	opts := a.cfg.HotkeyOptions()
	if exe, err := os.Executable(); err == nil {
		opts.ExecutablePath = exe
	}
	return opts
}

func (a *Application) startServiceLocked() error {
	opts := a.serviceOptions()
	logger := a.log
	opts.Logger = &logger
	svc, err := a.newService(opts)
	if err != nil {
		return fmt.Errorf("start hotkey service: %w", err)
	}
	opts.Logger = nil
	a.svc, a.opts = svc, opts
	a.manager = NewManager(svc, a.runner, a.onActionError, a.log)
	a.log.Info().Str("backend", svc.BackendName()).Msg("hotkey service ready")
	return nil
}

// Run starts the application and blocks in the tray until Quit. Without a
// tray it blocks until Shutdown is called from elsewhere.
func (a *Application) Run() error {
	if err := a.Start(); err != nil {
		return err
	}
	go a.statusLoop()
	go a.stopOnSignal()
	if a.tray != nil {
		a.tray.Run()
	} else {
		<-a.stop
	}
	return a.Shutdown()
}

func (a *Application) stopOnSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case sig := <-sigs:
		a.log.Info().Stringer("signal", sig).Msg("shutting down")
		if a.tray != nil {
			a.tray.Quit()
		} else {
			a.stopOnce.Do(func() { close(a.stop) })
		}
	case <-a.stop:
	}
}

func (a *Application) statusLoop() {
	t := time.NewTicker(statusInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			a.publishStatus()
		case <-a.stop:
			return
		}
	}
}

// Reload re-reads the configuration file, re-registers hotkeys and returns a
// human readable summary of the binding changes. A changed backend setting
// restarts the hotkey service.
func (a *Application) Reload() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.svc == nil {
		return "", errors.New("application is not running")
	}

	newCfg, err := config.Load(a.cfg.GetConfigPath())
	if err != nil {
		return "", err
	}
	if err := newCfg.Validate(); err != nil {
		// invalid entries are skipped by Apply; report them but go on
		a.reportError("Configuration Problems", err)
	}

	before := Bindings(a.cfg.Hotkeys)
	oldCfg := a.cfg
	a.cfg = newCfg
	a.runner.SetSecrets(newCfg.GetResolvedSecrets())
	if n, ok := a.notifier.(interface{ SetEnabled(bool) }); ok {
		n.SetEnabled(newCfg.UseNotifications)
	}

	if opts := a.serviceOptions(); opts != a.opts {
		a.log.Info().Str("backend", string(opts.Backend)).Msg("backend settings changed, restarting hotkey service")
		if err := a.stopServiceLocked(); err != nil {
			a.log.Warn().Err(err).Msg("hotkey service shutdown reported errors")
		}
		if err := a.startServiceLocked(); err != nil {
			a.cfg = oldCfg
			a.publishStatus()
			return "", err
		}
	}

	if err := a.manager.Apply(newCfg.Hotkeys); err != nil {
		a.reportError("Hotkey Registration Issue", err)
	}
	summary := diffutil.Summary(diffutil.Compare(before, Bindings(newCfg.Hotkeys)))
	a.log.Info().Str("summary", summary).Msg("configuration reloaded")
	a.publishStatus()
	return summary, nil
}

// AddHotkey appends h to the configuration file and registers it. Only
// configuration errors are returned; use HotkeyStatus for the outcome.
func (a *Application) AddHotkey(h config.HotkeyConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watcher != nil {
		a.watcher.Pause()
		defer a.watcher.Resume()
	}
	if err := a.cfg.AddHotkey(h); err != nil {
		return err
	}
	if a.manager == nil {
		return nil
	}
	if err := a.manager.Apply(a.cfg.Hotkeys); err != nil {
		a.reportError("Hotkey Registration Issue", err)
	}
	a.publishStatus()
	return nil
}

// Shutdown unregisters everything and releases the backend. It is safe to
// call more than once.
func (a *Application) Shutdown() error {
	a.stopOnce.Do(func() { close(a.stop) })
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	return a.stopServiceLocked()
}

func (a *Application) stopServiceLocked() error {
	if a.svc == nil {
		return nil
	}
	var errs []error
	if err := a.manager.UnregisterAll(); err != nil {
		errs = append(errs, err)
	}
	if err := a.svc.Close(); err != nil {
		errs = append(errs, err)
	}
	a.svc, a.manager = nil, nil
	return errors.Join(errs...)
}

// Status snapshots what the tray shows.
func (a *Application) Status() ui.Status {
	s := ui.Status{LastError: a.LastError()}
	a.mu.Lock()
	svc, m := a.svc, a.manager
	a.mu.Unlock()
	if svc != nil {
		s.Backend = svc.BackendName()
		s.Hotkeys = m.Statuses()
	}
	return s
}

// HotkeyStatus reports the state of one configured hotkey.
func (a *Application) HotkeyStatus(name string) (ui.HotkeyStatus, bool) {
	a.mu.Lock()
	m := a.manager
	a.mu.Unlock()
	if m == nil {
		return ui.HotkeyStatus{}, false
	}
	return m.Status(name)
}

// LastError returns the most recent reported error, if any.
func (a *Application) LastError() string {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	return a.lastErr
}

func (a *Application) publishStatus() {
	if a.tray == nil {
		return
	}
	go func() { a.tray.SetStatus(a.Status()) }()
}

func (a *Application) reportError(title string, err error) {
	msg := err.Error()
	a.errMu.Lock()
	a.lastErr = msg
	a.errMu.Unlock()
	a.log.Warn().Err(err).Msg(title)
	a.notifier.Notify(title, firstLine(msg))
}

func (a *Application) onActionError(name string, err error) {
	a.reportError("Hotkey "+name+" failed", err)
	a.publishStatus()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " (more in the tray)"
	}
	return s
}
