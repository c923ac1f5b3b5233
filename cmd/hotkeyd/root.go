package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TanaroSch/hotkeyd/internal/app"
	"github.com/TanaroSch/hotkeyd/internal/config"
	"github.com/TanaroSch/hotkeyd/internal/hotkey"
	"github.com/TanaroSch/hotkeyd/internal/logging"
)

type rootFlags struct {
	configPath string
	debug      bool
	backend    string
}

// newService is replaced in tests.
var newService = hotkey.NewService

// NewRootCmd builds the hotkeyd command tree. Without a subcommand it runs
// the daemon.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   app.AppName,
		Short: "Global hotkey daemon",
		Long: `hotkeyd registers system-wide keyboard shortcuts and runs an action
(notification, clipboard text or command) when one is pressed.

On X11 it grabs keys directly, on KDE Plasma it goes through KGlobalAccel,
elsewhere it uses the platform's native hotkey API.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(flags)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultFileName, "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "force a backend: auto, x11, kglobalaccel or native")

	rootCmd.AddCommand(NewCheckCmd(flags))
	rootCmd.AddCommand(NewActionsCmd(flags))
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

func runDaemon(flags *rootFlags) error {
	cfg, err := loadConfig(flags, true)
	if err != nil {
		return err
	}
	logger, err := initLogging(flags, cfg)
	if err != nil {
		return err
	}
	defer logging.Close()

	logger.Info().Str("version", version).Str("config", cfg.GetConfigPath()).Msg("hotkeyd starting")
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("configuration has problems, affected hotkeys are skipped")
	}
	return app.New(cfg, version, logger).Run()
}

// loadConfig reads the configuration named by the flags. The daemon creates
// a default file; the one-shot commands fall back to built-in defaults.
func loadConfig(flags *rootFlags, create bool) (*config.Config, error) {
	cfg := config.Default()
	_, statErr := os.Stat(flags.configPath)
	if create || !errors.Is(statErr, fs.ErrNotExist) {
		var err error
		if cfg, err = config.Load(flags.configPath); err != nil {
			return nil, err
		}
	}
	if flags.backend != "" {
		cfg.Backend = strings.ToLower(flags.backend)
		if err := validBackend(cfg.Backend); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func validBackend(name string) error {
	switch hotkey.BackendKind(name) {
	case hotkey.BackendAuto, hotkey.BackendX11, hotkey.BackendKGlobalAccel, hotkey.BackendNative:
		return nil
	}
	return fmt.Errorf("unknown backend %q (want auto, x11, kglobalaccel or native)", name)
}

func initLogging(flags *rootFlags, cfg *config.Config) (zerolog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if flags.debug {
		level = zerolog.DebugLevel
	}
	dir, err := logging.ResolveDir(cfg.LogDir)
	if err != nil {
		return zerolog.Logger{}, err
	}
	logger, err := logging.Init(level, dir)
	if err != nil {
		return zerolog.Logger{}, err
	}
	log.Debug().Str("dir", dir).Msg("logging initialized")
	return logger, nil
}

// quietLogger is used by the one-shot commands: warnings on stderr only.
func quietLogger(cmd *cobra.Command, flags *rootFlags) *zerolog.Logger {
	level := zerolog.WarnLevel
	if flags.debug {
		level = zerolog.DebugLevel
	}
	l := logging.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}, level)
	return &l
}

// openService starts a hotkey service for a one-shot command.
func openService(cmd *cobra.Command, flags *rootFlags) (*hotkey.Service, error) {
	cfg, err := loadConfig(flags, false)
	if err != nil {
		return nil, err
	}
	opts := cfg.HotkeyOptions()
	opts.Logger = quietLogger(cmd, flags)
	return newService(opts)
}
