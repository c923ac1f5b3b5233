package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog/log"

	"github.com/TanaroSch/hotkeyd/internal/hotkey"
)

// Action types understood by the action runner.
const (
	ActionNotify    = "notify"
	ActionClipboard = "clipboard"
	ActionCommand   = "command"
)

// Action describes what happens when a hotkey fires.
type Action struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Secret  string   `json:"secret,omitempty"` // keyring-managed value used instead of Text
	Paste   bool     `json:"paste,omitempty"`  // simulate a paste after filling the clipboard
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// HotkeyConfig is one configured global shortcut.
type HotkeyConfig struct {
	Name          string  `json:"name"`
	Keys          string  `json:"keys"`
	Description   string  `json:"description,omitempty"`
	Enabled       bool    `json:"enabled"`
	Action        Action  `json:"action"`
	ReleaseAction *Action `json:"release_action,omitempty"`
}

// Label is what brokers and the tray show for the hotkey.
func (h HotkeyConfig) Label() string {
	if h.Description != "" {
		return h.Description
	}
	return h.Name
}

// Config holds the application configuration
type Config struct {
	UseNotifications   bool              `json:"use_notifications"`
	Backend            string            `json:"backend,omitempty"`
	DebounceMs         int               `json:"debounce_ms,omitempty"`
	BrokerTimeoutMs    int               `json:"broker_timeout_ms,omitempty"`
	OrganizationDomain string            `json:"organization_domain,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty"`
	LogLevel           string            `json:"log_level,omitempty"`
	LogDir             string            `json:"log_dir,omitempty"`
	Hotkeys            []HotkeyConfig    `json:"hotkeys"`
	Secrets            map[string]string `json:"secrets,omitempty"` // logical name -> "managed"

	// runtime state
	configPath      string
	keyringService  string
	resolvedSecrets map[string]string
}

const (
	DefaultKeyringService = "hotkeyd"
	DefaultFileName       = "config.json"

	secretManaged = "managed"
)

// OpenKeyring opens the secret store for service. Tests replace it.
var OpenKeyring = func(service string) (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.WinCredBackend,
		},
		LibSecretCollectionName:  "login",
		KWalletAppID:             service,
		KWalletFolder:            service,
		PassPrefix:               service,
		WinCredPrefix:            service,
		KeychainTrustApplication: true,
	})
}

// GetConfigPath returns the path to the configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetResolvedSecrets returns the secrets loaded from the keyring.
func (c *Config) GetResolvedSecrets() map[string]string {
	if c.resolvedSecrets == nil {
		return make(map[string]string)
	}
	return c.resolvedSecrets
}

// DebounceDelay returns the configured release debounce window, zero for the default.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// BrokerTimeout returns the configured broker round-trip bound, zero for the default.
func (c *Config) BrokerTimeout() time.Duration {
	return time.Duration(c.BrokerTimeoutMs) * time.Millisecond
}

// HotkeyOptions converts the backend related settings.
func (c *Config) HotkeyOptions() hotkey.Options {
	return hotkey.Options{
		Backend:            hotkey.BackendKind(strings.ToLower(c.Backend)),
		DebounceDelay:      c.DebounceDelay(),
		BrokerTimeout:      c.BrokerTimeout(),
		OrganizationDomain: c.OrganizationDomain,
		ApplicationName:    c.ApplicationName,
	}
}

// Load reads and parses the configuration file, creating a default one when
// it does not exist, and resolves managed secrets from the keyring.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", configPath).Msg("config file not found, creating default")
		if createErr := CreateDefaultConfig(configPath); createErr != nil {
			return nil, fmt.Errorf("config file not found and failed to create default '%s': %w", configPath, createErr)
		}
		data, err = os.ReadFile(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", configPath, err)
	}
	cfg.configPath = configPath
	cfg.loadSecrets()
	return cfg, nil
}

// Parse decodes config JSON without touching the keyring.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.keyringService = DefaultKeyringService
	cfg.resolvedSecrets = make(map[string]string)
	return &cfg, nil
}

func (c *Config) loadSecrets() {
	if len(c.Secrets) == 0 {
		log.Debug().Msg("no secrets defined, skipping keyring load")
		return
	}
	kr, err := OpenKeyring(c.keyringService)
	if err != nil {
		log.Warn().Err(err).Str("service", c.keyringService).Msg("failed to open keyring, secrets will not be loaded")
		return
	}
	for name := range c.Secrets {
		item, err := kr.Get(name)
		switch {
		case err == nil:
			c.resolvedSecrets[name] = string(item.Data)
			log.Debug().Str("secret", name).Msg("secret loaded")
		case errors.Is(err, keyring.ErrKeyNotFound):
			log.Warn().Str("secret", name).Msg("secret not found in keyring, hotkeys using it will fail")
		default:
			log.Error().Err(err).Str("secret", name).Msg("failed to read secret")
		}
	}
}

// Validate checks the settings that would otherwise only fail at
// registration time. It reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch hotkey.BackendKind(strings.ToLower(c.Backend)) {
	case "", hotkey.BackendAuto, hotkey.BackendX11, hotkey.BackendKGlobalAccel, hotkey.BackendNative:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("debounce_ms must not be negative"))
	}
	if c.BrokerTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("broker_timeout_ms must not be negative"))
	}

	names := make(map[string]bool)
	for i, h := range c.Hotkeys {
		where := fmt.Sprintf("hotkeys[%d]", i)
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else if names[h.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", where, h.Name))
		}
		names[h.Name] = true
		if _, err := hotkey.ParseKeySpec(h.Keys); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if err := c.validateAction(h.Action); err != nil {
			errs = append(errs, fmt.Errorf("%s: action: %w", where, err))
		}
		if h.ReleaseAction != nil {
			if err := c.validateAction(*h.ReleaseAction); err != nil {
				errs = append(errs, fmt.Errorf("%s: release_action: %w", where, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateAction(a Action) error {
	switch a.Type {
	case ActionNotify:
	case ActionClipboard:
		if a.Secret != "" {
			if _, ok := c.Secrets[a.Secret]; !ok {
				return fmt.Errorf("unknown secret %q", a.Secret)
			}
		}
	case ActionCommand:
		if a.Command == "" {
			return fmt.Errorf("command is required")
		}
	default:
		return fmt.Errorf("unknown type %q", a.Type)
	}
	return nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.Secrets == nil {
		c.Secrets = make(map[string]string)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0o600)
}

// AddHotkey appends h and saves. Names must be unique.
func (c *Config) AddHotkey(h HotkeyConfig) error {
	for _, existing := range c.Hotkeys {
		if existing.Name == h.Name {
			return fmt.Errorf("a hotkey named %q already exists", h.Name)
		}
	}
	if _, err := hotkey.ParseKeySpec(h.Keys); err != nil {
		return err
	}
	if err := c.validateAction(h.Action); err != nil {
		return err
	}
	c.Hotkeys = append(c.Hotkeys, h)
	return c.Save()
}

// EnabledHotkeys returns the hotkeys that should be registered.
func (c *Config) EnabledHotkeys() []HotkeyConfig {
	var out []HotkeyConfig
	for _, h := range c.Hotkeys {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

// AddSecretReference stores value in the keyring and marks name as managed.
func (c *Config) AddSecretReference(name, value string) error {
	kr, err := OpenKeyring(c.keyringService)
	if err != nil {
		return fmt.Errorf("failed to open keyring for service '%s': %w", c.keyringService, err)
	}
	err = kr.Set(keyring.Item{
		Key:         name,
		Data:        []byte(value),
		Label:       fmt.Sprintf("Secret for %s used by %s", name, c.keyringService),
		Description: "Managed by hotkeyd",
	})
	if err != nil {
		return fmt.Errorf("failed to store secret '%s' in keyring: %w", name, err)
	}
	if c.Secrets == nil {
		c.Secrets = make(map[string]string)
	}
	c.Secrets[name] = secretManaged
	// the value itself is picked up by the next reload
	return c.Save()
}

// RemoveSecretReference deletes name from the keyring and the config.
func (c *Config) RemoveSecretReference(name string) error {
	kr, err := OpenKeyring(c.keyringService)
	if err != nil {
		return fmt.Errorf("failed to open keyring for service '%s': %w", c.keyringService, err)
	}
	switch err := kr.Remove(name); {
	case err == nil:
		log.Info().Str("secret", name).Msg("secret deleted from keyring")
	case errors.Is(err, keyring.ErrKeyNotFound):
		log.Info().Str("secret", name).Msg("secret was not in keyring, removing reference")
	default:
		log.Warn().Err(err).Str("secret", name).Msg("failed to delete secret from keyring")
	}
	delete(c.Secrets, name)
	return c.Save()
}

// GetSecretNames returns the managed secret names, sorted.
func (c *Config) GetSecretNames() []string {
	names := make([]string, 0, len(c.Secrets))
	for name := range c.Secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		UseNotifications: true,
		Backend:          string(hotkey.BackendAuto),
		DebounceMs:       int(hotkey.DefaultDebounceDelay / time.Millisecond),
		BrokerTimeoutMs:  int(hotkey.DefaultBrokerTimeout / time.Millisecond),
		ApplicationName:  "hotkeyd",
		LogLevel:         "info",
		Secrets:          make(map[string]string),
		Hotkeys: []HotkeyConfig{
			{
				Name:        "hello",
				Keys:        "ctrl+shift+h",
				Description: "Say hello",
				Enabled:     true,
				Action:      Action{Type: ActionNotify, Text: "Hello from hotkeyd"},
			},
			{
				Name:        "signature",
				Keys:        "ctrl+alt+s",
				Description: "Copy e-mail signature",
				Enabled:     false,
				Action:      Action{Type: ActionClipboard, Text: "Best regards"},
			},
		},
	}
}

// CreateDefaultConfig writes the default configuration unless configPath exists.
func CreateDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error checking config path '%s': %w", configPath, err)
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config to JSON: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write default config file '%s': %w", configPath, err)
	}
	log.Info().Str("path", configPath).Msg("default configuration file created")
	return nil
}
