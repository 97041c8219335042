package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Build-time variables injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	// AppName names the per-user directory holding config, cache and logs.
	AppName = "unknproject"

	// FileName is the config file inside the app directory.
	FileName = "config.json"

	envPrefix = "UNKN"
)

// Config holds the loader configuration. Values come from config.json in the
// app directory, overridden by UNKN_* environment variables.
type Config struct {
	// APIEndpoint serves the payload catalog as a JSON array.
	APIEndpoint string `mapstructure:"api_endpoint"`

	// CDNEndpoint and CDNFallbackEndpoint are base URLs; file names are appended.
	CDNEndpoint         string `mapstructure:"cdn_endpoint"`
	CDNFallbackEndpoint string `mapstructure:"cdn_fallback_endpoint"`

	// SkipInjectsDelay removes the pauses between injection steps.
	SkipInjectsDelay bool `mapstructure:"skip_injects_delay"`

	// LowercaseHacks folds catalog names and descriptions to lower case.
	LowercaseHacks bool `mapstructure:"lowercase_hacks"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// HelperX86 and HelperX64 are the remote file names of the manual-map
	// helpers for each architecture slot.
	HelperX86 string `mapstructure:"helper_x86"`
	HelperX64 string `mapstructure:"helper_x64"`

	// FetchRetries is the number of extra attempts per CDN endpoint.
	FetchRetries int `mapstructure:"fetch_retries"`

	// FetchTimeout bounds a single download. Zero means no limit.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// ListenAddr is the address of the local control API.
	ListenAddr string `mapstructure:"listen_addr"`

	// ControlToken, when set, is required in the X-Loader-Token header.
	ControlToken string `mapstructure:"control_token"`

	// DisableRPC turns off presence updates.
	DisableRPC bool `mapstructure:"disable_rpc"`

	dir string
	fs  afero.Fs
	v   *viper.Viper

	watchOnce sync.Once
}

// DefaultDir returns the per-user app directory, falling back to the working
// directory when the platform has no config location.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, AppName)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIEndpoint:         "https://raw.githubusercontent.com/Unkn0Wms/UnknProject/refs/heads/main/resources/Hacklist.html",
		CDNEndpoint:         "https://raw.githubusercontent.com/Unkn0Wms/UnknProject/refs/heads/main/resources/hacks/",
		CDNFallbackEndpoint: "https://raw.githubusercontent.com/Unkn0Wms/UnknProject/refs/heads/main/resources/hacks/",
		SkipInjectsDelay:    false,
		LowercaseHacks:      true,
		LogLevel:            "info",
		HelperX86:           "unknproject.exe",
		HelperX64:           "unknproject.exe",
		FetchRetries:        1,
		FetchTimeout:        2 * time.Minute,
		ListenAddr:          "127.0.0.1:7878",
		dir:                 DefaultDir(),
		fs:                  afero.NewOsFs(),
	}
}

// Load reads the configuration from dir (DefaultDir when empty). A missing
// config file is not an error; defaults apply.
func Load(dir string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), dir)
}

// LoadFs is Load on an arbitrary filesystem.
func LoadFs(fs afero.Fs, dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	v := newViper(fs)
	path := filepath.Join(dir, FileName)
	v.SetConfigFile(path)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.dir = dir
	cfg.fs = fs
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, value := range DefaultConfig().settings() {
		v.SetDefault(key, value)
	}
	return v
}

// settings lists every persisted key.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"api_endpoint":          c.APIEndpoint,
		"cdn_endpoint":          c.CDNEndpoint,
		"cdn_fallback_endpoint": c.CDNFallbackEndpoint,
		"skip_injects_delay":    c.SkipInjectsDelay,
		"lowercase_hacks":       c.LowercaseHacks,
		"log_level":             c.LogLevel,
		"helper_x86":            c.HelperX86,
		"helper_x64":            c.HelperX64,
		"fetch_retries":         c.FetchRetries,
		"fetch_timeout":         c.FetchTimeout.String(),
		"listen_addr":           c.ListenAddr,
		"control_token":         c.ControlToken,
		"disable_rpc":           c.DisableRPC,
	}
}

// Diff returns the keys whose values differ between a and b, mapped to b's
// value.
func Diff(a, b *Config) map[string]any {
	before := a.settings()
	changed := make(map[string]any)
	for key, value := range b.settings() {
		if before[key] != value {
			changed[key] = value
		}
	}
	return changed
}

// Validate checks values that would break the loader at runtime.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.APIEndpoint) == "" {
		errs = append(errs, errors.New("api_endpoint is required"))
	}
	if strings.TrimSpace(c.CDNEndpoint) == "" {
		errs = append(errs, errors.New("cdn_endpoint is required"))
	}
	if c.HelperX86 == "" || c.HelperX64 == "" {
		errs = append(errs, errors.New("helper_x86 and helper_x64 are required"))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch_retries must not be negative, got %d", c.FetchRetries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Dir is the app directory: config file, log file, payload and helper cache.
func (c *Config) Dir() string {
	return c.dir
}

// Path is the location of the config file.
func (c *Config) Path() string {
	return filepath.Join(c.dir, FileName)
}

// Save writes the current values to the config file.
func (c *Config) Save() error {
	fs := c.filesystem()
	if err := fs.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	out := viper.New()
	out.SetFs(fs)
	out.SetConfigType("json")
	for key, value := range c.settings() {
		out.Set(key, value)
	}
	if err := out.WriteConfigAs(c.Path()); err != nil {
		return fmt.Errorf("write config %s: %w", c.Path(), err)
	}
	return nil
}

// Reset restores the defaults and saves them.
func (c *Config) Reset() error {
	d := DefaultConfig()
	c.APIEndpoint = d.APIEndpoint
	c.CDNEndpoint = d.CDNEndpoint
	c.CDNFallbackEndpoint = d.CDNFallbackEndpoint
	c.SkipInjectsDelay = d.SkipInjectsDelay
	c.LowercaseHacks = d.LowercaseHacks
	c.LogLevel = d.LogLevel
	c.HelperX86 = d.HelperX86
	c.HelperX64 = d.HelperX64
	c.FetchRetries = d.FetchRetries
	c.FetchTimeout = d.FetchTimeout
	c.ListenAddr = d.ListenAddr
	c.ControlToken = d.ControlToken
	c.DisableRPC = d.DisableRPC
	return c.Save()
}

// Watch calls onChange with a freshly decoded Config whenever the config file
// is rewritten. Invalid edits are reported through onError and ignored.
// Only one watcher is installed per Config.
func (c *Config) Watch(onChange func(*Config), onError func(error)) {
	if c.v == nil {
		return
	}
	c.watchOnce.Do(func() {
		c.v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			next, err := c.reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			onChange(next)
		})
		c.v.WatchConfig()
	})
}

// reload decodes the watched viper instance into a new Config.
func (c *Config) reload() (*Config, error) {
	next := &Config{}
	if err := c.v.Unmarshal(next); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	next.dir = c.dir
	next.fs = c.fs
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Config) filesystem() afero.Fs {
	if c.fs == nil {
		return afero.NewOsFs()
	}
	return c.fs
}
