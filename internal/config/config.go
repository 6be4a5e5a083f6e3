// Package config loads chiwen configuration using Viper.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file (~/.chiwen/config.yaml unless a path is given), and CHIWEN_*
// environment variables (api.base_url -> CHIWEN_API_BASE_URL).
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/log"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "CHIWEN"

// DirName is the per-user configuration directory under $HOME.
const DirName = ".chiwen"

// Config holds the application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Authz   AuthzConfig   `mapstructure:"authz" yaml:"authz"`

	// path is the file the values were read from, empty when defaults only.
	path string
}

// APIConfig describes the console server.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ProfilePath string        `mapstructure:"profile_path" yaml:"profile_path"`
}

// StorageConfig locates the durable token slot.
type StorageConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase,omitempty"`
	Ephemeral  bool   `mapstructure:"ephemeral" yaml:"ephemeral"`
}

// SessionConfig tunes session restore.
type SessionConfig struct {
	RefreshProfile bool `mapstructure:"refresh_profile" yaml:"refresh_profile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// OutputConfig holds command output settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

// AuthzConfig points at an optional permission table override.
type AuthzConfig struct {
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Path returns the config file the values were loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// TokenFile is the location of the durable token slot.
func (c *Config) TokenFile() string {
	return filepath.Join(c.Storage.Dir, "credentials.json")
}

// Load reads configuration from file and environment. An empty configPath
// searches ~/.chiwen/config.yaml; a missing default file is not an error,
// a missing explicit file is.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, errors.NewConfigUnreadableError(configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigUnreadableError(v.ConfigFileUsed(), err)
	}
	cfg.path = v.ConfigFileUsed()
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Authz.File = expandHome(cfg.Authz.File)
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late and obscurely.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.NewConfigInvalidError("api.base_url", "must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return errors.NewConfigInvalidError("api.timeout", "must be a positive duration such as 30s")
	}
	if !strings.HasPrefix(c.API.ProfilePath, "/") {
		return errors.NewConfigInvalidError("api.profile_path", "must start with /")
	}
	if c.Storage.Dir == "" && !c.Storage.Ephemeral {
		return errors.NewConfigInvalidError("storage.dir", "must be set unless storage.ephemeral is true")
	}
	if !log.ValidLevel(c.Log.Level) {
		return errors.NewConfigInvalidError("log.level", "must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.NewConfigInvalidError("log.format", "must be json or text")
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return errors.NewConfigInvalidError("output.format", "must be text, json or yaml")
	}
	return nil
}

// Values returns every key with its effective value. The storage
// passphrase is masked.
func (c *Config) Values() map[string]string {
	passphrase := ""
	if c.Storage.Passphrase != "" {
		passphrase = "********"
	}
	return map[string]string{
		"api.base_url":            c.API.BaseURL,
		"api.timeout":             c.API.Timeout.String(),
		"api.profile_path":        c.API.ProfilePath,
		"storage.dir":             c.Storage.Dir,
		"storage.passphrase":      passphrase,
		"storage.ephemeral":       strconv.FormatBool(c.Storage.Ephemeral),
		"session.refresh_profile": strconv.FormatBool(c.Session.RefreshProfile),
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"output.format":           c.Output.Format,
		"authz.file":              c.Authz.File,
	}
}

// Get returns the effective value of key.
func (c *Config) Get(key string) (string, error) {
	v, ok := c.Values()[key]
	if !ok {
		return "", errors.NewConfigInvalidError(key, "unknown configuration key")
	}
	return v, nil
}

// Keys returns every known configuration key in sorted order.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set writes a single key into the config file at path, keeping the other
// values already stored there.
func Set(path, key, value string) error {
	if !isKnownKey(key) {
		return errors.NewConfigInvalidError(key, "unknown configuration key")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return errors.NewConfigUnreadableError(path, err)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

// DefaultDir returns ~/.chiwen, or .chiwen when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8090")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.profile_path", "/api/v1/me")
	v.SetDefault("storage.dir", DefaultDir())
	v.SetDefault("storage.passphrase", "")
	v.SetDefault("storage.ephemeral", false)
	v.SetDefault("session.refresh_profile", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.format", "text")
	v.SetDefault("authz.file", "")
}

func isKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
