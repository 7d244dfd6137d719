// Package config loads the client configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// VELOXCASE_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	ConfigFileEnv  = "VELOXCASE_CONFIG"
	APIEndpointEnv = "VELOXCASE_API_URL"
	TimeoutEnv     = "VELOXCASE_TIMEOUT"
	LogFileEnv     = "VELOXCASE_LOG_FILE"
	LogLevelEnv    = "VELOXCASE_LOG_LEVEL"
	StateFileEnv   = "VELOXCASE_STATE_FILE"
	RepoIDEnv      = "VELOXCASE_REPO_ID"
)

const (
	appDirName = "veloxcase"

	DefaultAPIEndpoint    = "https://quickcase-api.onrender.com/api"
	DefaultTimeout        = 30 * time.Second
	DefaultLogLevel       = "warning"
	DefaultRepoID         = 1
	DefaultPreviewDelay   = 800 * time.Millisecond
	DefaultSupportContact = "selim@selimerdinc.com"
)

// Config is the client configuration.
type Config struct {
	APIEndpoint string        `yaml:"api_endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	// StateFile is the bbolt database holding the token and theme.
	StateFile string `yaml:"state_file"`
	// RepoID is the repository selected when the dashboard opens.
	RepoID         int64         `yaml:"repo_id"`
	PreviewDelay   time.Duration `yaml:"preview_delay"`
	SupportContact string        `yaml:"support_contact"`
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// FilePath returns the config file location, honoring VELOXCASE_CONFIG.
func FilePath() (string, error) {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the built-in configuration. File paths live in Dir when it
// can be resolved.
func Default() Config {
	cfg := Config{
		APIEndpoint:    DefaultAPIEndpoint,
		Timeout:        DefaultTimeout,
		LogLevel:       DefaultLogLevel,
		RepoID:         DefaultRepoID,
		PreviewDelay:   DefaultPreviewDelay,
		SupportContact: DefaultSupportContact,
	}
	if dir, err := Dir(); err == nil {
		cfg.LogFile = filepath.Join(dir, "veloxcase.log")
		cfg.StateFile = filepath.Join(dir, "state.db")
	}
	return cfg
}

// Load returns defaults overlaid with the file at path (if it exists) and the
// environment. An empty path means FilePath().
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := FilePath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := cfg.LoadFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// WriteFile stores c as YAML at path, creating the directory.
func (c Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overlays VELOXCASE_* variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(APIEndpointEnv); ok && v != "" {
		c.APIEndpoint = v
	}
	if v, ok := lookup(TimeoutEnv); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", TimeoutEnv, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(LogFileEnv); ok {
		c.LogFile = v
	}
	if v, ok := lookup(LogLevelEnv); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(StateFileEnv); ok && v != "" {
		c.StateFile = v
	}
	if v, ok := lookup(RepoIDEnv); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", RepoIDEnv, err)
		}
		c.RepoID = id
	}
	return nil
}

// Flag names registered by RegisterFlags.
const (
	FlagConfig    = "config"
	FlagAPIURL    = "api-url"
	FlagTimeout   = "timeout"
	FlagLogFile   = "log-file"
	FlagLogLevel  = "log-level"
	FlagStateFile = "state-file"
	FlagRepoID    = "repo-id"
)

// RegisterFlags adds the configuration flags to fs. Values are applied with
// ApplyFlags after parsing so that unset flags do not mask the file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "config file (default $XDG_CONFIG_HOME/veloxcase/config.yaml)")
	fs.String(FlagAPIURL, "", "API base URL")
	fs.Duration(FlagTimeout, 0, "HTTP request timeout")
	fs.String(FlagLogFile, "", "log file path")
	fs.String(FlagLogLevel, "", "log level (debug, info, warning, error)")
	fs.String(FlagStateFile, "", "state database path")
	fs.Int64(FlagRepoID, 0, "repository id opened on the dashboard")
}

// ApplyFlags overlays every flag that was set on the command line. Flags
// that were never registered on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		return fs.Lookup(name) != nil && fs.Changed(name)
	}

	strFlags := map[string]*string{
		FlagAPIURL:    &c.APIEndpoint,
		FlagLogFile:   &c.LogFile,
		FlagLogLevel:  &c.LogLevel,
		FlagStateFile: &c.StateFile,
	}
	for name, dst := range strFlags {
		if !changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if changed(FlagTimeout) {
		d, err := fs.GetDuration(FlagTimeout)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if changed(FlagRepoID) {
		id, err := fs.GetInt64(FlagRepoID)
		if err != nil {
			return err
		}
		c.RepoID = id
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIEndpoint) == "" {
		return errors.New("api_endpoint must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warning", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.StateFile == "" {
		return errors.New("state_file must not be empty")
	}
	if c.PreviewDelay <= 0 {
		return fmt.Errorf("preview_delay must be positive, got %s", c.PreviewDelay)
	}
	return nil
}
