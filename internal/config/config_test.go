package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := Default()

	assert.Equal(t, DefaultAPIEndpoint, cfg.APIEndpoint)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 800*time.Millisecond, cfg.PreviewDelay)
	assert.Equal(t, int64(1), cfg.RepoID)
	assert.Equal(t, "state.db", filepath.Base(cfg.StateFile))
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_endpoint: http://localhost:5000/api
timeout: 45s
repo_id: 7
log_level: debug
`), 0o600))

	t.Setenv(RepoIDEnv, "9")
	t.Setenv(StateFileEnv, filepath.Join(dir, "s.db"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", cfg.APIEndpoint)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(9), cfg.RepoID, "env overrides file")
	assert.Equal(t, filepath.Join(dir, "s.db"), cfg.StateFile)
	assert.Equal(t, DefaultPreviewDelay, cfg.PreviewDelay, "unset keys keep defaults")
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Equal(t, DefaultAPIEndpoint, cfg.APIEndpoint)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [oops"), 0o600))

	cfg := Default()
	assert.Error(t, cfg.LoadFile(path))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := Default()
	in.RepoID = 12
	in.Timeout = 10 * time.Second
	require.NoError(t, in.WriteFile(path))

	var out Config
	require.NoError(t, out.LoadFile(path))
	assert.Equal(t, in, out)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "timeout", env: map[string]string{TimeoutEnv: "soon"}},
		{name: "repo id", env: map[string]string{RepoIDEnv: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			assert.Error(t, err)
		})
	}
}

func TestApplyFlags_OnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--api-url", "http://flag/api", "--repo-id", "3", "--timeout", "5s"}))

	cfg := Default()
	cfg.LogLevel = "info"
	require.NoError(t, cfg.ApplyEnv(noEnv))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "http://flag/api", cfg.APIEndpoint)
	assert.Equal(t, int64(3), cfg.RepoID)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel, "unset flag keeps value")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty endpoint", mutate: func(c *Config) { c.APIEndpoint = " " }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "no state file", mutate: func(c *Config) { c.StateFile = "" }},
		{name: "no preview delay", mutate: func(c *Config) { c.PreviewDelay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.StateFile = "/tmp/state.db"
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
