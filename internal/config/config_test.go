package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Repository: RepositoryConfig{Path: "/tmp/repo", DefaultBranch: "master"},
		Identity:   IdentityConfig{Name: "unknown", Email: "saverestore@localhost"},
		Committer:  IdentityConfig{Name: "save-restore", Email: "saverestore@localhost"},
		Log:        LogConfig{Level: "info", Format: "console"},
		Cache:      CacheConfig{Size: 256},
		Transport:  TransportConfig{Backoff: time.Second},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty path", func(c *Config) { c.Repository.Path = " " }, "repository.path must not be empty"},
		{"empty branch", func(c *Config) { c.Repository.DefaultBranch = "" }, "repository.default_branch must not be empty"},
		{"bad remote", func(c *Config) { c.Repository.Remote = "not a remote" }, "neither a URL nor a path"},
		{"auto push without remote", func(c *Config) { c.Repository.AutoPush = true }, "auto_push requires repository.remote"},
		{"bad email", func(c *Config) { c.Identity.Email = "invalid-email" }, "invalid email format for identity.email"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level must be one of"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format must be one of"},
		{"negative cache", func(c *Config) { c.Cache.Size = -1 }, "cache.size must be >= 0"},
		{"negative backoff", func(c *Config) { c.Transport.Backoff = -time.Second }, "transport.backoff must be >= 0"},
	}

	t.Run("valid config passes", func(t *testing.T) {
		cfg := validConfig()
		assert.Empty(t, ValidateConfig(&cfg))
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			issues := ValidateConfig(&cfg)
			require.NotEmpty(t, issues)
			assert.Contains(t, strings.Join(issues, "\n"), tt.want)
		})
	}

	assert.NotEmpty(t, ValidateConfig(nil))
}

func TestValidateConfig_RemoteForms(t *testing.T) {
	for _, remote := range []string{
		"https://git.example.org/saverestore.git",
		"ssh://git@git.example.org/saverestore.git",
		"git@git.example.org:controls/saverestore.git",
		"file:///srv/git/saverestore.git",
		"/srv/git/saverestore.git",
		"~/upstream.git",
	} {
		cfg := validConfig()
		cfg.Repository.Remote = remote
		assert.Empty(t, ValidateConfig(&cfg), remote)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultRepositoryPath, cfg.Repository.Path)
	assert.Equal(t, DefaultBranch, cfg.Repository.DefaultBranch)
	assert.Equal(t, DefaultIdentityName, cfg.Identity.Name)
	assert.Equal(t, DefaultEmail, cfg.Committer.Email)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, DefaultBackoff, cfg.Transport.Backoff)
	assert.Empty(t, ValidateConfig(&cfg))
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := `repository:
  path: /data/saverestore
  remote: https://git.example.org/saverestore.git
  auto_push: true
log:
  level: debug
transport:
  backoff: 500ms
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	t.Setenv("SSR_IDENTITY_NAME", "bugsbunny")
	t.Setenv("SSR_CACHE_SIZE", "32")

	cfg, err := LoadFrom(file)
	require.NoError(t, err)
	assert.Equal(t, "/data/saverestore", cfg.Repository.Path)
	assert.True(t, cfg.Repository.AutoPush)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.Backoff)
	assert.Equal(t, "bugsbunny", cfg.Identity.Name)
	assert.Equal(t, 32, cfg.Cache.Size)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("repository: [unclosed"), 0o644))

	_, err := LoadFrom(file)
	assert.Error(t, err)
}

func TestSaveToAndSetValue(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Repository.Remote = "https://git.example.org/saverestore.git"
	require.NoError(t, SaveTo(file, cfg))

	loaded, err := LoadFrom(file)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	updated, err := SetValue(file, "Transport.Backoff", "5s")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, updated.Transport.Backoff)

	loaded, err = LoadFrom(file)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, loaded.Transport.Backoff)
	assert.Equal(t, cfg.Repository.Remote, loaded.Repository.Remote)

	_, err = SetValue(file, "no.such.key", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")

	_, err = SetValue(file, "log.level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level must be one of")
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "repository.path")
	assert.IsNonDecreasing(t, keys)
}
