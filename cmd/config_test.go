package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ShowDefaults(t *testing.T) {
	withTempHome(t)

	out, err := executeCommand(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "repository.path")
	assert.Contains(t, out, config.DefaultRepositoryPath)
	assert.Contains(t, out, "transport.backoff")
	assert.Contains(t, out, "2s")
}

func TestConfig_SetPersists(t *testing.T) {
	home := withTempHome(t)

	out, err := executeCommand(t, "config", "set", "log.level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "log.level = debug")

	out, err = executeCommand(t, "config", "set", "transport.backoff", "250ms")
	require.NoError(t, err)
	assert.Contains(t, out, "transport.backoff = 250ms")

	cfg, err := config.LoadFrom(filepath.Join(home, ".config", "save-restore", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.Backoff)

	out, err = executeCommand(t, "-f", "yaml", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfig_CustomFileAndOverrides(t *testing.T) {
	home := withTempHome(t)
	file := filepath.Join(home, "site.yaml")

	_, err := executeCommand(t, "--config", file, "config", "set", "repository.remote", "https://git.example.org/ssr.git")
	require.NoError(t, err)
	assert.FileExists(t, file)

	out, err := executeCommand(t, "--config", file, "--repo", "/srv/ssr", "-f", "json", "config")
	require.NoError(t, err)
	cfg := decodeJSON[config.Config](t, out)
	assert.Equal(t, "/srv/ssr", cfg.Repository.Path)
	assert.Equal(t, "https://git.example.org/ssr.git", cfg.Repository.Remote)
}

func TestConfig_SetErrors(t *testing.T) {
	withTempHome(t)

	_, err := executeCommand(t, "config", "set", "months")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: ssr config set <key> <value>")

	_, err = executeCommand(t, "config", "set", "email", "x@y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "email"`)

	_, err = executeCommand(t, "config", "set", "repository.auto_push", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto_push requires repository.remote")
}

func TestConfig_Keys(t *testing.T) {
	withTempHome(t)

	out, err := executeCommand(t, "config", "keys")
	require.NoError(t, err)
	for _, k := range config.Keys() {
		assert.Contains(t, out, k)
	}
}
