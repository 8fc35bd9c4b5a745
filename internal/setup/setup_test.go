package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigPath(t *testing.T) {
	env := map[string]string{"APPDATA": `C:\Users\pat\AppData\Roaming`}
	getenv := func(k string) string { return env[k] }

	path, err := clientConfigPath("darwin", "/Users/pat", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/Users/pat/Library/Application Support/Claude/claude_desktop_config.json", path)

	path, err = clientConfigPath("linux", "/home/pat", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/home/pat/.config/Claude/claude_desktop_config.json", path)

	env["XDG_CONFIG_HOME"] = "/xdg"
	path, err = clientConfigPath("linux", "/home/pat", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/xdg/Claude/claude_desktop_config.json", path)

	_, err = clientConfigPath("plan9", "/home/pat", getenv)
	assert.Error(t, err)
}

func TestRegister_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"theme": "dark",
		"mcpServers": {"other": {"command": "/usr/bin/other"}}
	}`), 0o644))

	binary := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))

	entry, err := Register(configPath, Options{BinaryPath: binary, DataDir: "/var/lib/care"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/care/confirmations.db", entry.Env["PREVENTIVE_CARE_CONFIRMATIONS_SQLITE_PATH"])

	config, err := LoadClientConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, config.MCPServers, "other")
	assert.Equal(t, binary, config.MCPServers[ServerName].Command)
	assert.Contains(t, config.extra, "theme")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Empty(t, status.Issues)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Len(t, status.Issues, 1)

	_, err = Register(configPath, Options{BinaryPath: filepath.Join(dir, "missing")})
	require.NoError(t, err)

	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{"), 0o644))

	_, err := LoadClientConfig(configPath)
	assert.Error(t, err)
}
