// Package setup registers the preventive care MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under in the client configuration.
const ServerName = "preventive-care"

// BinaryName is the MCP server executable.
const BinaryName = "preventive-care-mcp"

// ClientConfig represents the desktop client configuration file structure.
// Unknown top-level keys are preserved.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`

	extra map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for registration.
type Options struct {
	BinaryPath string // Path to the server binary; searched for when empty
	ConfigFile string // Server configuration file passed through PREVENTIVE_CARE_CONFIG
	DataDir    string // Directory for the SQLite confirmation store
}

// ClientConfigPath returns the desktop client's config file for the current platform.
func ClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return clientConfigPath(runtime.GOOS, home, os.Getenv)
}

func clientConfigPath(goos, home string, getenv func(string) string) (string, error) {
	var configDir string
	switch goos {
	case "darwin":
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig loads the client configuration. A missing file yields an empty one.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if servers, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	return config, nil
}

// SaveClientConfig writes the configuration, creating the directory if needed.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the client configuration at configPath.
func Register(configPath string, opts Options) (*MCPServerConfig, error) {
	config, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return nil, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath, Env: make(map[string]string)}
	if opts.ConfigFile != "" {
		entry.Env["PREVENTIVE_CARE_CONFIG"] = opts.ConfigFile
	}
	if opts.DataDir != "" {
		entry.Env["PREVENTIVE_CARE_CONFIRMATIONS_SQLITE_PATH"] = filepath.Join(opts.DataDir, "confirmations.db")
	}

	config.MCPServers[ServerName] = entry
	if err := SaveClientConfig(configPath, config); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Status reports how the server is registered in the client configuration at configPath.
type Status struct {
	ConfigPath string
	Registered bool
	Command    string
	Issues     []string
}

// GetStatus checks the registration and that the registered binary exists.
func GetStatus(configPath string) (*Status, error) {
	config, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: configPath}
	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered", ServerName))
		return status, nil
	}

	status.Registered = true
	status.Command = entry.Command
	info, err := os.Stat(entry.Command)
	switch {
	case os.IsNotExist(err):
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot inspect server binary: %v", err))
	case info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
	}
	return status, nil
}

// findBinary looks for the server binary on PATH and in common install locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + BinaryName,
		"./bin/" + BinaryName,
		filepath.Join(home, ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary %q not found in common locations", BinaryName)
}
