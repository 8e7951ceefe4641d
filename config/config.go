package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "gochat"
	// DefaultServerPort is the local API server port when no override exists.
	DefaultServerPort = 3100
	// configFileName is the persisted configuration file.
	configFileName = "config.json"
)

// AppConfig contains persistent local application settings.
//
// ServerMode controls whether this process runs the embedded API server
// ("embedded") or connects to one that is already running ("remote", with
// APIBaseURL pointing at it).
type AppConfig struct {
	InstallID       string `json:"install_id"`
	DisplayHostName string `json:"display_host_name"`
	ServerMode      string `json:"server_mode"`
	ServerPort      int    `json:"server_port"`
	APIBaseURL      string `json:"api_base_url"`
	AdvertiseServer bool   `json:"advertise_server"`
}

const (
	// ServerModeEmbedded starts the API server inside this process.
	ServerModeEmbedded = "embedded"
	// ServerModeRemote connects to an API server elsewhere.
	ServerModeRemote = "remote"
)

// ResolveDataDir returns the OS-aware app data directory.
//
// If GOCHAT_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv("GOCHAT_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// EnsureDataDirectories creates the app data directory layout if needed.
func EnsureDataDirectories(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create directory %q: %w", dataDir, err)
	}
	return nil
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *AppConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate ensures directories and config exist, then returns both.
func LoadOrCreate() (*AppConfig, string, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	if err := EnsureDataDirectories(dataDir); err != nil {
		return nil, "", err
	}

	cfgPath := ConfigPath(dataDir)
	cfg, err := Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}

		cfg = defaultConfig()
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}

		return cfg, cfgPath, nil
	}

	if normalizeDefaults(cfg) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	}

	return cfg, cfgPath, nil
}

func defaultConfig() *AppConfig {
	hostName := "GoChat"
	if host, err := os.Hostname(); err == nil && host != "" {
		hostName = host
	}

	return &AppConfig{
		InstallID:       uuid.NewString(),
		DisplayHostName: hostName,
		ServerMode:      ServerModeEmbedded,
		ServerPort:      DefaultServerPort,
		APIBaseURL:      fmt.Sprintf("http://localhost:%d/api", DefaultServerPort),
		AdvertiseServer: true,
	}
}

func normalizeDefaults(cfg *AppConfig) bool {
	updated := false

	if cfg.InstallID == "" {
		cfg.InstallID = uuid.NewString()
		updated = true
	}

	if cfg.DisplayHostName == "" {
		hostName := "GoChat"
		if host, err := os.Hostname(); err == nil && host != "" {
			hostName = host
		}
		cfg.DisplayHostName = hostName
		updated = true
	}

	switch cfg.ServerMode {
	case ServerModeEmbedded, ServerModeRemote:
	default:
		// Configs written before the remote mode existed carry no mode.
		cfg.ServerMode = ServerModeEmbedded
		updated = true
	}

	if cfg.ServerPort <= 0 {
		cfg.ServerPort = DefaultServerPort
		updated = true
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)
		updated = true
	}

	return updated
}
