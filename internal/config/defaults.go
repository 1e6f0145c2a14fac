package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/ekisa-team/ttsapi/internal/envvar"
	"github.com/ekisa-team/ttsapi/internal/xfs"
)

const (
	defaultHTTPPort       = 5000
	defaultGRPCPort       = 5001
	defaultEnginePort     = 5100
	defaultReadyTimeout   = 2 * time.Minute
	defaultRequestTimeout = 5 * time.Minute
	defaultFilesystemRoot = "filesystem"
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued setting.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort()
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = DefaultGRPCPort()
	}
	if c.Storage.FilesystemRoot == "" {
		c.Storage.FilesystemRoot = DefaultFilesystemRoot()
	}
	if c.Storage.ModelsDir == "" {
		c.Storage.ModelsDir = DefaultModelsPath()
	}
	if c.Engine.Port == 0 {
		c.Engine.Port = defaultEnginePort
	}
	if c.Engine.URL == "" {
		c.Engine.URL = "http://localhost:" + strconv.Itoa(c.Engine.Port)
	}
	if c.Engine.ReadyTimeout == 0 {
		c.Engine.ReadyTimeout = defaultReadyTimeout
	}
	if c.Engine.RequestTimeout == 0 {
		c.Engine.RequestTimeout = defaultRequestTimeout
	}
}

// DefaultHTTPPort returns the HTTP port from TTSAPI_SERVER_HTTP_PORT, or 5000.
func DefaultHTTPPort() int {
	return portFromEnv(envvar.TTSAPIServerHTTPPort, defaultHTTPPort)
}

// DefaultGRPCPort returns the gRPC port from TTSAPI_SERVER_GRPC_PORT, or 5001.
func DefaultGRPCPort() int {
	return portFromEnv(envvar.TTSAPIServerGRPCPort, defaultGRPCPort)
}

func portFromEnv(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return fallback
}

// DefaultFilesystemRoot returns the filesystem store root from TTSAPI_FILESYSTEM_ROOT, or ./filesystem.
func DefaultFilesystemRoot() string {
	if p := os.Getenv(envvar.TTSAPIFilesystemRoot); p != "" {
		return xfs.ExpandTilde(p)
	}
	return defaultFilesystemRoot
}

// DefaultConfigPath returns the default path for the ttsapi config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ttsapi", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "ttsapi")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "ttsapi")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "ttsapi")
		}
		return filepath.Join(home, ".config", "ttsapi")
	}
}

// DefaultModelsPath returns the download cache for known models.
// TTSAPI_MODELS_PATH takes precedence over the per-OS cache directory.
func DefaultModelsPath() string {
	if p := os.Getenv(envvar.TTSAPIModelsPath); p != "" {
		return xfs.ExpandTilde(p)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ttsapi", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "ttsapi", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "ttsapi", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "ttsapi", "models")
		}
		return filepath.Join(home, ".cache", "ttsapi", "models")
	}
}
