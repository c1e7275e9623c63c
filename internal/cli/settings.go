package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imdario/mergo"

	"mcping/internal/ping"
)

type Settings struct {
	ProtocolVersion      int    `json:"protocol_version"`
	ConnectTimeoutMillis int    `json:"connect_timeout_millis"`
	ReadTimeoutMillis    int    `json:"read_timeout_millis"`
	BedrockLocalPort     int    `json:"bedrock_local_port"`
	EnableSRV            bool   `json:"enable_srv"`
	Verbose              bool   `json:"verbose"`
	SaveResults          bool   `json:"save_results"`
	ResultsPath          string `json:"results_path"`
}

func defaultSettings() Settings {
	return Settings{
		ProtocolVersion:      ping.DefaultProtocolVersion,
		ConnectTimeoutMillis: int(ping.DefaultConnectTimeout / time.Millisecond),
		ReadTimeoutMillis:    int(ping.DefaultReadTimeout / time.Millisecond),
		BedrockLocalPort:     0,
		EnableSRV:            true,
		Verbose:              false,
		SaveResults:          false,
		ResultsPath:          defaultResultsPath(),
	}
}

// loadSettings reads path, or the per-user settings file when path is empty.
// A missing file yields the defaults.
func loadSettings(path string) (Settings, error) {
	if path == "" {
		var err error
		path, err = settingsPath()
		if err != nil {
			return defaultSettings(), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return defaultSettings(), err
	}
	settings := defaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return defaultSettings(), fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, nil
}

func saveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func settingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcping", "settings.json"), nil
}

func defaultResultsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "mcping-results.txt"
	}
	return filepath.Join(dir, "mcping", "results.txt")
}

// withOverrides fills every unset field of overrides from s. Zero values in
// overrides count as unset; boolean switches are applied by the caller.
func (s Settings) withOverrides(overrides Settings) (Settings, error) {
	if err := mergo.Merge(&overrides, s); err != nil {
		return s, err
	}
	overrides.EnableSRV = s.EnableSRV
	overrides.Verbose = s.Verbose
	overrides.SaveResults = s.SaveResults
	return overrides, nil
}

func (s Settings) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMillis) * time.Millisecond
}

func (s Settings) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMillis) * time.Millisecond
}

func (s Settings) ClientConfig() ping.Config {
	config := ping.DefaultConfig()
	config.ProtocolVersion = int32(s.ProtocolVersion)
	config.ConnectTimeout = s.ConnectTimeout()
	config.ReadTimeout = s.ReadTimeout()
	config.BedrockLocalPort = s.BedrockLocalPort
	return config
}

func (s Settings) Validate() error {
	if s.ProtocolVersion < 0 {
		return fmt.Errorf("protocol version cannot be negative")
	}
	if s.ConnectTimeoutMillis <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if s.ReadTimeoutMillis <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if s.BedrockLocalPort < 0 || s.BedrockLocalPort > 65535 {
		return fmt.Errorf("bedrock local port out of range (0-65535)")
	}
	return nil
}
