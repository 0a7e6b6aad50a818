package config

import (
	"os"
	"path/filepath"
)

const (
	AppName                   = "upwatch"
	DefaultCheckInterval      = 60
	MinCheckInterval          = 30
	DefaultTimeout            = 10
	DefaultTLSExpiryThreshold = 30
	DefaultIncidentLookback   = 1000
	MaxRedirects              = 5

	// ConfigEnv overrides the location of config.yaml.
	ConfigEnv = "UPWATCH_CONFIG"
)

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

func GetDatabasePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName+".db"), nil
}

// GetConfigFilePath returns the config.yaml location, honoring UPWATCH_CONFIG.
func GetConfigFilePath() (string, error) {
	if p, ok := os.LookupEnv(ConfigEnv); ok && p != "" {
		return p, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
