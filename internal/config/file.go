package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration (config.yaml).
type File struct {
	Log           LogConfig          `yaml:"log"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	History       HistoryConfig      `yaml:"history"`
	SSH           SSHConfig          `yaml:"ssh"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "console"
	OutputPath string `yaml:"output_path"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type NotificationConfig struct {
	Desktop  bool        `yaml:"desktop"`
	Email    EmailConfig `yaml:"email"`
	Webhooks []string    `yaml:"webhooks"`
}

type EmailConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	TLS        bool     `yaml:"tls"`
	Recipients []string `yaml:"recipients"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.From != ""
}

type HistoryConfig struct {
	IncidentLookback int `yaml:"incident_lookback"`
}

type SSHConfig struct {
	Address        string `yaml:"address"`
	HostKeyPath    string `yaml:"host_key_path"`
	AuthorizedKeys string `yaml:"authorized_keys"`
}

func Default() *File {
	return &File{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
		Notifications: NotificationConfig{
			Desktop: true,
			Email: EmailConfig{
				Port: 587,
			},
		},
		History: HistoryConfig{
			IncidentLookback: DefaultIncidentLookback,
		},
		SSH: SSHConfig{
			Address:        ":23234",
			HostKeyPath:    ".ssh/id_ed25519",
			AuthorizedKeys: "authorized_keys",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults; a malformed one is an error.
func Load(path string) (*File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.History.IncidentLookback <= 0 {
		cfg.History.IncidentLookback = DefaultIncidentLookback
	}
	if cfg.Notifications.Email.Port == 0 {
		cfg.Notifications.Email.Port = 587
	}

	return cfg, nil
}
