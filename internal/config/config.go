package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything the bridge worker consumes from the local machine.
type Config struct {
	BridgeKey    string `yaml:"bridge_key"`
	BackendURL   string `yaml:"backend_url"`
	AnonKey      string `yaml:"anon_key"`
	MachineName  string `yaml:"machine_name"`
	PollInterval int    `yaml:"poll_interval"`
	AutoRestart  bool   `yaml:"auto_restart"`
	ModelsDir    string `yaml:"models_dir"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		PollInterval: 3,
		AutoRestart:  true,
		ModelsDir:    filepath.Join(home, ".pl", "models"),
	}
}

// Path resolves the config file location: $XDG_CONFIG_HOME/pl/config.yaml or
// ~/.config/pl/config.yaml.
func Path() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pl", "config.yaml")
}

// Load reads YAML configuration from path (Path() when empty). A missing file
// yields defaults; a malformed file is an error. Credentials from secrets.env
// and the PL_BRIDGE_KEY / PL_ANON_KEY environment variables take precedence
// over values stored in YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("open config: %w", err)
	}

	bridgeKey, anonKey := Credentials("")
	if bridgeKey != "" {
		cfg.BridgeKey = bridgeKey
	}
	if anonKey != "" {
		cfg.AnonKey = anonKey
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = Default().ModelsDir
	}
	return cfg, nil
}

// Save writes the configuration back to path (Path() when empty), creating
// parent directories as needed.
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Set assigns a named key from its string form, coercing typed keys.
func (c *Config) Set(key, value string) error {
	switch key {
	case "bridge_key":
		c.BridgeKey = value
	case "backend_url":
		c.BackendURL = value
	case "anon_key":
		c.AnonKey = value
	case "machine_name":
		c.MachineName = value
	case "models_dir":
		c.ModelsDir = value
	case "poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("poll_interval must be an integer: %q", value)
		}
		c.PollInterval = n
	case "auto_restart":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto_restart must be a boolean: %q", value)
		}
		c.AutoRestart = b
	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return nil
}

// Get returns the string form of a named key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "bridge_key":
		return c.BridgeKey, nil
	case "backend_url":
		return c.BackendURL, nil
	case "anon_key":
		return c.AnonKey, nil
	case "machine_name":
		return c.MachineName, nil
	case "models_dir":
		return c.ModelsDir, nil
	case "poll_interval":
		return strconv.Itoa(c.PollInterval), nil
	case "auto_restart":
		return strconv.FormatBool(c.AutoRestart), nil
	}
	return "", fmt.Errorf("unknown config key: %q", key)
}

// MaskKey shortens a credential for display: pb_abc...wxyz.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return "***"
	}
	return key[:6] + "..." + key[len(key)-4:]
}
