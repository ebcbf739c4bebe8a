package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Credential environment variables. They beat secrets.env, which in turn
// beats the YAML config, so a key never has to be written to disk in clear.
const (
	EnvBridgeKey = "PL_BRIDGE_KEY"
	EnvAnonKey   = "PL_ANON_KEY"
)

// Credentials resolves the bridge and anon keys from secrets.env (path, or
// the default location when empty) merged with the process environment.
// Empty returns mean the YAML values stand.
func Credentials(path string) (bridgeKey, anonKey string) {
	secrets, _ := LoadSecretsEnv(path)
	bridgeKey = secrets[EnvBridgeKey]
	anonKey = secrets[EnvAnonKey]
	if v := os.Getenv(EnvBridgeKey); v != "" {
		bridgeKey = v
	}
	if v := os.Getenv(EnvAnonKey); v != "" {
		anonKey = v
	}
	return bridgeKey, anonKey
}

// LoadSecretsEnv reads $XDG_CONFIG_HOME/pl/secrets.env (or ~/.config/pl/secrets.env)
// and returns key/value pairs. Lines starting with # are ignored. Format: KEY=VALUE
func LoadSecretsEnv(path string) (map[string]string, error) {
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "pl", "secrets.env")
	}
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}, nil // not fatal if missing
	}
	defer f.Close()
	out := map[string]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.TrimSpace(line[i+1:])
			out[k] = v
		}
	}
	return out, nil
}
