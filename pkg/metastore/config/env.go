package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvPrefix is the prefix read by Load.
const DefaultEnvPrefix = "METASTORE"

// LoadEnv loads .env files into the process environment. Variables already
// set are not overwritten. With no paths it loads ".env" and ignores a
// missing file.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// WithEnv returns c overlaid with environment variables named PREFIX_KEY.
// The key is lowercased and a double underscore nests, so
// METASTORE_CASSANDRA__HOSTS sets cassandra.hosts. Values stay strings; the
// accessors convert them.
func (c Config) WithEnv(prefix string) Config {
	return c.Merge(New(envMap(prefix, os.Environ())))
}

func envMap(prefix string, environ []string) map[string]any {
	out := make(map[string]any)
	want := strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, want) || len(name) == len(want) {
			continue
		}
		path := strings.Split(strings.ToLower(name[len(want):]), "__")
		node := out
		for _, part := range path[:len(path)-1] {
			next, ok := node[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[part] = next
			}
			node = next
		}
		node[path[len(path)-1]] = value
	}
	return out
}

// Load reads an optional config file, loads .env files, and applies
// METASTORE_* overrides. An empty path skips the file.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := New(nil)
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := LoadEnv(envFiles...); err != nil {
		return Config{}, err
	}
	return cfg.WithEnv(DefaultEnvPrefix), nil
}
