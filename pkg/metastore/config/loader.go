package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RootKey is the section a shared application file may nest the store
// settings under.
const RootKey = "metastore"

type decoder func([]byte) (map[string]any, error)

var decoders = map[string]decoder{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": decodeJSON,
}

// FromFile reads store settings from a .yaml, .yml or .json file. A file
// whose only top-level key is RootKey yields that section.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("config %s: unsupported config file extension: %s", path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	m, err := decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return New(unwrapRoot(m)), nil
}

// FromYAML parses a YAML document. An empty document is an empty Config.
func FromYAML(data []byte) (Config, error) {
	m, err := decodeYAML(data)
	if err != nil {
		return Config{}, err
	}
	return New(unwrapRoot(m)), nil
}

// FromJSON parses a JSON object.
func FromJSON(data []byte) (Config, error) {
	m, err := decodeJSON(data)
	if err != nil {
		return Config{}, err
	}
	return New(unwrapRoot(m)), nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return m, nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return m, nil
}

func unwrapRoot(m map[string]any) map[string]any {
	if len(m) != 1 {
		return m
	}
	switch section := m[RootKey].(type) {
	case map[string]any:
		return section
	case map[any]any:
		out := make(map[string]any, len(section))
		for k, v := range section {
			out[fmt.Sprint(k)] = v
		}
		return out
	}
	return m
}
