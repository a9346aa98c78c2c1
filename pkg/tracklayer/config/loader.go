package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile reads a layer configuration file, picking the decoder from
// the file extension (.yaml, .yml, or .json).
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read layer config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("layer config %s: unsupported extension %q", filepath.Base(path), ext)
	}
}

// FromYAML decodes a YAML document into a Config.
func FromYAML(data []byte) (Config, error) {
	return decode("yaml", yaml.Unmarshal, data)
}

// FromJSON decodes a JSON document into a Config.
func FromJSON(data []byte) (Config, error) {
	return decode("json", json.Unmarshal, data)
}

func decode(format string, unmarshal func([]byte, any) error, data []byte) (Config, error) {
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("decode %s layer config: %w", format, err)
	}
	return New(m), nil
}
