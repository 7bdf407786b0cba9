package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns a fresh copy of the built-in configuration.
func Default() *Config {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		panic("config: embedded default is broken: " + err.Error())
	}
	return cfg
}

// Load reads, decodes and validates the YAML file at path. Keys missing from
// the file keep their built-in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML data layered over the defaults.
func Parse(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads YAML from r over the built-in defaults and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	if err := decodeStrict(bytes.NewReader(defaultYAML), &cfg); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	if err := decodeStrict(r, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(r io.Reader, out *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Fingerprint hashes the canonical YAML form of the configuration. Two
// configurations with the same fingerprint drive identical simulations.
func (c *Config) Fingerprint() uint64 {
	data, err := c.Marshal()
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
