package compose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters that hosts usually keep in a file.
type Config struct {
	Monitoring    bool   `json:"monitoring" yaml:"monitoring" toml:"monitoring"`
	LogLevel      string `json:"log_level" yaml:"log_level" toml:"log_level"`
	ReplacePolicy string `json:"replace_policy" yaml:"replace_policy" toml:"replace_policy"`
	// DebugTree registers an Introspection monitor.
	DebugTree bool `json:"debug_tree" yaml:"debug_tree" toml:"debug_tree"`
}

// DefaultConfig returns the configuration NewRuntime uses.
func DefaultConfig() Config {
	return Config{
		Monitoring:    true,
		LogLevel:      "disabled",
		ReplacePolicy: ReplaceDestroy.String(),
	}
}

// Validate checks that every field parses.
func (c Config) Validate() error {
	if _, err := ParseReplacePolicy(c.ReplacePolicy); err != nil {
		return fmt.Errorf("replace_policy: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// LoadConfig reads a configuration file over DefaultConfig.
// Supports: .yaml/.yml, .json, .toml
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeFile unmarshals the file at path into v based on its extension.
func DecodeFile(path string, v any) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, v)
	case ".json":
		err = json.Unmarshal(b, v)
	case ".toml":
		err = toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// NewRuntimeFromConfig creates a runtime from cfg. opts are applied after
// the configured ones and may override them.
func NewRuntimeFromConfig(cfg Config, opts ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := ParseReplacePolicy(cfg.ReplacePolicy)
	level, _ := parseLevel(cfg.LogLevel)

	base := []RuntimeOption{
		WithMonitoring(cfg.Monitoring),
		WithDefaultReplacePolicy(policy),
	}
	if level != zerolog.Disabled {
		l := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
		base = append(base, WithLogger(l))
	}
	if cfg.DebugTree {
		base = append(base, WithMonitor(NewIntrospection()))
	}

	return NewRuntime(append(base, opts...)...), nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.Disabled, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}
