// Package config loads arbor settings from YAML or JSON files.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of an application.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Frame is the debounce window of property sync and scheduled operations.
	Frame time.Duration `mapstructure:"frame"`
	// WaitTimeout bounds how long a node waits for an ancestor capability.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	DataProjection string `mapstructure:"data_projection"`
	ViewProjection string `mapstructure:"view_projection"`
	Precision      int    `mapstructure:"precision"`
	CircleSides    int    `mapstructure:"circle_sides"`

	Redis     RedisConfig    `mapstructure:"redis"`
	Snapshots SnapshotConfig `mapstructure:"snapshots"`
	HTTP      HTTPConfig     `mapstructure:"http"`
}

// SnapshotConfig protects stored feature snapshots.
type SnapshotConfig struct {
	// Dir stores snapshots as GeoJSON files when no redis address is set.
	Dir string `mapstructure:"dir"`
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys are former keys still accepted for reading.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// MaskKeys are regular expressions of feature property keys masked on save.
	MaskKeys []string `mapstructure:"mask_keys"`
}

// Keys decodes the active and fallback encryption keys. The active key is nil when
// encryption is disabled.
func (s SnapshotConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	decode := func(k string) ([]byte, error) {
		b, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid config: encryption key: %w", err)
		}
		if len(b) != 32 {
			return nil, fmt.Errorf("invalid config: encryption key must be 32 bytes, got %d", len(b))
		}
		return b, nil
	}
	if active, err = decode(s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for _, k := range s.FallbackKeys {
		b, err := decode(k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, b)
	}
	return active, fallback, nil
}

// RedisConfig selects the redis snapshot store. An empty Addr keeps snapshots in memory.
type RedisConfig struct {
	Addr   string        `mapstructure:"addr"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// HTTPConfig configures the introspection server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:       "info",
		Frame:          debounce.Frame,
		WaitTimeout:    time.Second,
		DataProjection: proj.EPSG4326,
		ViewProjection: proj.EPSG3857,
		Precision:      geom.DefaultPrecision,
		CircleSides:    geom.DefaultCircleSides,
		HTTP:           HTTPConfig{Addr: ":8080"},
	}
}

// Load reads a configuration file (YAML or JSON, by extension) over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := Decode(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode merges raw settings into cfg. Durations accept Go duration strings ("16ms").
func Decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks projections and numeric bounds.
func (c Config) Validate() error {
	for _, code := range []string{c.DataProjection, c.ViewProjection} {
		if _, err := proj.Get(code); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	if c.Frame <= 0 || c.WaitTimeout <= 0 {
		return fmt.Errorf("invalid config: frame and wait_timeout must be positive")
	}
	if c.Precision < 1 || c.CircleSides < 3 {
		return fmt.Errorf("invalid config: precision must be > 0 and circle_sides >= 3")
	}
	for _, p := range c.Snapshots.MaskKeys {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid config: mask key: %w", err)
		}
	}
	_, _, err := c.Snapshots.Keys()
	return err
}
