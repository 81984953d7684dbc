// Package config loads murmur's YAML settings file. Flags override file
// values; API keys come from the environment only.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"murmur/session"
	"murmur/transcriber"
)

type TranscribeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

type RewriteConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type Config struct {
	Language    string           `yaml:"language"`
	HoldDelayMS int              `yaml:"hold_delay_ms"`
	Mode        string           `yaml:"mode"`
	Format      string           `yaml:"format"`
	Device      string           `yaml:"device"`
	Transcribe  TranscribeConfig `yaml:"transcribe"`
	Rewrite     RewriteConfig    `yaml:"rewrite"`
}

func Default() Config {
	return Config{
		Language:    "auto",
		HoldDelayMS: 500,
		Mode:        "raw",
		Format:      "flac",
		Transcribe: TranscribeConfig{
			Endpoint: transcriber.DefaultEndpoint,
			Model:    transcriber.DefaultModel,
		},
		Rewrite: RewriteConfig{
			Temperature: 0.2,
			TopP:        0.9,
			MaxTokens:   2048,
		},
	}
}

// DefaultPath is ~/.config/murmur/config.yaml (or the XDG equivalent).
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error;
// the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !transcriber.ValidLanguage(c.Language) {
		return fmt.Errorf("unsupported language %q (want one of %v)", c.Language, transcriber.Languages)
	}
	if _, err := session.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Format != "flac" && c.Format != "wav" {
		return fmt.Errorf("unsupported format %q (want flac or wav)", c.Format)
	}
	if c.HoldDelayMS < 0 {
		return fmt.Errorf("hold_delay_ms must not be negative")
	}
	return nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
