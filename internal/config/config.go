package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	ScratchDir  string `yaml:"scratch_dir"`
	Concurrency int    `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Animation settings
	Animation AnimationConfig `yaml:"animation"`

	// Overlay settings
	Overlay OverlayConfig `yaml:"overlay"`
}

type FFmpegConfig struct {
	BinaryPath     string `yaml:"binary_path"`
	ProbePath      string `yaml:"probe_path"`
	Threads        int    `yaml:"threads"`
	Preset         string `yaml:"preset"`
	CRF            int    `yaml:"crf"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AnimationConfig struct {
	Size        int     `yaml:"size"`
	FrameRate   int     `yaml:"frame_rate"`
	Threshold   float64 `yaml:"threshold"`
	MaxRotation float64 `yaml:"max_rotation"`
	GlitchLevel int     `yaml:"glitch_level"`
}

type OverlayConfig struct {
	Position string `yaml:"position"`
	Margin   int    `yaml:"margin"`
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		ScratchDir:  "",
		Concurrency: 0,
		FFmpeg: FFmpegConfig{
			BinaryPath:     "",
			ProbePath:      "",
			Threads:        0,
			Preset:         "medium",
			CRF:            23,
			TimeoutSeconds: 600,
		},
		Animation: AnimationConfig{
			Size:        320,
			FrameRate:   25,
			Threshold:   -40.0,
			MaxRotation: 0,
			GlitchLevel: 0,
		},
		Overlay: OverlayConfig{
			Position: "bottom-right",
			Margin:   20,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./caricature.yaml",
		"./caricature.yml",
		filepath.Join(os.Getenv("HOME"), ".caricature", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
