package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Animation.Size != 320 {
		t.Errorf("default size = %d, want 320", cfg.Animation.Size)
	}
	if cfg.Animation.FrameRate != 25 {
		t.Errorf("default frame rate = %d, want 25", cfg.Animation.FrameRate)
	}
	if cfg.Animation.Threshold != -40.0 {
		t.Errorf("default threshold = %v, want -40", cfg.Animation.Threshold)
	}
	if cfg.Overlay.Position != "bottom-right" {
		t.Errorf("default position = %q, want bottom-right", cfg.Overlay.Position)
	}
	if cfg.Overlay.Margin != 20 {
		t.Errorf("default margin = %d, want 20", cfg.Overlay.Margin)
	}
	if cfg.FFmpeg.Preset != "medium" {
		t.Errorf("default preset = %q, want medium", cfg.FFmpeg.Preset)
	}
	if cfg.FFmpeg.CRF != 23 {
		t.Errorf("default crf = %d, want 23", cfg.FFmpeg.CRF)
	}
}

func TestLoadFile(t *testing.T) {
	data := `
scratch_dir: /var/scratch
concurrency: 2
ffmpeg:
  preset: fast
  timeout_seconds: 120
animation:
  size: 512
  threshold: -35.5
overlay:
  position: top-left
  margin: 8
`
	path := filepath.Join(t.TempDir(), "caricature.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ScratchDir != "/var/scratch" {
		t.Errorf("scratch_dir = %q, want /var/scratch", cfg.ScratchDir)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.FFmpeg.Preset != "fast" {
		t.Errorf("preset = %q, want fast", cfg.FFmpeg.Preset)
	}
	if cfg.FFmpeg.TimeoutSeconds != 120 {
		t.Errorf("timeout_seconds = %d, want 120", cfg.FFmpeg.TimeoutSeconds)
	}
	if cfg.Animation.Size != 512 {
		t.Errorf("size = %d, want 512", cfg.Animation.Size)
	}
	if cfg.Animation.Threshold != -35.5 {
		t.Errorf("threshold = %v, want -35.5", cfg.Animation.Threshold)
	}
	// Untouched keys keep their defaults.
	if cfg.Animation.FrameRate != 25 {
		t.Errorf("frame_rate = %d, want default 25", cfg.Animation.FrameRate)
	}
	if cfg.Overlay.Position != "top-left" {
		t.Errorf("position = %q, want top-left", cfg.Overlay.Position)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("animation: [not a map"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for malformed yaml")
	}
}

func TestConfigContext(t *testing.T) {
	cfg := defaultConfig()
	cfg.Animation.Size = 640

	ctx := WithConfig(context.Background(), cfg)
	got := FromContext(ctx)
	if got.Animation.Size != 640 {
		t.Errorf("FromContext() size = %d, want 640", got.Animation.Size)
	}

	// A bare context falls back to defaults.
	fallback := FromContext(context.Background())
	if fallback.Animation.Size != 320 {
		t.Errorf("FromContext() fallback size = %d, want 320", fallback.Animation.Size)
	}
}
