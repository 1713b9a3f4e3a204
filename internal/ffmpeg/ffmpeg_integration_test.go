package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/catpea/caricature/internal/effects"
	"github.com/rs/zerolog"
)

// genSine writes a two-second sine-wave audio file with ffmpeg's lavfi source
func genSine(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "speech.wav")
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi",
		"-i", "sine=frequency=440:duration=2",
		path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test audio: %v\n%s", err, out)
	}
	return path
}

// genImage writes a small test card image
func genImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi",
		"-i", "testsrc=size=200x300:rate=1",
		"-frames:v", "1",
		path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test image: %v\n%s", err, out)
	}
	return path
}

// genBaseVideo writes a one-second test video with an audio track
func genBaseVideo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "base.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=25",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate base video: %v\n%s", err, out)
	}
	return path
}

func integrationExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := New(zerolog.New(os.Stderr))
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func TestIntegrationProbe(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	audio := genSine(t, dir)

	e := integrationExecutor(t)
	info, err := e.Probe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if info.Duration < 1.8 || info.Duration > 2.2 {
		t.Errorf("duration = %v, want about 2", info.Duration)
	}
	if !info.HasAudio {
		t.Error("HasAudio = false for an audio file")
	}
}

func TestIntegrationExtractLoudness(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	audio := genSine(t, dir)

	e := integrationExecutor(t)
	samples, err := e.ExtractLoudness(context.Background(), audio)
	if err != nil {
		t.Fatalf("ExtractLoudness() error = %v", err)
	}

	if len(samples) < 10 {
		t.Fatalf("sample count = %d, want at least 10 for two seconds", len(samples))
	}

	for i, s := range samples {
		if i > 0 && s.Time < samples[i-1].Time {
			t.Fatalf("samples out of order at %d: %v after %v", i, s.Time, samples[i-1].Time)
		}
		if s.Level > 0 {
			t.Errorf("sample %d level = %v, want negative dB", i, s.Level)
		}
	}

	last := samples[len(samples)-1].Time
	if last < 1.5 || last > 2.5 {
		t.Errorf("last sample at %v, want near 2s", last)
	}

	t.Logf("extracted %d samples spanning %.2fs", len(samples), last)
}

func TestIntegrationRenderFrame(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	source := genImage(t, dir, "card.png")
	e := integrationExecutor(t)

	tests := []struct {
		name string
		spec FrameSpec
	}{
		{"plain", FrameSpec{Size: 64}},
		{"rotated", FrameSpec{Size: 64, Rotation: 12.5}},
		{"rotated glitched", FrameSpec{Size: 64, Rotation: -4, Glitch: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			spec.Source = source
			spec.Output = filepath.Join(dir, "out-"+tt.name+".png")

			if err := e.RenderFrame(context.Background(), spec); err != nil {
				t.Fatalf("RenderFrame() error = %v", err)
			}

			stat, err := os.Stat(spec.Output)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if stat.Size() == 0 {
				t.Error("output is empty")
			}
		})
	}
}

func TestIntegrationEncodeAnimation(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	audio := genSine(t, dir)
	source := genImage(t, dir, "card.png")
	e := integrationExecutor(t)

	// Two rendered artifacts alternating across the playlist.
	var artifacts [2]string
	for i := range artifacts {
		artifacts[i] = filepath.Join(dir, fmt.Sprintf("mouth-cache-%03d.png", i))
		spec := FrameSpec{Source: source, Output: artifacts[i], Size: 64}
		if err := e.RenderFrame(context.Background(), spec); err != nil {
			t.Fatalf("RenderFrame() error = %v", err)
		}
	}

	entries := make([]ConcatEntry, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, ConcatEntry{Path: artifacts[i%2], Duration: 0.04})
	}

	playlist := filepath.Join(dir, "playlist.txt")
	if err := WriteConcat(playlist, entries); err != nil {
		t.Fatalf("WriteConcat() error = %v", err)
	}

	output := filepath.Join(dir, "out.mp4")
	err := e.EncodeAnimation(context.Background(), AnimationSpec{
		Playlist:  playlist,
		Audio:     audio,
		Output:    output,
		FrameRate: 25,
		Graph:     effects.Build(3),
	})
	if err != nil {
		t.Fatalf("EncodeAnimation() error = %v", err)
	}

	info, err := e.Probe(context.Background(), output)
	if err != nil {
		t.Fatalf("Probe(output) error = %v", err)
	}
	if !info.HasAudio {
		t.Error("encoded output has no audio track")
	}
	if info.Width != 64 || info.Height != 64 {
		t.Errorf("output dimensions = %dx%d, want 64x64", info.Width, info.Height)
	}

	t.Logf("encoded %s: %.2fs %dx%d", output, info.Duration, info.Width, info.Height)
}

func TestIntegrationEncodeOverlay(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	base := genBaseVideo(t, dir)
	source := genImage(t, dir, "card.png")
	e := integrationExecutor(t)

	artifact := filepath.Join(dir, "mouth-cache-000.png")
	if err := e.RenderFrame(context.Background(), FrameSpec{Source: source, Output: artifact, Size: 64}); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}

	entries := make([]ConcatEntry, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, ConcatEntry{Path: artifact, Duration: 0.04})
	}
	playlist := filepath.Join(dir, "playlist.txt")
	if err := WriteConcat(playlist, entries); err != nil {
		t.Fatalf("WriteConcat() error = %v", err)
	}

	output := filepath.Join(dir, "composited.mp4")
	err := e.EncodeOverlay(context.Background(), OverlaySpec{
		Base:      base,
		Playlist:  playlist,
		Output:    output,
		FrameRate: 25,
		Graph:     effects.Build(1),
		X:         "main_w-overlay_w-10",
		Y:         "main_h-overlay_h-10",
	})
	if err != nil {
		t.Fatalf("EncodeOverlay() error = %v", err)
	}

	info, err := e.Probe(context.Background(), output)
	if err != nil {
		t.Fatalf("Probe(output) error = %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("output dimensions = %dx%d, want base 320x240", info.Width, info.Height)
	}
	if !info.HasAudio {
		t.Error("base audio did not pass through")
	}
}
