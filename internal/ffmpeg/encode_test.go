package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/catpea/caricature/internal/effects"
)

func argsIndex(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}

func TestAnimationArgs(t *testing.T) {
	args := animationArgs(AnimationSpec{
		Playlist:  "/tmp/playlist.txt",
		Audio:     "/tmp/speech.wav",
		Output:    "/tmp/out.mp4",
		FrameRate: 25,
		Graph:     effects.Build(0),
		Preset:    "medium",
		CRF:       23,
	})

	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-f concat -safe 0 -i /tmp/playlist.txt") {
		t.Errorf("args missing concat input: %q", joined)
	}
	if !strings.Contains(joined, "-filter_complex [0:v]format=rgba[vout]") {
		t.Errorf("args missing filter graph: %q", joined)
	}
	if !strings.Contains(joined, "-map [vout] -map 1:a") {
		t.Errorf("args missing stream mapping: %q", joined)
	}
	if !strings.Contains(joined, "-r 25") {
		t.Errorf("args missing forced frame rate: %q", joined)
	}
	if !strings.Contains(joined, "-c:v libx264 -crf 23 -preset medium -pix_fmt yuv420p -c:a aac") {
		t.Errorf("args missing codec settings: %q", joined)
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}

	// The audio input follows the playlist input.
	pi := argsIndex(args, "/tmp/playlist.txt")
	ai := argsIndex(args, "/tmp/speech.wav")
	if pi < 0 || ai < 0 || ai < pi {
		t.Errorf("input order wrong: %q", joined)
	}
}

func TestOverlayArgs(t *testing.T) {
	args := overlayArgs(OverlaySpec{
		Base:      "/tmp/base.mp4",
		Playlist:  "/tmp/playlist.txt",
		Output:    "/tmp/out.mp4",
		FrameRate: 25,
		Graph:     effects.Build(1),
		X:         "main_w-overlay_w-20",
		Y:         "main_h-overlay_h-20",
		Preset:    "fast",
		CRF:       20,
	})

	joined := strings.Join(args, " ")

	if argsIndex(args, "/tmp/base.mp4") != 1 {
		t.Errorf("base video is not the first input: %q", joined)
	}

	fi := argsIndex(args, "-filter_complex")
	if fi < 0 || fi+1 >= len(args) {
		t.Fatalf("args missing filter_complex: %q", joined)
	}
	filter := args[fi+1]

	if !strings.HasPrefix(filter, "[1:v]format=rgba") {
		t.Errorf("filter does not process the playlist stream: %q", filter)
	}
	if !strings.Contains(filter, ";[0:v][fx]overlay=x=main_w-overlay_w-20:y=main_h-overlay_h-20:shortest=1[vout]") {
		t.Errorf("filter missing overlay composite: %q", filter)
	}
	if !strings.Contains(joined, "-map [vout] -map 0:a") {
		t.Errorf("args missing stream mapping: %q", joined)
	}
	if !strings.Contains(joined, "-c:a copy") {
		t.Errorf("args do not pass base audio through: %q", joined)
	}
	if !strings.Contains(joined, "-r 25") {
		t.Errorf("args missing forced frame rate: %q", joined)
	}
	if !strings.Contains(joined, "-preset fast") {
		t.Errorf("args missing preset override: %q", joined)
	}
}

func TestEncodeDefaults(t *testing.T) {
	args := animationArgs(AnimationSpec{
		Playlist: "p.txt",
		Audio:    "a.wav",
		Output:   "o.mp4",
		Graph:    effects.Build(0),
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-r 25") {
		t.Errorf("zero frame rate did not default to 25: %q", joined)
	}
	if !strings.Contains(joined, "-crf 23") {
		t.Errorf("zero crf did not default to 23: %q", joined)
	}
	if !strings.Contains(joined, "-preset medium") {
		t.Errorf("empty preset did not default to medium: %q", joined)
	}
}

func TestEncodeAnimationValidation(t *testing.T) {
	e := stubExecutor(t)
	ctx := context.Background()

	err := e.EncodeAnimation(ctx, AnimationSpec{Audio: "a.wav", Output: "o.mp4"})
	if err == nil {
		t.Error("EncodeAnimation without playlist should fail")
	}

	err = e.EncodeOverlay(ctx, OverlaySpec{Playlist: "p.txt", Output: "o.mp4"})
	if err == nil {
		t.Error("EncodeOverlay without base should fail")
	}
}

func TestEncodeFailureCarriesDiagnostic(t *testing.T) {
	stubCommand(t, "fail")
	e := stubExecutor(t)

	err := e.EncodeAnimation(context.Background(), AnimationSpec{
		Playlist: "p.txt",
		Audio:    "a.wav",
		Output:   "broken.mp4",
		Graph:    effects.Build(0),
	})
	if err == nil {
		t.Fatal("EncodeAnimation should fail")
	}

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("error = %T, want *EncodeError", err)
	}
	if encErr.Output != "broken.mp4" {
		t.Errorf("error output = %q, want broken.mp4", encErr.Output)
	}
	if !strings.Contains(encErr.Diagnostic, "No such file or directory") {
		t.Errorf("diagnostic missing encoder output: %q", encErr.Diagnostic)
	}
	if !strings.Contains(encErr.Error(), "broken.mp4") {
		t.Errorf("Error() = %q, want output name included", encErr.Error())
	}
}
