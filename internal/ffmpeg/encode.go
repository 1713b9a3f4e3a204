package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/catpea/caricature/internal/effects"
)

// AnimationSpec configures a standalone encode of the frame playlist
// against an audio track
type AnimationSpec struct {
	Playlist  string
	Audio     string
	Output    string
	FrameRate int
	Graph     effects.Graph
	Preset    string
	CRF       int
}

// OverlaySpec configures compositing the frame playlist onto a base video.
// X and Y are overlay position expressions evaluated by ffmpeg against the
// real stream dimensions.
type OverlaySpec struct {
	Base      string
	Playlist  string
	Output    string
	FrameRate int
	Graph     effects.Graph
	X         string
	Y         string
	Preset    string
	CRF       int
}

// EncodeAnimation encodes the playlist and audio track into a standalone
// video
func (e *Executor) EncodeAnimation(ctx context.Context, spec AnimationSpec) error {
	if spec.Playlist == "" || spec.Audio == "" || spec.Output == "" {
		return fmt.Errorf("playlist, audio, and output paths are required")
	}

	e.logger.Info().
		Str("audio", spec.Audio).
		Str("output", spec.Output).
		Msg("encoding animation")

	return e.encode(ctx, spec.Output, animationArgs(spec))
}

// EncodeOverlay composites the playlist onto the base video. The animation
// stream ends with the shorter input, and the base video's audio passes
// through untouched.
func (e *Executor) EncodeOverlay(ctx context.Context, spec OverlaySpec) error {
	if spec.Base == "" || spec.Playlist == "" || spec.Output == "" {
		return fmt.Errorf("base, playlist, and output paths are required")
	}

	e.logger.Info().
		Str("base", spec.Base).
		Str("output", spec.Output).
		Msg("compositing animation onto base video")

	return e.encode(ctx, spec.Output, overlayArgs(spec))
}

// encode runs the final ffmpeg pass, converting failures into EncodeError
func (e *Executor) encode(ctx context.Context, output string, args []string) error {
	err := e.run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("encoding")
		},
	})
	if err == nil {
		e.logger.Info().Str("output", output).Msg("encode complete")
		return nil
	}

	if ctx.Err() == context.Canceled {
		return err
	}

	var runErr *RunError
	if errors.As(err, &runErr) {
		return &EncodeError{Output: output, Diagnostic: runErr.Tail, Err: runErr.Err}
	}
	return &EncodeError{Output: output, Err: err}
}

func animationArgs(spec AnimationSpec) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", spec.Playlist,
		"-i", spec.Audio,
		"-filter_complex", spec.Graph.Compile("[0:v]", "[vout]"),
		"-map", "[vout]",
		"-map", "1:a",
		"-r", strconv.Itoa(frameRateOrDefault(spec.FrameRate)),
		"-c:v", DefaultVideoCodec,
		"-crf", strconv.Itoa(crfOrDefault(spec.CRF)),
		"-preset", presetOrDefault(spec.Preset),
		"-pix_fmt", "yuv420p",
		"-c:a", DefaultAudioCodec,
		spec.Output,
	}
}

func overlayArgs(spec OverlaySpec) []string {
	filter := spec.Graph.Compile("[1:v]", "[fx]") +
		";" +
		fmt.Sprintf("[0:v][fx]overlay=x=%s:y=%s:shortest=1[vout]", spec.X, spec.Y)

	return []string{
		"-i", spec.Base,
		"-f", "concat",
		"-safe", "0",
		"-i", spec.Playlist,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "0:a",
		"-r", strconv.Itoa(frameRateOrDefault(spec.FrameRate)),
		"-c:v", DefaultVideoCodec,
		"-crf", strconv.Itoa(crfOrDefault(spec.CRF)),
		"-preset", presetOrDefault(spec.Preset),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		spec.Output,
	}
}

func frameRateOrDefault(rate int) int {
	if rate <= 0 {
		return DefaultFrameRate
	}
	return rate
}

func crfOrDefault(crf int) int {
	if crf <= 0 {
		return DefaultCRF
	}
	return crf
}

func presetOrDefault(preset string) string {
	if preset == "" {
		return DefaultPreset
	}
	return preset
}
