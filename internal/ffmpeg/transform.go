package ffmpeg

import (
	"context"
	"fmt"
)

// FrameSpec describes one frame artifact to rasterize
type FrameSpec struct {
	Source   string
	Output   string
	Size     int
	Rotation float64 // degrees
	Glitch   int
}

// glitchPrefilters are baked into rendered frames, one more per glitch
// level. Expressions containing commas are single-quoted for the
// filtergraph parser.
var glitchPrefilters = []string{
	"colorchannelmixer=rr=0.92:gg=0.88:bb=1.04",
	"noise=alls=18:allf=t+u",
	"lutrgb=r='min(val+40,maxval)'",
}

// RenderFrame rasterizes one animation frame artifact from a source image
func (e *Executor) RenderFrame(ctx context.Context, spec FrameSpec) error {
	if spec.Source == "" || spec.Output == "" {
		return fmt.Errorf("source and output paths are required")
	}
	if spec.Size <= 0 {
		return fmt.Errorf("frame size must be positive")
	}

	args := []string{
		"-i", spec.Source,
		"-vf", transformChain(spec),
		"-frames:v", "1",
		spec.Output,
	}

	return e.run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("rendering frame")
		},
	})
}

// transformChain builds the filter chain for one frame. The order is
// fixed: cover scale, center crop, then for rotated frames an RGBA
// conversion, the rotation inside a transparent expanded canvas, and a
// re-crop back to the square. Glitch pre-filters always come last.
func transformChain(spec FrameSpec) string {
	fb := NewFilterBuilder().
		CoverScale(spec.Size).
		CenterCrop(spec.Size)

	if spec.Rotation != 0 {
		fb.Format("rgba").
			Rotate(spec.Rotation).
			CenterCrop(spec.Size)
	}

	for i, filter := range glitchPrefilters {
		if spec.Glitch > i {
			fb.Custom(filter)
		}
	}

	return fb.Build()
}
