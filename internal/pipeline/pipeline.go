// Package pipeline composes frame discovery, loudness analysis,
// scheduling, rendering, and the final encode into one run.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catpea/caricature/internal/catalog"
	"github.com/catpea/caricature/internal/config"
	"github.com/catpea/caricature/internal/effects"
	"github.com/catpea/caricature/internal/ffmpeg"
	"github.com/catpea/caricature/internal/frames"
	"github.com/catpea/caricature/internal/loudness"
	"github.com/catpea/caricature/internal/sequence"
	"github.com/catpea/caricature/pkg/util"
)

// Toolchain is the boundary to the external media collaborators.
// *ffmpeg.Executor satisfies it.
type Toolchain interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeInfo, error)
	ExtractLoudness(ctx context.Context, path string) ([]loudness.Sample, error)
	RenderFrame(ctx context.Context, spec ffmpeg.FrameSpec) error
	EncodeAnimation(ctx context.Context, spec ffmpeg.AnimationSpec) error
	EncodeOverlay(ctx context.Context, spec ffmpeg.OverlaySpec) error
}

var _ Toolchain = (*ffmpeg.Executor)(nil)

// Pipeline runs caricature jobs end to end
type Pipeline struct {
	logger zerolog.Logger
	cfg    *config.Config
	tools  Toolchain
}

// New creates a pipeline instance
func New(logger zerolog.Logger, cfg *config.Config, tools Toolchain) (*Pipeline, error) {
	if tools == nil {
		return nil, fmt.Errorf("toolchain cannot be nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		tools:  tools,
	}, nil
}

// Run executes a job: discover the character's frames, measure the input's
// loudness, schedule the animation, render the artifacts into a scratch
// directory, and encode the result. The scratch directory is removed on
// every exit path unless the job keeps it for a failure postmortem.
func (p *Pipeline) Run(ctx context.Context, job Job) (err error) {
	p.logger.Info().
		Str("mode", job.Mode.String()).
		Str("character", job.Character).
		Str("output", job.Output).
		Msg("starting run")

	input := job.Input()
	if !util.FileExists(input) {
		return &loudness.InputError{Path: input, Reason: "input file does not exist"}
	}

	// Stage 1: frame discovery
	set, err := catalog.Discover(job.FramesDir, job.Character)
	if err != nil {
		return err
	}

	p.logger.Info().
		Int("closed", len(set.Closed)).
		Int("open", len(set.Open)).
		Msg("frame catalog assembled")

	// Stage 2: input analysis
	info, err := p.tools.Probe(ctx, input)
	if err != nil {
		return err
	}
	if !info.HasAudio {
		return &loudness.InputError{Path: input, Reason: "no audio stream to analyze"}
	}

	samples, err := p.tools.ExtractLoudness(ctx, input)
	if err != nil {
		return err
	}

	timeline, err := loudness.NewTimeline(samples)
	if err != nil {
		return err
	}

	p.logger.Info().
		Float64("duration", info.Duration).
		Int("samples", timeline.Len()).
		Msg("loudness envelope extracted")

	// Stage 3: schedule
	seed := job.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p.logger.Info().Int64("seed", seed).Msg("seeding schedule")

	rate := p.cfg.Animation.FrameRate
	if rate <= 0 {
		rate = ffmpeg.DefaultFrameRate
	}

	gen := sequence.Generator{
		Step:        1.0 / float64(rate),
		Threshold:   job.Threshold,
		MaxRotation: job.MaxRotation,
		Rand:        rand.New(rand.NewSource(seed)),
	}
	events := gen.Generate(timeline, info.Duration, set)
	if len(events) == 0 {
		return fmt.Errorf("schedule is empty for %.3fs of audio", info.Duration)
	}

	p.logger.Info().Int("events", len(events)).Msg("schedule generated")

	// Stage 4: render artifacts in a per-run scratch directory
	scratch, err := p.newScratchDir()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil && job.KeepScratch {
			p.logger.Warn().Str("dir", scratch).Msg("keeping scratch directory for inspection")
			return
		}
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			p.logger.Warn().Err(rmErr).Str("dir", scratch).Msg("failed to remove scratch directory")
		}
	}()

	prep := frames.New(p.logger, p.tools, frames.Config{
		Dir:     scratch,
		Size:    job.Size,
		Glitch:  job.Glitch,
		Workers: p.cfg.Concurrency,
	})

	rotate := job.MaxRotation != 0
	prepared, err := prep.Prepare(ctx, events, rotate)
	if err != nil {
		return err
	}

	playlist := filepath.Join(scratch, "playlist.txt")
	entries := make([]ffmpeg.ConcatEntry, len(prepared))
	for i, pf := range prepared {
		entries[i] = ffmpeg.ConcatEntry{Path: pf.Path, Duration: pf.Event.Duration}
	}
	if err = ffmpeg.WriteConcat(playlist, entries); err != nil {
		return err
	}

	// Stage 5: final encode
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = util.EnsureDir(filepath.Dir(job.Output)); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	graph := effects.Build(job.Glitch)

	switch job.Mode {
	case ModeOverlay:
		err = p.encodeOverlay(ctx, job, info, playlist, rate, graph)
	default:
		err = p.tools.EncodeAnimation(ctx, ffmpeg.AnimationSpec{
			Playlist:  playlist,
			Audio:     job.Audio,
			Output:    job.Output,
			FrameRate: rate,
			Graph:     graph,
			Preset:    p.cfg.FFmpeg.Preset,
			CRF:       p.cfg.FFmpeg.CRF,
		})
	}
	if err != nil {
		return err
	}

	p.logger.Info().Str("output", job.Output).Msg("run complete")
	return nil
}

// encodeOverlay composites the prepared animation onto the job's base video
func (p *Pipeline) encodeOverlay(ctx context.Context, job Job, info ffmpeg.ProbeInfo, playlist string, rate int, graph effects.Graph) error {
	x, y := job.Anchor.Exprs(job.Margin)

	if info.Width > 0 {
		ox, oy := job.Anchor.Offset(info.Width, info.Height, job.Size, job.Size, job.Margin)
		p.logger.Debug().
			Str("anchor", string(job.Anchor)).
			Int("x", ox).
			Int("y", oy).
			Msg("overlay placement")
	}

	return p.tools.EncodeOverlay(ctx, ffmpeg.OverlaySpec{
		Base:      job.BaseVideo,
		Playlist:  playlist,
		Output:    job.Output,
		FrameRate: rate,
		Graph:     graph,
		X:         x,
		Y:         y,
		Preset:    p.cfg.FFmpeg.Preset,
		CRF:       p.cfg.FFmpeg.CRF,
	})
}

// newScratchDir creates a unique scratch directory for one run
func (p *Pipeline) newScratchDir() (string, error) {
	root := p.cfg.ScratchDir
	if root == "" {
		root = os.TempDir()
	}

	dir := filepath.Join(root, "caricature-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	p.logger.Debug().Str("dir", dir).Msg("scratch directory created")
	return dir, nil
}
