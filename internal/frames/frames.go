// Package frames renders scheduled events into image artifacts inside a
// scratch directory, deduplicating work when rotation is disabled.
package frames

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/catpea/caricature/internal/ffmpeg"
	"github.com/catpea/caricature/internal/sequence"
	"github.com/catpea/caricature/pkg/util"
)

// Renderer rasterizes a single frame specification. *ffmpeg.Executor
// satisfies it.
type Renderer interface {
	RenderFrame(ctx context.Context, spec ffmpeg.FrameSpec) error
}

// Prepared pairs an event with its rendered artifact
type Prepared struct {
	Event sequence.Event
	Path  string
}

// RenderError reports a frame render that failed or produced no artifact
type RenderError struct {
	Index      int
	Diagnostic string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render frame %d: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Config sets up a Preparer
type Config struct {
	Dir     string // scratch directory receiving the artifacts
	Size    int
	Glitch  int
	Workers int // concurrent renders on the deduplicated path; NumCPU when zero
}

// Preparer turns frame events into rendered artifacts
type Preparer struct {
	logger   zerolog.Logger
	renderer Renderer
	cfg      Config
}

// New creates a Preparer
func New(logger zerolog.Logger, renderer Renderer, cfg Config) *Preparer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Preparer{
		logger:   logger.With().Str("component", "frames").Logger(),
		renderer: renderer,
		cfg:      cfg,
	}
}

// Prepare renders the artifacts for every event. With rotation disabled
// each distinct source image is rendered exactly once and shared across
// its events; with rotation enabled every event gets its own artifact
// because each carries an independent angle.
func (p *Preparer) Prepare(ctx context.Context, events []sequence.Event, rotate bool) ([]Prepared, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to prepare")
	}

	if rotate {
		return p.prepareEach(ctx, events)
	}
	return p.prepareShared(ctx, events)
}

// prepareShared renders one artifact per distinct source image through a
// bounded worker pool
func (p *Preparer) prepareShared(ctx context.Context, events []sequence.Event) ([]Prepared, error) {
	var distinct []string
	index := make(map[string]int)
	for _, ev := range events {
		if _, ok := index[ev.Source.Path]; !ok {
			index[ev.Source.Path] = len(distinct)
			distinct = append(distinct, ev.Source.Path)
		}
	}

	p.logger.Info().
		Int("events", len(events)).
		Int("distinct", len(distinct)).
		Int("workers", p.cfg.Workers).
		Msg("rendering shared frame cache")

	artifacts := make([]string, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, source := range distinct {
		artifacts[i] = filepath.Join(p.cfg.Dir, fmt.Sprintf("mouth-cache-%03d.png", i))
		spec := ffmpeg.FrameSpec{
			Source: source,
			Output: artifacts[i],
			Size:   p.cfg.Size,
		}
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.renderOne(gctx, idx, spec)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	prepared := make([]Prepared, len(events))
	for i, ev := range events {
		prepared[i] = Prepared{Event: ev, Path: artifacts[index[ev.Source.Path]]}
	}
	return prepared, nil
}

// prepareEach renders every event's artifact in sequence, checking for
// cancellation between renders
func (p *Preparer) prepareEach(ctx context.Context, events []sequence.Event) ([]Prepared, error) {
	p.logger.Info().
		Int("events", len(events)).
		Int("glitch", p.cfg.Glitch).
		Msg("rendering per-event frames")

	prepared := make([]Prepared, 0, len(events))
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output := filepath.Join(p.cfg.Dir, fmt.Sprintf("frame-%06d.png", ev.Index))
		spec := ffmpeg.FrameSpec{
			Source:   ev.Source.Path,
			Output:   output,
			Size:     p.cfg.Size,
			Rotation: ev.Rotation,
			Glitch:   p.cfg.Glitch,
		}

		if err := p.renderOne(ctx, ev.Index, spec); err != nil {
			return nil, err
		}
		prepared = append(prepared, Prepared{Event: ev, Path: output})
	}

	return prepared, nil
}

// renderOne runs a single render and verifies the artifact landed
func (p *Preparer) renderOne(ctx context.Context, index int, spec ffmpeg.FrameSpec) error {
	if err := p.renderer.RenderFrame(ctx, spec); err != nil {
		if ctx.Err() == context.Canceled {
			return err
		}
		return &RenderError{Index: index, Diagnostic: diagnosticOf(err), Err: err}
	}

	if !util.FileExists(spec.Output) {
		return &RenderError{
			Index:      index,
			Diagnostic: "renderer exited cleanly but produced nothing",
			Err:        fmt.Errorf("no artifact at %s", spec.Output),
		}
	}

	return nil
}

// diagnosticOf pulls the stderr tail out of a renderer failure
func diagnosticOf(err error) string {
	var runErr *ffmpeg.RunError
	if errors.As(err, &runErr) {
		return runErr.Tail
	}
	return ""
}
