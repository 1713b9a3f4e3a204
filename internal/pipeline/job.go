package pipeline

import (
	"fmt"
)

// Mode selects the pipeline's input arrangement
type Mode int

const (
	// ModeAudio animates against a standalone audio file.
	ModeAudio Mode = iota
	// ModeOverlay composites the animation onto an existing video.
	ModeOverlay
)

func (m Mode) String() string {
	switch m {
	case ModeOverlay:
		return "overlay"
	default:
		return "audio"
	}
}

// ValidationError reports an unusable job configuration
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job: %s", e.Reason)
}

// Options carries the raw values a job is validated from
type Options struct {
	Audio        string
	OverlayVideo string
	Position     string
	Margin       int

	Character   string
	FramesDir   string
	Size        int
	MaxRotation float64
	Glitch      int
	Threshold   float64
	Output      string
	Seed        int64
	KeepScratch bool
}

// Job is a validated, immutable description of one run
type Job struct {
	Mode      Mode
	Audio     string
	BaseVideo string
	Anchor    Anchor
	Margin    int

	Character   string
	FramesDir   string
	Size        int
	MaxRotation float64
	Glitch      int
	Threshold   float64
	Output      string
	Seed        int64
	KeepScratch bool
}

// NewJob validates options into a runnable job. Exactly one of the audio
// and overlay inputs must be set; that choice fixes the mode.
func NewJob(opts Options) (Job, error) {
	hasAudio := opts.Audio != ""
	hasOverlay := opts.OverlayVideo != ""

	switch {
	case hasAudio && hasOverlay:
		return Job{}, &ValidationError{Reason: "choose either an audio input or an overlay target, not both"}
	case !hasAudio && !hasOverlay:
		return Job{}, &ValidationError{Reason: "an audio input or an overlay target is required"}
	}

	if opts.Character == "" {
		return Job{}, &ValidationError{Reason: "a character name is required"}
	}
	if opts.FramesDir == "" {
		return Job{}, &ValidationError{Reason: "a frames directory is required"}
	}
	if opts.Output == "" {
		return Job{}, &ValidationError{Reason: "an output path is required"}
	}
	if opts.Size <= 0 {
		return Job{}, &ValidationError{Reason: "frame size must be positive"}
	}
	if opts.Glitch < 0 || opts.Glitch > 3 {
		return Job{}, &ValidationError{Reason: "glitch level must be between 0 and 3"}
	}
	if opts.MaxRotation < 0 {
		return Job{}, &ValidationError{Reason: "max rotation cannot be negative"}
	}
	if opts.Margin < 0 {
		return Job{}, &ValidationError{Reason: "margin cannot be negative"}
	}

	mode := ModeAudio
	if hasOverlay {
		mode = ModeOverlay
	}

	return Job{
		Mode:        mode,
		Audio:       opts.Audio,
		BaseVideo:   opts.OverlayVideo,
		Anchor:      ParseAnchor(opts.Position),
		Margin:      opts.Margin,
		Character:   opts.Character,
		FramesDir:   opts.FramesDir,
		Size:        opts.Size,
		MaxRotation: opts.MaxRotation,
		Glitch:      opts.Glitch,
		Threshold:   opts.Threshold,
		Output:      opts.Output,
		Seed:        opts.Seed,
		KeepScratch: opts.KeepScratch,
	}, nil
}

// Input returns the media file driving the schedule: the audio file in
// audio mode, the base video in overlay mode
func (j Job) Input() string {
	if j.Mode == ModeOverlay {
		return j.BaseVideo
	}
	return j.Audio
}
