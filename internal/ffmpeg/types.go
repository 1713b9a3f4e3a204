package ffmpeg

import (
	"fmt"
	"path/filepath"
)

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultFrameRate  = 25
)

// RunOptions configures one ffmpeg invocation
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}

// ProbeInfo contains container metadata for a media file
type ProbeInfo struct {
	Path     string
	Duration float64 // seconds
	Width    int
	Height   int
	HasAudio bool
}

// RunError carries the stderr tail of a failed ffmpeg invocation
type RunError struct {
	Tail string
	Err  error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// EncodeError reports a failed final encode along with a bounded excerpt
// of the encoder's diagnostics
type EncodeError struct {
	Output     string
	Diagnostic string
	Err        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", filepath.Base(e.Output), e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
