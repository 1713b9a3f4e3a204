package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/catpea/caricature/internal/loudness"
)

// Probe extracts container metadata from a media file. A file the probe
// cannot read, or one reporting no duration, is an input error because the
// schedule cannot be derived from it.
func (e *Executor) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	if path == "" {
		return ProbeInfo{}, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	e.logger.Debug().Str("cmd", "ffprobe").Strs("args", args).Msg("probing input")

	cmd := commandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeInfo{}, &loudness.InputError{
			Path:   path,
			Reason: "ffprobe failed",
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))),
		}
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return ProbeInfo{}, &loudness.InputError{
			Path:   path,
			Reason: "unparseable ffprobe output",
			Err:    err,
		}
	}

	info := ProbeInfo{Path: path}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Duration <= 0 {
		return ProbeInfo{}, &loudness.InputError{Path: path, Reason: "container reports no duration"}
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}
