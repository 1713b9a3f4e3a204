package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/catpea/caricature/internal/loudness"
)

// ExtractLoudness measures the momentary loudness envelope of a media
// file's audio with the ebur128 filter. The filter logs one measurement
// roughly every 100ms; each becomes one timeline sample.
func (e *Executor) ExtractLoudness(ctx context.Context, path string) ([]loudness.Sample, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	e.logger.Info().Str("input", path).Msg("measuring loudness")

	var (
		mu      sync.Mutex
		samples []loudness.Sample
	)

	opts := RunOptions{
		Args: []string{
			"-nostats",
			"-i", path,
			"-filter_complex", "ebur128",
			"-f", "null", "-",
		},
		LogHandler: func(line string) {
			sample, ok := parseMomentaryLine(line)
			if !ok {
				return
			}
			mu.Lock()
			samples = append(samples, sample)
			mu.Unlock()
		},
	}

	if err := e.run(ctx, opts); err != nil {
		return nil, &loudness.InputError{Path: path, Reason: "loudness analysis failed", Err: err}
	}

	if len(samples) == 0 {
		return nil, &loudness.InputError{Path: path, Reason: "no loudness measurements in analyzer output"}
	}

	e.logger.Debug().Int("samples", len(samples)).Msg("loudness analysis complete")
	return samples, nil
}

// parseMomentaryLine extracts one measurement from an ebur128 log line of
// the form:
//
//	[Parsed_ebur128_0 @ 0x...] t: 2.59969  TARGET:-23 LUFS  M: -22.1 S: -23.9 ...
//
// The trailing summary block carries neither a "t:" nor an "M:" field and
// is skipped.
func parseMomentaryLine(line string) (loudness.Sample, bool) {
	if !strings.Contains(line, "ebur128") {
		return loudness.Sample{}, false
	}

	t, ok := fieldAfter(line, "t:")
	if !ok {
		return loudness.Sample{}, false
	}

	m, ok := fieldAfter(line, "M:")
	if !ok {
		return loudness.Sample{}, false
	}

	return loudness.Sample{Time: t, Level: m}, true
}

// fieldAfter parses the first numeric field following the marker
func fieldAfter(line, marker string) (float64, bool) {
	i := strings.Index(line, marker)
	if i < 0 {
		return 0, false
	}

	fields := strings.Fields(line[i+len(marker):])
	if len(fields) == 0 {
		return 0, false
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}

	return value, true
}
