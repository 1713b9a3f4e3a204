// Package loudness models the momentary-loudness envelope of an audio track
// as an ordered series of timestamped measurements.
package loudness

import (
	"fmt"
	"sort"
)

// Sample is one momentary loudness measurement
type Sample struct {
	Time  float64 // seconds from the start of the track
	Level float64 // momentary loudness in dB, typically negative
}

// InputError reports an audio source that could not be analyzed
type InputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("audio input: %s", e.Reason)
	}
	return fmt.Sprintf("audio input %s: %s", e.Path, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Timeline answers nearest-sample queries over a loudness envelope
type Timeline struct {
	samples []Sample
}

// NewTimeline builds a timeline from measured samples. The samples are
// copied and kept in ascending time order; an empty series is an error
// because the schedule cannot be driven without measurements.
func NewTimeline(samples []Sample) (*Timeline, error) {
	if len(samples) == 0 {
		return nil, &InputError{Reason: "no loudness samples"}
	}

	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time < ordered[j].Time
	})

	return &Timeline{samples: ordered}, nil
}

// Len returns the number of samples
func (t *Timeline) Len() int {
	return len(t.samples)
}

// Span returns the timestamp of the last sample
func (t *Timeline) Span() float64 {
	return t.samples[len(t.samples)-1].Time
}

// Samples returns a copy of the ordered sample series
func (t *Timeline) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Nearest returns the sample closest in time to at. Ties between two
// equally distant samples resolve to the earlier one, and queries outside
// the measured range clamp to the boundary samples.
func (t *Timeline) Nearest(at float64) Sample {
	s := t.samples
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Time >= at
	})

	if i == 0 {
		return s[0]
	}
	if i == len(s) {
		return s[len(s)-1]
	}

	prev, next := s[i-1], s[i]
	if at-prev.Time <= next.Time-at {
		return prev
	}
	return next
}
