// Package sequence turns a loudness envelope into the fixed-rate schedule
// of animation frame events.
package sequence

import (
	"math/rand"
	"time"

	"github.com/catpea/caricature/internal/catalog"
	"github.com/catpea/caricature/internal/loudness"
)

// DefaultStep is the seconds-per-frame step of the default 25 fps schedule
const DefaultStep = 1.0 / 25

// Event is one scheduled animation tick
type Event struct {
	Index     int
	Timestamp float64 // seconds from the start of the track
	Duration  float64 // seconds this frame stays on screen
	Source    catalog.Frame
	Rotation  float64 // degrees, 0 when rotation is disabled
	Level     float64 // sampled momentary loudness, dB
	MouthOpen bool
}

// Generator produces frame events by walking a fixed step across an audio
// duration. Rand drives both frame selection and rotation, so two
// generators seeded identically produce identical schedules.
type Generator struct {
	Step        float64 // seconds per frame; DefaultStep when zero
	Threshold   float64 // dB; levels strictly above open the mouth
	MaxRotation float64 // degrees; 0 disables rotation entirely
	Rand        *rand.Rand
}

// Generate builds the event schedule covering [0, duration). Each event
// samples the timeline at its own timestamp: a level strictly above the
// threshold picks a random open-mouth frame, anything else a closed one.
// When only one closed frame exists the random draw is skipped for it.
func (g Generator) Generate(timeline *loudness.Timeline, duration float64, set catalog.Set) []Event {
	step := g.Step
	if step <= 0 {
		step = DefaultStep
	}

	rng := g.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	events := make([]Event, 0, int(duration/step)+1)
	for at := 0.0; at < duration; at += step {
		sample := timeline.Nearest(at)
		open := sample.Level > g.Threshold

		var source catalog.Frame
		switch {
		case open:
			source = set.Open[rng.Intn(len(set.Open))]
		case len(set.Closed) == 1:
			source = set.Closed[0]
		default:
			source = set.Closed[rng.Intn(len(set.Closed))]
		}

		rotation := 0.0
		if g.MaxRotation != 0 {
			rotation = (rng.Float64()*2 - 1) * g.MaxRotation
		}

		events = append(events, Event{
			Index:     len(events),
			Timestamp: at,
			Duration:  step,
			Source:    source,
			Rotation:  rotation,
			Level:     sample.Level,
			MouthOpen: open,
		})
	}

	return events
}
