// Package effects assembles the glitch filter graph applied to the animated
// frame stream during the final encode. Stages are modeled as ordered values
// and only serialized to ffmpeg filter syntax at the point of invocation.
package effects

import (
	"strings"
)

// StageID identifies one filter stage in the glitch graph
type StageID string

const (
	// StageBase normalizes the frame stream to RGBA so later stages can
	// touch the alpha plane.
	StageBase StageID = "base"
	// StageScanlines forces every third pixel row to full opacity.
	StageScanlines StageID = "scanlines"
	// StageNoise adds temporally varying uniform noise.
	StageNoise StageID = "noise"
	// StageChroma shifts the red and blue planes apart horizontally.
	StageChroma StageID = "chroma"
)

// stageFilters maps each stage to its ffmpeg filter expression. Expressions
// containing commas are single-quoted so the filtergraph parser keeps them
// as one option value.
var stageFilters = map[StageID]string{
	StageBase: "format=rgba",
	StageScanlines: "geq=" +
		"r='r(X,Y)':" +
		"g='g(X,Y)':" +
		"b='b(X,Y)':" +
		"a='if(eq(mod(Y,3),0),255,alpha(X,Y))'",
	StageNoise:  "noise=alls=14:allf=t+u",
	StageChroma: "rgbashift=rh=-3:bh=3",
}

// Graph is an ordered set of glitch stages
type Graph struct {
	stages []StageID
}

// Build returns the stage stack for a glitch level. Level 0 carries only
// the base formatting stage; each level from 1 to 3 adds one stage on top
// of the previous level's stack.
func Build(level int) Graph {
	stages := []StageID{StageBase}
	if level >= 1 {
		stages = append(stages, StageScanlines)
	}
	if level >= 2 {
		stages = append(stages, StageNoise)
	}
	if level >= 3 {
		stages = append(stages, StageChroma)
	}
	return Graph{stages: stages}
}

// Stages returns the ordered stage identifiers
func (g Graph) Stages() []StageID {
	out := make([]StageID, len(g.stages))
	copy(out, g.stages)
	return out
}

// Compile serializes the graph to a filtergraph fragment reading from the
// in label and writing to the out label, e.g. "[0:v]format=rgba[vout]".
func (g Graph) Compile(in, out string) string {
	parts := make([]string, 0, len(g.stages))
	for _, id := range g.stages {
		parts = append(parts, stageFilters[id])
	}
	return in + strings.Join(parts, ",") + out
}
