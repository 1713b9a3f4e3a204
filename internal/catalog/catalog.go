// Package catalog discovers the expression images available for a character.
//
// Images follow the naming convention <character>-<state><variant>.<ext>,
// e.g. pea-closed.png, pea-open2.png. Classification is a substring match on
// "closed" and "open" within the file name.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mouth is the expression state a frame image depicts
type Mouth int

const (
	MouthClosed Mouth = iota
	MouthOpen
)

func (m Mouth) String() string {
	switch m {
	case MouthOpen:
		return "open"
	default:
		return "closed"
	}
}

// Frame is one discovered expression image
type Frame struct {
	Path      string
	Character string
	Mouth     Mouth
}

// Set groups a character's frames by mouth state. Both slices are ordered
// by file name so selection indices are stable between runs.
type Set struct {
	Closed []Frame
	Open   []Frame
}

// DiscoveryError reports a character whose images cannot be assembled into
// a usable frame set
type DiscoveryError struct {
	Character string
	Dir       string
	Reason    string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover frames for %q in %s: %s", e.Character, e.Dir, e.Reason)
}

// Discover scans dir for the character's expression images and classifies
// them into closed and open sets. It fails if nothing matches the character
// prefix or if either state ends up empty.
func Discover(dir, character string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Set{}, fmt.Errorf("read frame directory: %w", err)
	}

	prefix := character + "-"
	matched := 0

	var set Set
	// os.ReadDir returns entries sorted by file name, which keeps the
	// classified slices in lexicographic order.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		matched++

		frame := Frame{
			Path:      filepath.Join(dir, name),
			Character: character,
		}

		switch {
		case strings.Contains(name, "closed"):
			frame.Mouth = MouthClosed
			set.Closed = append(set.Closed, frame)
		case strings.Contains(name, "open"):
			frame.Mouth = MouthOpen
			set.Open = append(set.Open, frame)
		}
	}

	if matched == 0 {
		return Set{}, &DiscoveryError{Character: character, Dir: dir, Reason: "no files match the character prefix"}
	}
	if len(set.Closed) == 0 {
		return Set{}, &DiscoveryError{Character: character, Dir: dir, Reason: "no closed-mouth frames"}
	}
	if len(set.Open) == 0 {
		return Set{}, &DiscoveryError{Character: character, Dir: dir, Reason: "no open-mouth frames"}
	}

	return set, nil
}
