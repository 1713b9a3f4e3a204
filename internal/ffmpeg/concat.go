package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/catpea/caricature/pkg/util"
)

// ConcatEntry is one frame artifact and its display duration in a
// concat-demuxer playlist
type ConcatEntry struct {
	Path     string
	Duration float64
}

// WriteConcat writes a concat-demuxer playlist to path. Each entry becomes
// a file/duration pair, and the final artifact is then repeated once more
// without a duration: the demuxer ignores the duration attached to the
// last listed file, so the repeat is what holds the true last frame on
// screen.
func WriteConcat(path string, entries []ConcatEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no playlist entries")
	}

	var b strings.Builder
	var last string

	for _, entry := range entries {
		abs, err := filepath.Abs(entry.Path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", entry.Path, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
		fmt.Fprintf(&b, "duration %s\n", util.FormatSeconds(entry.Duration))
		last = abs
	}

	fmt.Fprintf(&b, "file '%s'\n", last)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}

	return nil
}
