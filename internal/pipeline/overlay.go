package pipeline

import (
	"strconv"
	"strings"
)

// Anchor names the corner of the base video an overlay is pinned to
type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
)

// ParseAnchor maps a position name to an anchor. Unknown names fall back
// to the bottom-right corner rather than failing the run.
func ParseAnchor(name string) Anchor {
	switch Anchor(strings.ToLower(strings.TrimSpace(name))) {
	case AnchorTopLeft:
		return AnchorTopLeft
	case AnchorTopRight:
		return AnchorTopRight
	case AnchorBottomLeft:
		return AnchorBottomLeft
	case AnchorBottomRight:
		return AnchorBottomRight
	default:
		return AnchorBottomRight
	}
}

// Exprs returns overlay x/y position expressions that ffmpeg evaluates
// against the real stream dimensions, so placement holds whatever size
// the base video turns out to be
func (a Anchor) Exprs(margin int) (x, y string) {
	m := strconv.Itoa(margin)
	right := "main_w-overlay_w-" + m
	bottom := "main_h-overlay_h-" + m

	switch a {
	case AnchorTopLeft:
		return m, m
	case AnchorTopRight:
		return right, m
	case AnchorBottomLeft:
		return m, bottom
	default:
		return right, bottom
	}
}

// Offset resolves the anchor numerically for known dimensions
func (a Anchor) Offset(baseW, baseH, overlayW, overlayH, margin int) (x, y int) {
	right := baseW - overlayW - margin
	bottom := baseH - overlayH - margin

	switch a {
	case AnchorTopLeft:
		return margin, margin
	case AnchorTopRight:
		return right, margin
	case AnchorBottomLeft:
		return margin, bottom
	default:
		return right, bottom
	}
}
