package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// CoverScale scales so the image covers a size x size square, preserving
// aspect ratio; the longer side overflows and is cropped later
func (fb *FilterBuilder) CoverScale(size int) *FilterBuilder {
	if size <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", size, size))
	return fb
}

// CenterCrop crops a centered size x size square
func (fb *FilterBuilder) CenterCrop(size int) *FilterBuilder {
	if size <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d", size, size))
	return fb
}

// Format converts to the given pixel format
func (fb *FilterBuilder) Format(pix string) *FilterBuilder {
	if pix == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pix)
	return fb
}

// Rotate rotates by the given angle in degrees around the frame center,
// expanding the canvas to the rotated bounding box with a transparent fill
func (fb *FilterBuilder) Rotate(degrees float64) *FilterBuilder {
	angle := fmt.Sprintf("%g*PI/180", degrees)
	fb.filters = append(fb.filters, fmt.Sprintf("rotate=%s:fillcolor=none:ow=rotw(%s):oh=roth(%s)", angle, angle, angle))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
