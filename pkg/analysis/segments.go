// Package analysis summarizes a set of measured segments: their extent in
// world space and length statistics.
package analysis

import (
	"fmt"
	"sort"

	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// Segment is one measured start/end pair
type Segment struct {
	Start  geometry.Vector3
	End    geometry.Vector3
	Length float32
	Index  int
}

// NewSegment creates a segment and computes its straight-line length
func NewSegment(index int, start, end geometry.Vector3) Segment {
	return Segment{Start: start, End: end, Length: geometry.Distance(start, end), Index: index}
}

// Summary contains the aggregate of a set of segments
type Summary struct {
	Bounds    geometry.BoundingBox
	Count     int
	MinLength float32
	MaxLength float32
	AvgLength float32
	Total     float32
	Segments  []Segment
}

// Summarize aggregates segments. An empty input yields a zero summary.
func Summarize(segments []Segment) *Summary {
	result := &Summary{
		Bounds:   geometry.NewBoundingBox(),
		Count:    len(segments),
		Segments: make([]Segment, len(segments)),
	}
	copy(result.Segments, segments)

	if len(segments) == 0 {
		result.Bounds = geometry.BoundingBox{}
		return result
	}

	result.MinLength = segments[0].Length
	for _, s := range segments {
		result.Bounds.Extend(s.Start)
		result.Bounds.Extend(s.End)

		result.Total += s.Length
		result.MinLength = min(result.MinLength, s.Length)
		result.MaxLength = max(result.MaxLength, s.Length)
	}
	result.AvgLength = result.Total / float32(result.Count)

	return result
}

// FindByLength returns the segments whose length lies in [minLength, maxLength]
func FindByLength(result *Summary, minLength, maxLength float32) []Segment {
	var segments []Segment
	for _, s := range result.Segments {
		if s.Length >= minLength && s.Length <= maxLength {
			segments = append(segments, s)
		}
	}
	return segments
}

// FindLongest returns the N longest segments, longest first
func FindLongest(result *Summary, count int) []Segment {
	return sortedSegments(result, count, func(a, b Segment) bool { return a.Length > b.Length })
}

// FindShortest returns the N shortest segments, shortest first
func FindShortest(result *Summary, count int) []Segment {
	return sortedSegments(result, count, func(a, b Segment) bool { return a.Length < b.Length })
}

func sortedSegments(result *Summary, count int, less func(a, b Segment) bool) []Segment {
	segments := make([]Segment, len(result.Segments))
	copy(segments, result.Segments)

	sort.SliceStable(segments, func(i, j int) bool {
		return less(segments[i], segments[j])
	})

	count = max(0, min(count, len(segments)))
	return segments[:count]
}

// FormatVector formats a world position in meters
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
