package media

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Static errors for composition editing.
var (
	// ErrTimeRangeOutOfBounds is returned when a source track does not cover
	// the requested time range.
	ErrTimeRangeOutOfBounds = errors.New("media: time range not covered by source track")
	// ErrKindMismatch is returned when inserting a track of another media kind.
	ErrKindMismatch = errors.New("media: track kind mismatch")
)

// Segment maps a range of a source track onto the composition timeline.
type Segment struct {
	Source      Track
	SourceRange TimeRange
	// Target is where the segment plays on the composition timeline.
	Target TimeRange
}

// CompositionTrack is an editable track of a Composition.
type CompositionTrack struct {
	ID       int
	Kind     Kind
	Segments []Segment
}

// InsertTimeRange copies r of the source track into the composition track
// at the given offset. Segments already placed at or after the offset are
// pushed back by the inserted duration.
func (t *CompositionTrack) InsertTimeRange(r TimeRange, of Track, at time.Duration) error {
	if of.Kind != t.Kind {
		return fmt.Errorf("%w: cannot insert %s into %s track", ErrKindMismatch, of.Kind, t.Kind)
	}
	if r.Start < 0 || r.IsEmpty() || at < 0 {
		return fmt.Errorf("%w: %s at %s", ErrInvalidTimeRange, r, at)
	}
	if !of.TimeRange.Contains(r) {
		return fmt.Errorf("%w: source %s covers %s, want %s",
			ErrTimeRangeOutOfBounds, of.Source, of.TimeRange, r)
	}

	for i := range t.Segments {
		if t.Segments[i].Target.Start >= at {
			t.Segments[i].Target.Start += r.Duration
		}
	}
	t.Segments = append(t.Segments, Segment{
		Source:      of,
		SourceRange: r,
		Target:      NewTimeRange(at, r.Duration),
	})
	sort.SliceStable(t.Segments, func(i, j int) bool {
		return t.Segments[i].Target.Start < t.Segments[j].Target.Start
	})
	return nil
}

// TimeRange returns the span covered by the track's segments.
func (t *CompositionTrack) TimeRange() TimeRange {
	if len(t.Segments) == 0 {
		return TimeRange{}
	}
	start := t.Segments[0].Target.Start
	var end time.Duration
	for _, s := range t.Segments {
		if s.Target.End() > end {
			end = s.Target.End()
		}
	}
	return NewTimeRange(start, end-start)
}

// Composition is a mutable container of tracks assembled for export.
// It is not safe for concurrent mutation.
type Composition struct {
	tracks []*CompositionTrack
	nextID int
}

// NewComposition returns an empty composition.
func NewComposition() *Composition {
	return &Composition{nextID: 1}
}

// AddTrack appends a new empty track of the given kind.
func (c *Composition) AddTrack(kind Kind) *CompositionTrack {
	t := &CompositionTrack{ID: c.nextID, Kind: kind}
	c.nextID++
	c.tracks = append(c.tracks, t)
	return t
}

// Tracks returns the composition tracks of the given kind.
func (c *Composition) Tracks(kind Kind) []*CompositionTrack {
	var out []*CompositionTrack
	for _, t := range c.tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Track returns the track with the given ID, or nil.
func (c *Composition) Track(id int) *CompositionTrack {
	for _, t := range c.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Duration returns the end of the latest segment across all tracks.
func (c *Composition) Duration() time.Duration {
	var d time.Duration
	for _, t := range c.tracks {
		if end := t.TimeRange().End(); end > d {
			d = end
		}
	}
	return d
}
