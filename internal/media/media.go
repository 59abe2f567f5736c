// Package media defines the decode/encode engine the overlay export runs
// on: source assets and their tracks, editable compositions, video
// composition instructions and asynchronous export sessions. FFmpegEngine
// implements the engine on top of the ffmpeg and ffprobe CLIs.
package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/maauso/overlaymerge/internal/geometry"
)

// Kind is the media type of a track.
type Kind string

const (
	// KindVideo marks video tracks.
	KindVideo Kind = "video"
	// KindAudio marks audio tracks.
	KindAudio Kind = "audio"
)

// ErrInvalidTimeRange is returned for negative starts or durations.
var ErrInvalidTimeRange = errors.New("media: invalid time range")

// TimeRange is the half-open interval [Start, Start+Duration).
type TimeRange struct {
	Start    time.Duration
	Duration time.Duration
}

// NewTimeRange returns the range [start, start+duration).
func NewTimeRange(start, duration time.Duration) TimeRange {
	return TimeRange{Start: start, Duration: duration}
}

// End returns the exclusive end of the range.
func (r TimeRange) End() time.Duration {
	return r.Start + r.Duration
}

// IsEmpty reports whether the range covers no time.
func (r TimeRange) IsEmpty() bool {
	return r.Duration <= 0
}

// Contains reports whether other lies entirely inside r.
func (r TimeRange) Contains(other TimeRange) bool {
	return other.Start >= r.Start && other.End() <= r.End()
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End())
}

// Track is a single timed video or audio stream inside an asset.
type Track struct {
	// Source is the URI of the asset that owns the track.
	Source string
	// Index is the stream index within the source container.
	Index int
	Kind  Kind
	Codec string
	// NaturalSize is the encoded frame size; zero for audio.
	NaturalSize geometry.Size
	// PreferredTransform is how stored frames must be turned for display.
	PreferredTransform geometry.Transform
	// TimeRange is the span of the asset timeline the track covers.
	TimeRange TimeRange
}

// Asset is a decodable media container. Implementations are read-only.
type Asset interface {
	// URI identifies the asset for the engine.
	URI() string
	// Duration is the length of the asset timeline.
	Duration() time.Duration
	// Tracks returns the tracks of the given kind in container order.
	Tracks(kind Kind) []Track
}

// Compile-time check that FileAsset implements Asset.
var _ Asset = (*FileAsset)(nil)

// FileAsset is an Asset backed by a media file.
type FileAsset struct {
	Path    string
	Length  time.Duration
	Streams []Track
}

// URI returns the file path.
func (a *FileAsset) URI() string {
	return a.Path
}

// Duration returns the container duration.
func (a *FileAsset) Duration() time.Duration {
	return a.Length
}

// Tracks returns the tracks of the given kind in stream order.
func (a *FileAsset) Tracks(kind Kind) []Track {
	var out []Track
	for _, t := range a.Streams {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// seconds converts a duration to ffmpeg's fractional seconds notation.
func seconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}

// fromSeconds converts fractional seconds to a duration.
func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
