package media

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/maauso/overlaymerge/internal/geometry"
	"github.com/maauso/overlaymerge/internal/layer"
)

// ErrInvalidVideoComposition is returned when a video composition cannot be rendered.
var ErrInvalidVideoComposition = errors.New("media: invalid video composition")

// OpacityKey sets a layer's opacity from At onward.
type OpacityKey struct {
	At    time.Duration
	Value float64
}

// LayerInstruction describes how one composition track is presented.
type LayerInstruction struct {
	TrackID   int
	Transform geometry.Transform
	Opacity   []OpacityKey
}

// NewLayerInstruction returns an instruction showing the track untransformed
// at full opacity.
func NewLayerInstruction(trackID int) *LayerInstruction {
	return &LayerInstruction{TrackID: trackID, Transform: geometry.Identity}
}

// SetTransform sets the transform applied to the track's frames.
func (li *LayerInstruction) SetTransform(t geometry.Transform) {
	li.Transform = t
}

// SetOpacity sets the opacity from at onward, replacing any key at the same time.
func (li *LayerInstruction) SetOpacity(value float64, at time.Duration) {
	for i := range li.Opacity {
		if li.Opacity[i].At == at {
			li.Opacity[i].Value = value
			return
		}
	}
	li.Opacity = append(li.Opacity, OpacityKey{At: at, Value: value})
	sort.Slice(li.Opacity, func(i, j int) bool { return li.Opacity[i].At < li.Opacity[j].At })
}

// OpacityAt returns the opacity in effect at t. Layers are opaque until
// the first key.
func (li *LayerInstruction) OpacityAt(t time.Duration) float64 {
	v := 1.0
	for _, k := range li.Opacity {
		if k.At > t {
			break
		}
		v = k.Value
	}
	return v
}

// VisibleUntil returns the first time at which the layer becomes fully
// transparent, capped at limit.
func (li *LayerInstruction) VisibleUntil(limit time.Duration) time.Duration {
	for _, k := range li.Opacity {
		if k.At >= limit {
			break
		}
		if k.Value <= 0 {
			return k.At
		}
	}
	return limit
}

// Instruction applies layer instructions over a range of the composition.
type Instruction struct {
	TimeRange         TimeRange
	LayerInstructions []*LayerInstruction
}

// LayerInstruction returns the layer instruction for a track, or nil.
func (in *Instruction) LayerInstruction(trackID int) *LayerInstruction {
	for _, li := range in.LayerInstructions {
		if li.TrackID == trackID {
			return li
		}
	}
	return nil
}

// VideoComposition tells the engine how to render the composition's video:
// output geometry, frame cadence, per-range instructions and the layer
// graph the decoded frames are drawn into.
type VideoComposition struct {
	RenderSize   geometry.Size
	FrameRate    int
	Instructions []*Instruction
	Layers       *layer.Stack
}

// FrameDuration is the duration of one output frame.
func (vc *VideoComposition) FrameDuration() time.Duration {
	if vc.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(vc.FrameRate)
}

// Validate checks that the composition can be rendered.
func (vc *VideoComposition) Validate() error {
	switch {
	case vc.RenderSize.IsEmpty():
		return fmt.Errorf("%w: render size %s", ErrInvalidVideoComposition, vc.RenderSize)
	case vc.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate %d", ErrInvalidVideoComposition, vc.FrameRate)
	case len(vc.Instructions) == 0:
		return fmt.Errorf("%w: no instructions", ErrInvalidVideoComposition)
	case vc.Layers == nil || vc.Layers.Parent == nil || vc.Layers.Video == nil:
		return fmt.Errorf("%w: missing parent or video layer", ErrInvalidVideoComposition)
	}
	return nil
}

// InstructionFor returns the instruction covering the track at the start
// of the timeline, along with its layer instruction.
func (vc *VideoComposition) InstructionFor(trackID int) (*Instruction, *LayerInstruction) {
	for _, in := range vc.Instructions {
		if li := in.LayerInstruction(trackID); li != nil {
			return in, li
		}
	}
	return nil, nil
}
