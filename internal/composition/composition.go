// Package composition assembles the editable composition and the video
// composition instructions for an overlay export.
package composition

import (
	"fmt"
	"time"

	"github.com/maauso/overlaymerge/internal/geometry"
	"github.com/maauso/overlaymerge/internal/layer"
	"github.com/maauso/overlaymerge/internal/media"
)

// Composition is the composition built for one merge together with the
// tracks that were added to it.
type Composition struct {
	Asset      *media.Composition
	VideoTrack *media.CompositionTrack
	// AudioTrack is nil when the source has no audio.
	AudioTrack *media.CompositionTrack
}

// Build creates a composition holding [0, duration) of the video track and,
// when audio is not nil, the same range of the audio track. It fails when
// either source track does not cover the range.
func Build(duration time.Duration, video media.Track, audio *media.Track) (*Composition, error) {
	span := media.NewTimeRange(0, duration)
	comp := media.NewComposition()

	videoTrack := comp.AddTrack(media.KindVideo)
	if err := videoTrack.InsertTimeRange(span, video, 0); err != nil {
		return nil, fmt.Errorf("insert video track: %w", err)
	}

	c := &Composition{Asset: comp, VideoTrack: videoTrack}
	if audio != nil {
		audioTrack := comp.AddTrack(media.KindAudio)
		if err := audioTrack.InsertTimeRange(span, *audio, 0); err != nil {
			return nil, fmt.Errorf("insert audio track: %w", err)
		}
		c.AudioTrack = audioTrack
	}

	return c, nil
}

// NewInstruction returns an instruction spanning [0, duration) that shows
// track with transform applied. The layer becomes transparent at duration
// so the encoder does not emit a stray frame past the end.
func NewInstruction(track *media.CompositionTrack, transform geometry.Transform, duration time.Duration) *media.Instruction {
	li := media.NewLayerInstruction(track.ID)
	li.SetTransform(transform)
	li.SetOpacity(1, 0)
	li.SetOpacity(0, duration)

	return &media.Instruction{
		TimeRange:         media.NewTimeRange(0, duration),
		LayerInstructions: []*media.LayerInstruction{li},
	}
}

// NewVideoComposition wraps a single instruction and the layer stack into a
// video composition rendering frameRate frames per second at renderSize.
func NewVideoComposition(renderSize geometry.Size, instruction *media.Instruction, frameRate int, stack *layer.Stack) *media.VideoComposition {
	return &media.VideoComposition{
		RenderSize:   renderSize,
		FrameRate:    frameRate,
		Instructions: []*media.Instruction{instruction},
		Layers:       stack,
	}
}
