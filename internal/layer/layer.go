// Package layer builds the render-layer graph handed to the rendering
// engine during export: a parent layer holding the decoded video layer and
// an overlay image layer stacked above it.
package layer

import (
	"image"

	"github.com/maauso/overlaymerge/internal/geometry"
)

// Kind tells the renderer what fills a layer.
type Kind int

const (
	// KindContainer layers only group sublayers.
	KindContainer Kind = iota
	// KindVideo layers are filled with decoded video frames during export.
	KindVideo
	// KindImage layers draw a static image for every output frame.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	default:
		return "container"
	}
}

// Layer is a node in the render graph. Frames are expressed in the
// coordinate space of the parent layer.
type Layer struct {
	Name  string
	Kind  Kind
	Frame geometry.Rect
	// Contents is drawn scaled to Frame for image layers.
	Contents image.Image
	// MasksToBounds clips the contents to Frame.
	MasksToBounds bool
	// Sublayers are drawn in order, later entries on top.
	Sublayers []*Layer
}

// AddSublayer appends l on top of the existing sublayers.
func (p *Layer) AddSublayer(l *Layer) {
	p.Sublayers = append(p.Sublayers, l)
}

// Stack is the layer graph used for one export.
type Stack struct {
	Parent  *Layer
	Video   *Layer
	Overlay *Layer
}

// Build assembles the layer graph for an overlay drawn at overlayRect on a
// frame of renderSize.
func Build(overlay image.Image, renderSize geometry.Size, overlayRect geometry.Rect) *Stack {
	frame := geometry.RectOf(renderSize)

	overlayLayer := &Layer{
		Name:          "overlay",
		Kind:          KindImage,
		Frame:         overlayRect,
		Contents:      overlay,
		MasksToBounds: true,
	}

	videoLayer := &Layer{
		Name:  "video",
		Kind:  KindVideo,
		Frame: frame,
	}

	parent := &Layer{
		Name:  "parent",
		Kind:  KindContainer,
		Frame: frame,
	}
	parent.AddSublayer(videoLayer)
	parent.AddSublayer(overlayLayer)

	return &Stack{Parent: parent, Video: videoLayer, Overlay: overlayLayer}
}

// ImageLayers returns the image layers of the parent in drawing order.
func (s *Stack) ImageLayers() []*Layer {
	var out []*Layer
	for _, l := range s.Parent.Sublayers {
		if l.Kind == KindImage {
			out = append(out, l)
		}
	}
	return out
}
