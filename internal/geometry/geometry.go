// Package geometry provides the 2D primitives used to place video and
// overlay layers: sizes, rectangles and affine transforms, together with
// the orientation rules that turn a track's encoded size into its upright
// render size.
package geometry

import "fmt"

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Swapped returns the size with width and height exchanged.
func (s Size) Swapped() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// IsEmpty reports whether either dimension is not positive.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Rect is an axis-aligned rectangle. The origin is the top-left corner and
// y grows downward.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectOf returns the rectangle anchored at the origin with the given size.
func RectOf(s Size) Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// NaturalRenderSize returns the upright render size for a track whose
// encoded frames have the given natural size. Portrait tracks are stored
// rotated by a quarter turn, so their dimensions are swapped.
func NaturalRenderSize(natural Size, portrait bool) Size {
	if portrait {
		return natural.Swapped()
	}
	return natural
}
