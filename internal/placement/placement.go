// Package placement resolves where an overlay is drawn inside the
// orientation-corrected video frame.
package placement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/overlaymerge/internal/geometry"
)

// ErrInvalidPlacement is returned when a placement description cannot be parsed.
var ErrInvalidPlacement = errors.New("placement: invalid placement")

// Kind identifies the placement policy.
type Kind int

const (
	// KindStretchToFit stretches the overlay over the entire frame. This is
	// the natural choice for drawings made on top of a video.
	KindStretchToFit Kind = iota
	// KindCustom draws the overlay at explicit coordinates.
	KindCustom
)

// Placement is an immutable overlay placement policy.
// The zero value is stretch-to-fit.
type Placement struct {
	kind Kind
	rect geometry.Rect
}

// StretchToFit returns the policy covering the whole render frame.
func StretchToFit() Placement {
	return Placement{kind: KindStretchToFit}
}

// Custom returns a policy drawing the overlay at the given rectangle.
// The rectangle is used verbatim: it is not clamped to the frame, so an
// out-of-frame rectangle yields a clipped or invisible overlay.
func Custom(x, y, width, height float64) Placement {
	return Placement{
		kind: KindCustom,
		rect: geometry.Rect{X: x, Y: y, Width: width, Height: height},
	}
}

// Kind returns the placement policy.
func (p Placement) Kind() Kind {
	return p.kind
}

// Rect returns the overlay rectangle in render-frame coordinates.
func (p Placement) Rect(renderSize geometry.Size) geometry.Rect {
	if p.kind == KindCustom {
		return p.rect
	}
	return geometry.RectOf(renderSize)
}

// String renders the placement in the form accepted by Parse.
func (p Placement) String() string {
	if p.kind != KindCustom {
		return "stretch"
	}
	r := p.rect
	return strings.Join([]string{
		formatFloat(r.X), formatFloat(r.Y), formatFloat(r.Width), formatFloat(r.Height),
	}, ",")
}

// Parse reads a placement from configuration text. Accepted forms are
// "stretch" (or an empty string) and "x,y,width,height".
func Parse(s string) (Placement, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "stretch", "stretch-to-fit", "stretchfit":
		return StretchToFit(), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Placement{}, fmt.Errorf("%w: %q: want \"stretch\" or \"x,y,width,height\"", ErrInvalidPlacement, s)
	}

	var values [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Placement{}, fmt.Errorf("%w: %q: %w", ErrInvalidPlacement, s, err)
		}
		values[i] = v
	}

	return Custom(values[0], values[1], values[2], values[3]), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
