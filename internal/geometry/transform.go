package geometry

import (
	"fmt"
	"math"
)

// epsilon absorbs the float noise left by trigonometric round trips.
const epsilon = 1e-6

// Transform is a 2D affine transform in row-vector form:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
//
// This is the layout used by container display matrices, so a clockwise
// quarter turn is {A: 0, B: 1, C: -1, D: 0}.
type Transform struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// Identity is the transform that leaves every point unchanged.
var Identity = Transform{A: 1, D: 1}

// Rotation returns a transform rotating by theta radians. Positive angles
// turn clockwise on screen (y grows downward).
func Rotation(theta float64) Transform {
	sin, cos := math.Sincos(theta)
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// RotationDegrees is Rotation with the angle given in degrees.
func RotationDegrees(deg float64) Transform {
	return Rotation(deg * math.Pi / 180)
}

// Determinant returns the determinant of the linear part.
func (t Transform) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}

// IsReflected reports whether the transform mirrors the image.
func (t Transform) IsReflected() bool {
	return t.Determinant() < 0
}

func (t Transform) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", t.A, t.B, t.C, t.D, t.Tx, t.Ty)
}

// Decomposition splits the linear part of a transform into
// rotation · [[ScaleX, Shear*ScaleY], [0, ScaleY]].
type Decomposition struct {
	// Rotation is the rotation angle in radians, in (-π, π].
	Rotation float64
	ScaleX   float64
	// ScaleY is negative when the transform contains a reflection.
	ScaleY float64
	// Shear is zero when the transformed axes stay perpendicular.
	Shear float64
}

// Decompose factors the transform into rotation, scale and shear.
func (t Transform) Decompose() Decomposition {
	sx := math.Hypot(t.A, t.B)
	if sx < epsilon {
		return Decomposition{}
	}
	theta := math.Atan2(t.B, t.A)
	m := (t.A*t.C + t.B*t.D) / sx
	sy := t.Determinant() / sx

	shear := m
	if math.Abs(sy) >= epsilon {
		shear = m / sy
	}
	return Decomposition{Rotation: theta, ScaleX: sx, ScaleY: sy, Shear: shear}
}

// QuarterTurns returns the number of clockwise quarter turns in [0,3]
// described by the transform. ok is false when the transform is degenerate,
// sheared, or rotated by an angle that is not a multiple of 90°.
func (t Transform) QuarterTurns() (turns int, ok bool) {
	d := t.Decompose()
	if d.ScaleX < epsilon || math.Abs(d.ScaleY) < epsilon {
		return 0, false
	}
	if math.Abs(d.Shear) > epsilon {
		return 0, false
	}
	q := d.Rotation / (math.Pi / 2)
	n := math.Round(q)
	if math.Abs(q-n) > epsilon {
		return 0, false
	}
	return ((int(n) % 4) + 4) % 4, true
}

// IsPortrait reports whether the transform is a pure quarter or three
// quarter turn of the stored pixels. Reflections, scaling and transforms
// that are not axis-aligned are never portrait.
func (t Transform) IsPortrait() bool {
	if t.IsReflected() {
		return false
	}
	d := t.Decompose()
	if math.Abs(d.ScaleX-1) > epsilon || math.Abs(d.ScaleY-1) > epsilon {
		return false
	}
	turns, ok := t.QuarterTurns()
	return ok && turns%2 == 1
}
