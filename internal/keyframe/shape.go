package keyframe

import (
	"fmt"

	"github.com/inamate/kfedit/internal/geom"
)

// Kind identifies the variant of a Shape.
type Kind string

const (
	KindRect   Kind = "rect"
	KindAffine Kind = "affine"
	KindLine   Kind = "line"
)

// Shape is the value a geometry property takes at one keyframe. It is a
// closed sum type: the only implementations are Rect, Affine and Line.
// All variants are plain values, so assigning a Shape copies it.
type Shape interface {
	Kind() Kind
	isShape()
}

// Rect is an axis-aligned box in source pixels. Editors keep W and H >= 1.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Affine positions a source image by its anchor (center) with anisotropic
// scale and a rotation in degrees applied around the anchor.
type Affine struct {
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	ScaleX      float64 `json:"scaleX" yaml:"scaleX"`
	ScaleY      float64 `json:"scaleY" yaml:"scaleY"`
	RotationDeg float64 `json:"rotation" yaml:"rotation"`
}

// Line is two free points, e.g. the axis of a gradient.
type Line struct {
	P1 geom.Point `json:"p1" yaml:"p1"`
	P2 geom.Point `json:"p2" yaml:"p2"`
}

func (Rect) Kind() Kind   { return KindRect }
func (Affine) Kind() Kind { return KindAffine }
func (Line) Kind() Kind   { return KindLine }

func (Rect) isShape()   {}
func (Affine) isShape() {}
func (Line) isShape()   {}

// Bounds returns the rect as a geom.Rect.
func (r Rect) Bounds() geom.Rect {
	return geom.Rect{X: r.X, Y: r.Y, Width: r.W, Height: r.H}
}

// Components flattens a shape into its scalar fields in a fixed order.
func Components(s Shape) []float64 {
	switch v := s.(type) {
	case Rect:
		return []float64{v.X, v.Y, v.W, v.H}
	case Affine:
		return []float64{v.X, v.Y, v.ScaleX, v.ScaleY, v.RotationDeg}
	case Line:
		return []float64{v.P1.X, v.P1.Y, v.P2.X, v.P2.Y}
	default:
		panic(fmt.Sprintf("keyframe: unknown shape %T", s))
	}
}

// FromComponents is the inverse of Components.
func FromComponents(kind Kind, c []float64) (Shape, error) {
	want := componentCount(kind)
	if want == 0 {
		return nil, fmt.Errorf("unknown shape kind %q", kind)
	}
	if len(c) != want {
		return nil, fmt.Errorf("%s needs %d components, got %d", kind, want, len(c))
	}

	switch kind {
	case KindRect:
		return Rect{X: c[0], Y: c[1], W: c[2], H: c[3]}, nil
	case KindAffine:
		return Affine{X: c[0], Y: c[1], ScaleX: c[2], ScaleY: c[3], RotationDeg: c[4]}, nil
	default:
		return Line{P1: geom.Pt(c[0], c[1]), P2: geom.Pt(c[2], c[3])}, nil
	}
}

func componentCount(kind Kind) int {
	switch kind {
	case KindRect, KindLine:
		return 4
	case KindAffine:
		return 5
	default:
		return 0
	}
}
