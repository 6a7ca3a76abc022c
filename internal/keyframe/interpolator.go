package keyframe

import "fmt"

// Interpolator blends one scalar component across a Smooth segment.
// y1 and y2 are the segment's start and end values; y0 and y3 are the
// neighbouring keyframes' values (clamped to the segment ends at the edges
// of the track). t runs from 0 at y1 to 1 at y2.
type Interpolator interface {
	Interpolate(y0, y1, y2, y3, t float64) float64
}

// Linear is the default interpolator.
type Linear struct{}

func (Linear) Interpolate(_, y1, y2, _, t float64) float64 {
	return lerp(y1, y2, t)
}

// CatmullRom is a uniform Catmull-Rom spline through the four values.
type CatmullRom struct{}

func (CatmullRom) Interpolate(y0, y1, y2, y3, t float64) float64 {
	t2 := t * t
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return a0*t*t2 + a1*t2 + a2*t + a3
}

// Eased blends linearly after reshaping t with an easing curve.
type Eased struct {
	Easing Easing
}

func (e Eased) Interpolate(_, y1, y2, _, t float64) float64 {
	return lerp(y1, y2, applyEasing(t, e.Easing))
}

// InterpolatorByName resolves the names accepted in configuration:
// "linear", "catmull-rom", or any Easing name.
func InterpolatorByName(name string) (Interpolator, error) {
	switch name {
	case "", "linear":
		return Linear{}, nil
	case "catmull-rom", "catmullrom":
		return CatmullRom{}, nil
	}
	for _, e := range Easings {
		if string(e) == name {
			return Eased{Easing: e}, nil
		}
	}
	return nil, fmt.Errorf("unknown interpolator %q", name)
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
