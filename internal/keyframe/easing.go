package keyframe

import "math"

// Easing names a curve that reshapes the segment fraction before blending.
type Easing string

const (
	EasingLinear     Easing = "linear"
	EasingEaseIn     Easing = "easeIn"
	EasingEaseOut    Easing = "easeOut"
	EasingEaseInOut  Easing = "easeInOut"
	EasingCubicIn    Easing = "cubicIn"
	EasingCubicOut   Easing = "cubicOut"
	EasingCubicInOut Easing = "cubicInOut"
	EasingBackIn     Easing = "backIn"
	EasingBackOut    Easing = "backOut"
	EasingBackInOut  Easing = "backInOut"
	EasingElasticOut Easing = "elasticOut"
	EasingBounceOut  Easing = "bounceOut"
)

// Easings lists every supported easing.
var Easings = []Easing{
	EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut,
	EasingCubicIn, EasingCubicOut, EasingCubicInOut,
	EasingBackIn, EasingBackOut, EasingBackInOut,
	EasingElasticOut, EasingBounceOut,
}

// applyEasing applies an easing function to interpolation factor t (0-1).
func applyEasing(t float64, easing Easing) float64 {
	switch easing {
	case EasingEaseIn:
		return t * t

	case EasingEaseOut:
		return t * (2 - t)

	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EasingCubicIn:
		return t * t * t

	case EasingCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2

	case EasingBackIn:
		c1 := 1.70158
		c3 := c1 + 1
		return c3*t*t*t - c1*t*t

	case EasingBackOut:
		c1 := 1.70158
		c3 := c1 + 1
		t2 := t - 1
		return 1 + c3*t2*t2*t2 + c1*t2*t2

	case EasingBackInOut:
		c1 := 1.70158
		c2 := c1 * 1.525
		if t < 0.5 {
			return (math.Pow(2*t, 2) * ((c2+1)*2*t - c2)) / 2
		}
		return (math.Pow(2*t-2, 2)*((c2+1)*(t*2-2)+c2) + 2) / 2

	case EasingElasticOut:
		if t == 0 || t == 1 {
			return t
		}
		c4 := (2 * math.Pi) / 3
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1

	case EasingBounceOut:
		return bounceOut(t)

	default: // linear
		return t
	}
}

// bounceOut implements the standard 4-segment parabolic bounce curve.
func bounceOut(t float64) float64 {
	n1 := 7.5625
	d1 := 2.75
	if t < 1/d1 {
		return n1 * t * t
	} else if t < 2/d1 {
		t -= 1.5 / d1
		return n1*t*t + 0.75
	} else if t < 2.5/d1 {
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	} else {
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
