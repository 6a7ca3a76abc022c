package geom

import "math"

// AngleDeg returns the unsigned angle in degrees at corner between the rays
// corner→p1 and corner→p2, in [0, 180]. A zero-length ray yields 0.
func AngleDeg(p1, corner, p2 Point) float64 {
	return AngleRad(p1, corner, p2) * 180.0 / math.Pi
}

// AngleRad is AngleDeg in radians, computed with the law of cosines.
func AngleRad(p1, corner, p2 Point) float64 {
	side1 := Distance(p1, corner)
	side2 := Distance(p2, corner)
	if side1 == 0 || side2 == 0 {
		return 0
	}
	opposite := Distance(p1, p2)
	cos := (side1*side1 + side2*side2 - opposite*opposite) / (2 * side1 * side2)
	cos = max(-1, min(1, cos))
	return math.Acos(cos)
}

// Clockwise reports whether p1, p2, p3 are in clockwise order using the
// shoelace edge sum. Collinear points are not clockwise.
func Clockwise(p1, p2, p3 Point) bool {
	e1 := (p2.X - p1.X) * (p2.Y + p1.Y)
	e2 := (p3.X - p2.X) * (p3.Y + p2.Y)
	e3 := (p1.X - p3.X) * (p1.Y + p3.Y)
	return e1+e2+e3 > 0
}

// RotateAroundPoint rotates p by degrees around anchor.
func RotateAroundPoint(degrees float64, p, anchor Point) Point {
	return RotateAround(anchor, degrees).Apply(p)
}
