package geom

// Line is an infinite line through two points. A Line built from two
// coincident points degenerates to that point.
type Line struct {
	A, B Point
}

// LineThrough returns the line through a and b.
func LineThrough(a, b Point) Line {
	return Line{A: a, B: b}
}

// Project returns the foot of the perpendicular dropped from p onto the line.
func (l Line) Project(p Point) Point {
	dir := l.B.Sub(l.A)
	lenSq := dir.Dot(dir)
	if lenSq == 0 {
		return l.A
	}
	t := p.Sub(l.A).Dot(dir) / lenSq
	return l.A.Add(dir.Mul(t))
}

// Vec is a guide vector anchored at Origin and pointing along Dir.
type Vec struct {
	Origin Point
	Dir    Point
}

// VecBetween returns the vector from a towards b.
func VecBetween(a, b Point) Vec {
	return Vec{Origin: a, Dir: b.Sub(a)}
}

// Project returns the normal projection of p onto the vector's supporting line.
func (v Vec) Project(p Point) Point {
	return Line{A: v.Origin, B: v.Origin.Add(v.Dir)}.Project(p)
}
