package geom

// PointInConvexPolygon reports whether p lies inside the convex polygon given
// by its vertices in order. The polygon is fanned into triangles from the
// first vertex; fewer than three vertices never contain anything.
func PointInConvexPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}
	for i := 1; i < len(poly)-1; i++ {
		if PointInTriangle(p, poly[0], poly[i], poly[i+1]) {
			return true
		}
	}
	return false
}

// PointInTriangle reports whether p lies inside or on the triangle abc,
// independent of winding.
func PointInTriangle(p, a, b, c Point) bool {
	d1 := cross(p, a, b)
	d2 := cross(p, b, c)
	d3 := cross(p, c, a)

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func cross(p, a, b Point) float64 {
	return (p.X-b.X)*(a.Y-b.Y) - (a.X-b.X)*(p.Y-b.Y)
}
