package canvas

import "github.com/inamate/kfedit/internal/geom"

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	ColorBackground = Color{0.75, 0.75, 0.77, 1}
	ColorScreen     = Color{0.6, 0.6, 0.6, 1}
	ColorEdge       = Color{0, 0, 0, 1}
	ColorShape      = Color{0, 0, 0, 1}
	ColorProjection = Color{0, 1, 0, 1}
	ColorGuide      = Color{0, 0, 0.77, 1}
	ColorArrowFill  = Color{1, 1, 1, 1}
	ColorVeil       = Color{0.75, 0.75, 0.77, 0.65}
)

// Surface is the render sink supplied by the host. All coordinates are
// panel coordinates.
type Surface interface {
	// Polyline strokes the points in order, closing the path when closed is set.
	Polyline(points []geom.Point, closed bool, c Color, width float64)
	// FillPolygon fills the polygon given by points.
	FillPolygon(points []geom.Point, c Color)
}

func fillBox(s Surface, center geom.Point, half float64, c Color) {
	s.FillPolygon([]geom.Point{
		{X: center.X - half, Y: center.Y - half},
		{X: center.X + half, Y: center.Y - half},
		{X: center.X + half, Y: center.Y + half},
		{X: center.X - half, Y: center.Y + half},
	}, c)
}

func rectPath(r geom.Rect) []geom.Point {
	return []geom.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

func drawCross(s Surface, center geom.Point, half float64, c Color) {
	s.Polyline([]geom.Point{{X: center.X - half, Y: center.Y}, {X: center.X + half, Y: center.Y}}, false, c, 1)
	s.Polyline([]geom.Point{{X: center.X, Y: center.Y - half}, {X: center.X, Y: center.Y + half}}, false, c, 1)
}

// arcPoints samples an arc of radius r around center from a0 to a1 degrees.
func arcPoints(center geom.Point, r, a0, a1 float64, steps int) []geom.Point {
	pts := make([]geom.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		pts = append(pts, geom.RotateAroundPoint(a, geom.Pt(center.X+r, center.Y), center))
	}
	return pts
}

// placed maps local glyph points into the panel rotated by degrees around origin.
func placed(origin geom.Point, degrees float64, local []geom.Point) []geom.Point {
	m := geom.Translate(origin.X, origin.Y).Multiply(geom.RotateDegrees(degrees))
	out := make([]geom.Point, len(local))
	for i, p := range local {
		out[i] = m.Apply(p)
	}
	return out
}
