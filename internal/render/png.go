// Package render rasterizes editor overlays into images, e.g. PNG previews
// of a property at a frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/geom"
)

// Raster is a canvas.Surface backed by an RGBA image.
type Raster struct {
	img *image.RGBA
	z   vector.Rasterizer
}

var _ canvas.Surface = (*Raster)(nil)

// NewRaster creates a transparent w×h raster.
func NewRaster(w, h int) *Raster {
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image returns the rendered image.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) FillPolygon(points []geom.Point, c canvas.Color) {
	if len(points) < 3 {
		return
	}
	r.begin()
	r.path(points)
	r.draw(c)
}

// Polyline strokes each segment as a quad of the given width.
func (r *Raster) Polyline(points []geom.Point, closed bool, c canvas.Color, width float64) {
	if len(points) < 2 {
		return
	}
	width = max(width, 1)

	r.begin()
	n := len(points)
	if !closed {
		n--
	}
	for i := 0; i < n; i++ {
		a, b := points[i], points[(i+1)%len(points)]
		if quad, ok := segmentQuad(a, b, width/2); ok {
			r.path(quad)
		}
	}
	r.draw(c)
}

func (r *Raster) begin() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over
}

func (r *Raster) path(points []geom.Point) {
	r.z.MoveTo(float32(points[0].X), float32(points[0].Y))
	for _, p := range points[1:] {
		r.z.LineTo(float32(p.X), float32(p.Y))
	}
	r.z.ClosePath()
}

func (r *Raster) draw(c canvas.Color) {
	src := image.NewUniform(toNRGBA(c))
	r.z.Draw(r.img, r.img.Bounds(), src, image.Point{})
}

// segmentQuad returns the rectangle of half-width hw around segment ab,
// extended by hw at both ends so joints are covered.
func segmentQuad(a, b geom.Point, hw float64) ([]geom.Point, bool) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return nil, false
	}
	u := d.Mul(1 / l)
	n := geom.Pt(-u.Y, u.X).Mul(hw)
	a = a.Sub(u.Mul(hw))
	b = b.Add(u.Mul(hw))
	return []geom.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, true
}

func toNRGBA(c canvas.Color) color.NRGBA {
	to8 := func(v float64) uint8 { return uint8(max(0, min(1, v))*255 + 0.5) }
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

// EncodePNG writes the raster as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
