package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/geom"
)

func TestFillPolygon(t *testing.T) {
	r := NewRaster(20, 20)
	r.FillPolygon([]geom.Point{{X: 2, Y: 2}, {X: 10, Y: 2}, {X: 10, Y: 10}, {X: 2, Y: 10}}, canvas.Color{R: 1, A: 1})

	if got := r.Image().RGBAAt(5, 5); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("inside pixel = %v, want opaque red", got)
	}
	if got := r.Image().RGBAAt(15, 15); got.A != 0 {
		t.Errorf("outside pixel = %v, want transparent", got)
	}
}

func TestPolyline(t *testing.T) {
	r := NewRaster(20, 20)
	r.Polyline([]geom.Point{{X: 0, Y: 10}, {X: 20, Y: 10}}, false, canvas.Color{B: 1, A: 1}, 4)

	if got := r.Image().RGBAAt(10, 10); got.B != 255 {
		t.Errorf("on the line = %v, want blue", got)
	}
	if got := r.Image().RGBAAt(10, 2); got.A != 0 {
		t.Errorf("off the line = %v, want transparent", got)
	}
}

func TestEncodePNG(t *testing.T) {
	r := NewRaster(8, 6)
	r.FillPolygon([]geom.Point{{X: 0, Y: 0}, {X: 8, Y: 0}, {X: 8, Y: 6}}, canvas.ColorScreen)

	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("bounds = %v", b)
	}
}
