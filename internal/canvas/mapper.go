package canvas

import "github.com/inamate/kfedit/internal/geom"

// Mapper converts between panel coordinates (the editor widget) and source
// pixel coordinates (the clip's native frame). The simulated screen is
// centered in the panel and takes YFract of its height.
type Mapper struct {
	SourceW     float64
	SourceH     float64
	PixelAspect float64

	panelW float64
	panelH float64
	yFract float64

	ScreenW float64
	ScreenH float64
	OriginX float64
	OriginY float64
	XScale  float64 // panel to source
	YScale  float64
}

// NewMapper creates a mapper for a source of the given size. Panel size and
// screen fraction are supplied later with Resize.
func NewMapper(sourceW, sourceH, pixelAspect float64) *Mapper {
	if pixelAspect <= 0 {
		pixelAspect = 1
	}
	return &Mapper{SourceW: sourceW, SourceH: sourceH, PixelAspect: pixelAspect}
}

// Resize recomputes the mapping for a new panel allocation and screen fraction.
func (m *Mapper) Resize(panelW, panelH, yFract float64) {
	m.panelW = panelW
	m.panelH = panelH
	m.yFract = yFract
	m.recompute()
}

// SetYFract changes the screen fraction keeping the panel size.
func (m *Mapper) SetYFract(yFract float64) {
	m.yFract = yFract
	m.recompute()
}

// Panel returns the panel allocation.
func (m *Mapper) Panel() (w, h float64) {
	return m.panelW, m.panelH
}

// Ready reports whether the mapping can be used.
func (m *Mapper) Ready() bool {
	return m.SourceW > 0 && m.SourceH > 0 && m.ScreenW > 0 && m.ScreenH > 0
}

func (m *Mapper) recompute() {
	if m.SourceW <= 0 || m.SourceH <= 0 || m.panelH <= 0 || m.yFract <= 0 {
		m.ScreenW, m.ScreenH = 0, 0
		return
	}
	screenRatio := m.SourceW / m.SourceH
	m.ScreenH = m.panelH * m.yFract
	m.ScreenW = m.ScreenH * screenRatio * m.PixelAspect
	m.OriginX = (m.panelW - m.ScreenW) / 2.0
	m.OriginY = (m.panelH - m.ScreenH) / 2.0
	m.XScale = m.SourceW / m.ScreenW
	m.YScale = m.SourceH / m.ScreenH
}

// ToSource maps a panel point into source pixels.
func (m *Mapper) ToSource(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - m.OriginX) * m.XScale,
		Y: (p.Y - m.OriginY) * m.YScale,
	}
}

// ToPanel maps a source point into the panel.
func (m *Mapper) ToPanel(p geom.Point) geom.Point {
	return geom.Point{
		X: m.OriginX + p.X/m.XScale,
		Y: m.OriginY + p.Y/m.YScale,
	}
}

// DeltaToSource maps a panel-space offset into a source-space offset.
func (m *Mapper) DeltaToSource(d geom.Point) geom.Point {
	return geom.Point{X: d.X * m.XScale, Y: d.Y * m.YScale}
}

// ScreenRect is the simulated screen in panel coordinates.
func (m *Mapper) ScreenRect() geom.Rect {
	return geom.Rect{X: m.OriginX, Y: m.OriginY, Width: m.ScreenW, Height: m.ScreenH}
}
