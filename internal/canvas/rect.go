package canvas

import (
	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

// Rect handle ids, numbered clockwise so that handle i and (i+4)%8 are
// opposite.
const (
	TopLeft Hit = iota
	TopMiddle
	TopRight
	MiddleRight
	BottomRight
	BottomMiddle
	BottomLeft
	MiddleLeft
)

// RectHandleHalf is the half-width of a rect handle's hit box in panel pixels.
const RectHandleHalf = 4.0

// minRectSize is the smallest width and height a drag can produce.
const minRectSize = 1.0

// RectEditor edits an axis-aligned box with corner and edge handles.
type RectEditor struct {
	m    *Mapper
	rect keyframe.Rect

	// projection is the guide-line point of a handle drag, source space.
	projection *geom.Point
}

type rectDrag struct {
	handle    Hit
	guide     geom.Line
	start     geom.Point
	opposite  geom.Point
	startRect keyframe.Rect
}

// NewRectEditor creates a rect editor over the mapper.
func NewRectEditor(m *Mapper) *RectEditor {
	return &RectEditor{m: m, rect: keyframe.Rect{W: m.SourceW, H: m.SourceH}}
}

func (e *RectEditor) Kind() keyframe.Kind { return keyframe.KindRect }

func (e *RectEditor) Ready() bool { return e.m.Ready() }

func (e *RectEditor) SetShape(s keyframe.Shape) error {
	r, ok := s.(keyframe.Rect)
	if !ok {
		return keyframe.ErrKindMismatch
	}
	e.rect = r
	return nil
}

func (e *RectEditor) Shape() keyframe.Shape { return e.rect }

// points returns the eight handle positions in source space, by handle id.
func (e *RectEditor) points() [8]geom.Point {
	r := e.rect
	return [8]geom.Point{
		TopLeft:      {X: r.X, Y: r.Y},
		TopMiddle:    {X: r.X + r.W/2, Y: r.Y},
		TopRight:     {X: r.X + r.W, Y: r.Y},
		MiddleRight:  {X: r.X + r.W, Y: r.Y + r.H/2},
		BottomRight:  {X: r.X + r.W, Y: r.Y + r.H},
		BottomMiddle: {X: r.X + r.W/2, Y: r.Y + r.H},
		BottomLeft:   {X: r.X, Y: r.Y + r.H},
		MiddleLeft:   {X: r.X, Y: r.Y + r.H/2},
	}
}

func (e *RectEditor) Handles() ([]Handle, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}
	pts := e.points()
	out := make([]Handle, len(pts))
	for i, p := range pts {
		out[i] = Handle{ID: Hit(i), Pos: e.m.ToPanel(p)}
	}
	return out, nil
}

func (e *RectEditor) HitTest(p geom.Point) Hit {
	if !e.Ready() {
		return NoHit
	}
	for i, hp := range e.points() {
		if geom.WithinBox(p, e.m.ToPanel(hp), RectHandleHalf) {
			return Hit(i)
		}
	}

	tl := e.m.ToPanel(geom.Pt(e.rect.X, e.rect.Y))
	br := e.m.ToPanel(geom.Pt(e.rect.X+e.rect.W, e.rect.Y+e.rect.H))
	if p.X >= tl.X && p.X <= br.X && p.Y >= tl.Y && p.Y <= br.Y {
		return AreaHit
	}
	return NoHit
}

func (e *RectEditor) DragStart(g *Gesture) {
	d := &rectDrag{handle: g.Hit, startRect: e.rect}
	if g.Hit != AreaHit {
		pts := e.points()
		d.start = pts[g.Hit]
		d.opposite = pts[(g.Hit+4)%8]
		d.guide = geom.LineThrough(d.start, d.opposite)
		start := d.start
		e.projection = &start
	}
	g.state = d
}

func (e *RectEditor) DragUpdate(g *Gesture) {
	d, ok := g.state.(*rectDrag)
	if !ok {
		return
	}
	delta := e.m.DeltaToSource(g.Delta)

	if d.handle == AreaHit {
		e.rect.X = d.startRect.X + delta.X
		e.rect.Y = d.startRect.Y + delta.Y
		return
	}

	l := d.guide.Project(d.start.Add(delta))
	e.projection = &l

	op := d.opposite
	sw, sh := d.startRect.W, d.startRect.H
	var r keyframe.Rect
	switch d.handle {
	case TopLeft:
		r = keyframe.Rect{X: l.X, Y: l.Y, W: op.X - l.X, H: op.Y - l.Y}
	case BottomRight:
		r = keyframe.Rect{X: op.X, Y: op.Y, W: l.X - op.X, H: l.Y - op.Y}
	case BottomLeft:
		r = keyframe.Rect{X: l.X, Y: op.Y, W: op.X - l.X, H: l.Y - op.Y}
	case TopRight:
		r = keyframe.Rect{X: op.X, Y: l.Y, W: l.X - op.X, H: op.Y - l.Y}
	case MiddleRight:
		r = keyframe.Rect{X: op.X, Y: op.Y - sh/2, W: l.X - op.X, H: sh}
	case MiddleLeft:
		r = keyframe.Rect{X: l.X, Y: op.Y - sh/2, W: op.X - l.X, H: sh}
	case TopMiddle:
		r = keyframe.Rect{X: op.X - sw/2, Y: l.Y, W: sw, H: op.Y - l.Y}
	case BottomMiddle:
		r = keyframe.Rect{X: op.X - sw/2, Y: op.Y, W: sw, H: l.Y - op.Y}
	default:
		return
	}

	// No negative size
	r.W = max(r.W, minRectSize)
	r.H = max(r.H, minRectSize)
	e.rect = r
}

func (e *RectEditor) DragCommit(g *Gesture) {
	e.DragUpdate(g)
	e.projection = nil
}

func (e *RectEditor) Render(s Surface) {
	pts := e.points()
	box := make([]geom.Point, 0, 4)
	for _, id := range []Hit{TopLeft, TopRight, BottomRight, BottomLeft} {
		box = append(box, e.m.ToPanel(pts[id]))
	}
	s.Polyline(box, true, ColorShape, 1)

	for _, p := range pts {
		fillBox(s, e.m.ToPanel(p), RectHandleHalf, ColorShape)
	}

	if e.projection != nil {
		fillBox(s, e.m.ToPanel(*e.projection), 2, ColorProjection)
	}
}

func (e *RectEditor) Nudge(dx, dy float64) {
	e.rect.X += dx
	e.rect.Y += dy
}

func (e *RectEditor) NudgeScale(delta float64) {
	old := e.rect.W
	e.rect.W = max(e.rect.W+delta, minRectSize)
	if old <= 0 {
		e.rect.H = max(e.rect.H, minRectSize)
		return
	}
	e.rect.H = max(e.rect.H*(e.rect.W/old), minRectSize)
}

// Reset covers the whole source frame.
func (e *RectEditor) Reset() {
	e.rect = keyframe.Rect{W: e.m.SourceW, H: e.m.SourceH}
}

// ResetAspect restores the source aspect ratio keeping the width.
func (e *RectEditor) ResetAspect() {
	if e.m.SourceW <= 0 {
		return
	}
	e.rect.H = max(float64(int(e.rect.W*(e.m.SourceH/e.m.SourceW))), minRectSize)
}

func (e *RectEditor) CenterHorizontal() {
	e.rect.X = e.m.SourceW/2 - e.rect.W/2
}

func (e *RectEditor) CenterVertical() {
	e.rect.Y = e.m.SourceH/2 - e.rect.H/2
}
