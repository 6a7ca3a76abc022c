package canvas

import (
	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

// Line handle ids.
const (
	StartHandle Hit = iota
	EndHandle
)

const (
	LineHandleHalf = 10.0
	lineCrossHalf  = 6.0
)

// LineEditor edits two independent points, e.g. a gradient axis.
type LineEditor struct {
	m    *Mapper
	line keyframe.Line
}

// NewLineEditor creates a line editor with a vertical line through the
// source center.
func NewLineEditor(m *Mapper) *LineEditor {
	e := &LineEditor{m: m}
	e.Reset()
	return e
}

func (e *LineEditor) Kind() keyframe.Kind { return keyframe.KindLine }

func (e *LineEditor) Ready() bool { return e.m.Ready() }

func (e *LineEditor) SetShape(s keyframe.Shape) error {
	l, ok := s.(keyframe.Line)
	if !ok {
		return keyframe.ErrKindMismatch
	}
	e.line = l
	return nil
}

func (e *LineEditor) Shape() keyframe.Shape { return e.line }

func (e *LineEditor) points() [2]geom.Point {
	return [2]geom.Point{e.line.P1, e.line.P2}
}

func (e *LineEditor) Handles() ([]Handle, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}
	pts := e.points()
	return []Handle{
		{ID: StartHandle, Pos: e.m.ToPanel(pts[0])},
		{ID: EndHandle, Pos: e.m.ToPanel(pts[1])},
	}, nil
}

func (e *LineEditor) HitTest(p geom.Point) Hit {
	if !e.Ready() {
		return NoHit
	}
	for i, ep := range e.points() {
		if geom.WithinBox(p, e.m.ToPanel(ep), LineHandleHalf) {
			return Hit(i)
		}
	}
	return NoHit
}

func (e *LineEditor) DragStart(g *Gesture) {
	g.state = e.points()
}

func (e *LineEditor) DragUpdate(g *Gesture) {
	start, ok := g.state.([2]geom.Point)
	if !ok || (g.Hit != StartHandle && g.Hit != EndHandle) {
		return
	}
	p := e.m.ToSource(e.m.ToPanel(start[g.Hit]).Add(g.Delta))
	if g.Hit == StartHandle {
		e.line.P1 = p
	} else {
		e.line.P2 = p
	}
}

func (e *LineEditor) DragCommit(g *Gesture) {
	e.DragUpdate(g)
}

func (e *LineEditor) Render(s Surface) {
	p1 := e.m.ToPanel(e.line.P1)
	p2 := e.m.ToPanel(e.line.P2)
	drawCross(s, p1, lineCrossHalf, ColorShape)
	drawCross(s, p2, lineCrossHalf, ColorShape)
	s.Polyline([]geom.Point{p1, p2}, false, ColorShape, 1)
}

func (e *LineEditor) Nudge(dx, dy float64) {
	d := geom.Pt(dx, dy)
	e.line.P1 = e.line.P1.Add(d)
	e.line.P2 = e.line.P2.Add(d)
}

// NudgeScale has no meaning for two free points.
func (e *LineEditor) NudgeScale(float64) {}

// Reset places a vertical line of half the source height around the center.
func (e *LineEditor) Reset() {
	cx, cy := e.m.SourceW/2, e.m.SourceH/2
	e.line = keyframe.Line{
		P1: geom.Pt(cx, cy+e.m.SourceH/4),
		P2: geom.Pt(cx, cy-e.m.SourceH/4),
	}
}

func (e *LineEditor) ResetAspect() {}

func (e *LineEditor) CenterHorizontal() {
	mid := (e.line.P1.X + e.line.P2.X) / 2
	e.Nudge(e.m.SourceW/2-mid, 0)
}

func (e *LineEditor) CenterVertical() {
	mid := (e.line.P1.Y + e.line.P2.Y) / 2
	e.Nudge(0, e.m.SourceH/2-mid)
}
