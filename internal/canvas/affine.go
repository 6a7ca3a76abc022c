package canvas

import (
	"math"

	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

// Affine handle ids. Template points 4, 5 and 6 are the remaining corners of
// the bounding box and cannot be grabbed.
const (
	AnchorHandle Hit = iota
	XScaleHandle
	YScaleHandle
	RotationHandle
)

const (
	// AffineHandleHalf is the half-width of an affine handle's hit box.
	AffineHandleHalf = 10.0
	// affineNudgeScale converts a NudgeScale step into a scale factor change.
	affineNudgeScale = 0.01
)

// AffineEditor edits position, anisotropic scale and rotation of a source
// image. Its edit points are always recomputed from an immutable template so
// they never drift.
type AffineEditor struct {
	m        *Mapper
	template [7]geom.Point
	hasTmpl  bool
	value    keyframe.Affine

	// AspectLocked mirrors every scale change into the other axis.
	AspectLocked bool
	// DrawBoundingBox outlines the transformed box instead of the axes.
	DrawBoundingBox bool
}

type affineDrag struct {
	handle     Hit
	startValue keyframe.Affine
	guide      geom.Vec
	lastAngle  float64
}

// NewAffineEditor creates an affine editor. It is not ready until InitTemplate
// has been called with the source size.
func NewAffineEditor(m *Mapper) *AffineEditor {
	return &AffineEditor{m: m, value: keyframe.Affine{ScaleX: 1, ScaleY: 1}}
}

// InitTemplate builds the untransformed edit points for a w×h source.
func (e *AffineEditor) InitTemplate(w, h float64) {
	e.template = [7]geom.Point{
		{X: w / 2, Y: h / 2},
		{X: w, Y: h / 2},
		{X: w / 2, Y: 0},
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}
	e.hasTmpl = w > 0 && h > 0
}

func (e *AffineEditor) Kind() keyframe.Kind { return keyframe.KindAffine }

func (e *AffineEditor) Ready() bool { return e.hasTmpl && e.m.Ready() }

func (e *AffineEditor) SetShape(s keyframe.Shape) error {
	a, ok := s.(keyframe.Affine)
	if !ok {
		return keyframe.ErrKindMismatch
	}
	e.value = a
	return nil
}

func (e *AffineEditor) Shape() keyframe.Shape { return e.value }

// Transform returns the matrix taking template points to edit points:
// translate the template anchor onto the value position, scale around it
// along the untransformed axes, then rotate around it.
func (e *AffineEditor) Transform() geom.Matrix2D {
	v := e.value
	anchor := geom.Pt(v.X, v.Y)
	t := geom.Translate(v.X-e.template[0].X, v.Y-e.template[0].Y)
	return geom.RotateAround(anchor, v.RotationDeg).
		Multiply(geom.ScaleAround(anchor, v.ScaleX, v.ScaleY)).
		Multiply(t)
}

// EditPoints returns the seven transformed template points in source space.
func (e *AffineEditor) EditPoints() ([7]geom.Point, error) {
	if !e.hasTmpl {
		return [7]geom.Point{}, ErrNotReady
	}
	return e.editPoints(), nil
}

func (e *AffineEditor) editPoints() [7]geom.Point {
	m := e.Transform()
	var out [7]geom.Point
	for i, p := range e.template {
		out[i] = m.Apply(p)
	}
	return out
}

func (e *AffineEditor) Handles() ([]Handle, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}
	pts := e.editPoints()
	out := make([]Handle, 0, 4)
	for id := AnchorHandle; id <= RotationHandle; id++ {
		out = append(out, Handle{ID: id, Pos: e.m.ToPanel(pts[id])})
	}
	return out, nil
}

func (e *AffineEditor) HitTest(p geom.Point) Hit {
	if !e.Ready() {
		return NoHit
	}
	pts := e.editPoints()
	for id := AnchorHandle; id <= RotationHandle; id++ {
		if geom.WithinBox(p, e.m.ToPanel(pts[id]), AffineHandleHalf) {
			return id
		}
	}

	quad := []geom.Point{
		e.m.ToPanel(pts[3]),
		e.m.ToPanel(pts[4]),
		e.m.ToPanel(pts[5]),
		e.m.ToPanel(pts[6]),
	}
	if geom.PointInConvexPolygon(p, quad) {
		return AreaHit
	}
	return NoHit
}

func (e *AffineEditor) DragStart(g *Gesture) {
	d := &affineDrag{handle: g.Hit, startValue: e.value}
	anchor := geom.Pt(e.value.X, e.value.Y)
	switch g.Hit {
	case XScaleHandle, YScaleHandle:
		d.guide = geom.VecBetween(anchor, e.editPoints()[g.Hit])
	}
	g.state = d
}

func (e *AffineEditor) DragUpdate(g *Gesture) {
	d, ok := g.state.(*affineDrag)
	if !ok {
		return
	}

	switch d.handle {
	case AnchorHandle, AreaHit:
		delta := e.m.DeltaToSource(g.Delta)
		e.value.X = d.startValue.X + delta.X
		e.value.Y = d.startValue.Y + delta.Y
	case XScaleHandle, YScaleHandle:
		e.dragScale(g, d)
	case RotationHandle:
		mStart := e.m.ToSource(g.Start)
		mEnd := e.m.ToSource(g.Current())
		anchor := geom.Pt(e.value.X, e.value.Y)
		e.value.RotationDeg = d.startValue.RotationDeg + d.rotationStep(anchor, mStart, mEnd)
	}
}

func (e *AffineEditor) dragScale(g *Gesture, d *affineDrag) {
	dp := e.m.ToSource(g.Start).Add(e.m.DeltaToSource(g.Delta))
	pp := d.guide.Project(dp)
	dist := geom.Distance(geom.Pt(e.value.X, e.value.Y), pp)

	orig := geom.Distance(e.template[AnchorHandle], e.template[d.handle])
	if orig == 0 {
		return
	}
	scale := dist / orig

	mirror := g.Mods.Ctrl || e.AspectLocked
	if d.handle == XScaleHandle {
		e.value.ScaleX = scale
		if mirror {
			e.value.ScaleY = scale
		}
	} else {
		e.value.ScaleY = scale
		if mirror {
			e.value.ScaleX = scale
		}
	}
}

// rotationStep returns the signed pointer rotation around anchor since the
// press. Of the raw angle and its ±360 counterpart the one closer to the
// previous step wins, so dragging past ±180 keeps turning the same way.
func (d *affineDrag) rotationStep(anchor, mStart, mEnd geom.Point) float64 {
	angle := geom.AngleDeg(mStart, anchor, mEnd)
	if !geom.Clockwise(mStart, anchor, mEnd) {
		angle = -angle
	}

	crossed := angle + 360
	if angle > 0 {
		crossed = angle - 360
	}
	if math.Abs(d.lastAngle-crossed) < math.Abs(d.lastAngle-angle) {
		angle = crossed
	}

	d.lastAngle = angle
	return angle
}

func (e *AffineEditor) DragCommit(g *Gesture) {
	e.DragUpdate(g)
}

var (
	scaleArrow = []geom.Point{
		{X: 0, Y: -2}, {X: 6, Y: -2}, {X: 6, Y: -6}, {X: 12, Y: 0}, {X: 6, Y: 6}, {X: 6, Y: 2},
		{X: -6, Y: 2}, {X: -6, Y: 6}, {X: -12, Y: 0}, {X: -6, Y: -6}, {X: -6, Y: -2},
	}
	rotationHeadLeft  = []geom.Point{{X: -6, Y: 3}, {X: -9, Y: 0}, {X: -3, Y: 0}}
	rotationHeadRight = []geom.Point{{X: 6, Y: -3}, {X: 9, Y: 0}, {X: 3, Y: 0}}
)

func (e *AffineEditor) Render(s Surface) {
	pts := e.editPoints()
	panel := make([]geom.Point, len(pts))
	for i, p := range pts {
		panel[i] = e.m.ToPanel(p)
	}
	rot := e.value.RotationDeg

	if e.DrawBoundingBox {
		s.Polyline(panel[3:7], true, ColorShape, 1)
	} else {
		for _, id := range []Hit{YScaleHandle, XScaleHandle, RotationHandle} {
			s.Polyline([]geom.Point{panel[AnchorHandle], panel[id]}, false, ColorShape, 1)
		}
	}

	for _, a := range []struct {
		id  Hit
		add float64
	}{{YScaleHandle, 90}, {XScaleHandle, 0}} {
		arrow := placed(panel[a.id], rot+a.add, scaleArrow)
		s.FillPolygon(arrow, ColorArrowFill)
		s.Polyline(arrow, true, ColorShape, 1)
	}

	cross := placed(panel[AnchorHandle], rot, []geom.Point{{X: 0, Y: -3}, {X: 0, Y: 3}, {X: -3, Y: 0}, {X: 3, Y: 0}})
	s.Polyline(cross[:2], false, ColorShape, 1)
	s.Polyline(cross[2:], false, ColorShape, 1)

	r := panel[RotationHandle]
	s.Polyline(arcPoints(r, 6, rot+180, rot+325, 12), false, ColorShape, 3)
	s.FillPolygon(placed(r, rot, rotationHeadLeft), ColorShape)
	s.Polyline(arcPoints(r, 6, rot, rot+145, 12), false, ColorShape, 3)
	s.FillPolygon(placed(r, rot, rotationHeadRight), ColorShape)
}

func (e *AffineEditor) Nudge(dx, dy float64) {
	e.value.X += dx
	e.value.Y += dy
}

func (e *AffineEditor) NudgeScale(delta float64) {
	old := e.value.ScaleX
	e.value.ScaleX += delta * affineNudgeScale
	if old != 0 {
		e.value.ScaleY *= e.value.ScaleX / old
	}
	if e.AspectLocked {
		e.value.ScaleY = e.value.ScaleX
	}
}

// Reset centers the image at scale 1 with no rotation.
func (e *AffineEditor) Reset() {
	e.value = keyframe.Affine{X: e.m.SourceW / 2, Y: e.m.SourceH / 2, ScaleX: 1, ScaleY: 1}
}

// ResetAspect makes the vertical scale follow the horizontal one.
func (e *AffineEditor) ResetAspect() {
	e.value.ScaleY = e.value.ScaleX
}

func (e *AffineEditor) CenterHorizontal() {
	e.value.X = e.m.SourceW / 2
}

func (e *AffineEditor) CenterVertical() {
	e.value.Y = e.m.SourceH / 2
}
