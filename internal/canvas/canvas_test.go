package canvas

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

var approx = cmpopts.EquateApprox(0, 1e-6)

// unitMapper maps a 400x300 source one to one into a 500x300 panel with the
// screen origin at (50, 0).
func unitMapper() *Mapper {
	m := NewMapper(400, 300, 1)
	m.Resize(500, 300, 1)
	return m
}

type recordingParent struct {
	started, finished, changed int
	scrolls                    []bool
}

func (p *recordingParent) OnEditStarted()     { p.started++ }
func (p *recordingParent) OnEditFinished()    { p.finished++ }
func (p *recordingParent) OnGeometryChanged() { p.changed++ }
func (p *recordingParent) OnScroll(up bool)   { p.scrolls = append(p.scrolls, up) }

type op struct {
	fill  bool
	color Color
}

type recordingSurface struct {
	ops []op
}

func (s *recordingSurface) Polyline(_ []geom.Point, _ bool, c Color, _ float64) {
	s.ops = append(s.ops, op{color: c})
}

func (s *recordingSurface) FillPolygon(_ []geom.Point, c Color) {
	s.ops = append(s.ops, op{fill: true, color: c})
}

func drag(c *Controller, from, to geom.Point, mods Modifiers) bool {
	if !c.Press(from, mods) {
		return false
	}
	c.Motion(to, mods)
	c.Release(to, mods)
	return true
}

func TestMapper(t *testing.T) {
	m := NewMapper(400, 300, 1)
	if m.Ready() {
		t.Fatal("mapper ready before panel allocation")
	}

	m.Resize(500, 300, 0.5)
	got := []float64{m.ScreenW, m.ScreenH, m.OriginX, m.OriginY, m.XScale, m.YScale}
	want := []float64{200, 150, 150, 75, 2, 2}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(geom.Pt(0, 0), m.ToSource(geom.Pt(150, 75)), approx); diff != "" {
		t.Errorf("ToSource(origin) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(geom.Pt(350, 225), m.ToPanel(geom.Pt(400, 300)), approx); diff != "" {
		t.Errorf("ToPanel(corner) (-want +got):\n%s", diff)
	}

	p := geom.Pt(123.5, 77.25)
	if diff := cmp.Diff(p, m.ToSource(m.ToPanel(p)), approx); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	m.SetYFract(1)
	if diff := cmp.Diff([]float64{400, 300, 50, 0}, []float64{m.ScreenW, m.ScreenH, m.OriginX, m.OriginY}, approx); diff != "" {
		t.Errorf("after SetYFract (-want +got):\n%s", diff)
	}
}

func TestMapperPixelAspect(t *testing.T) {
	m := NewMapper(400, 300, 2)
	m.Resize(1000, 300, 1)
	if diff := cmp.Diff([]float64{800, 100, 0.5, 1}, []float64{m.ScreenW, m.OriginX, m.XScale, m.YScale}, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRectHitTest(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100})

	tests := []struct {
		name string
		p    geom.Point
		want Hit
	}{
		{"top left corner", geom.Pt(50, 0), TopLeft},
		{"inside tolerance", geom.Pt(154, 96), BottomRight},
		{"outside tolerance", geom.Pt(155, 105), NoHit},
		{"middle left", geom.Pt(52, 50), MiddleLeft},
		{"area", geom.Pt(100, 30), AreaHit},
		{"outside", geom.Pt(300, 200), NoHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.HitTest(tt.p); got != tt.want {
				t.Errorf("HitTest(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func TestRectHandleDrag(t *testing.T) {
	tests := []struct {
		name  string
		press geom.Point
		delta geom.Point
		want  keyframe.Rect
	}{
		{"bottom right along diagonal", geom.Pt(150, 100), geom.Pt(20, 20), keyframe.Rect{X: 0, Y: 0, W: 120, H: 120}},
		{"bottom right projected", geom.Pt(150, 100), geom.Pt(30, 10), keyframe.Rect{X: 0, Y: 0, W: 120, H: 120}},
		{"top left", geom.Pt(50, 0), geom.Pt(10, 10), keyframe.Rect{X: 10, Y: 10, W: 90, H: 90}},
		{"middle right", geom.Pt(150, 50), geom.Pt(20, 37), keyframe.Rect{X: 0, Y: 0, W: 120, H: 100}},
		{"top middle", geom.Pt(100, 0), geom.Pt(5, -10), keyframe.Rect{X: 0, Y: -10, W: 100, H: 110}},
		{"area", geom.Pt(100, 50), geom.Pt(10, -5), keyframe.Rect{X: 10, Y: -5, W: 100, H: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewRectEditor(unitMapper())
			_ = e.SetShape(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100})
			c := NewController(e, e.m, &recordingParent{})

			if !drag(c, tt.press, tt.press.Add(tt.delta), Modifiers{}) {
				t.Fatalf("press at %v missed", tt.press)
			}
			if diff := cmp.Diff(tt.want, e.Shape(), approx); diff != "" {
				t.Errorf("shape mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRectOppositeCornerFixed(t *testing.T) {
	m := unitMapper()
	e := NewRectEditor(m)
	_ = e.SetShape(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100})
	before := m.ToPanel(geom.Pt(0, 0))

	c := NewController(e, m, &recordingParent{})
	drag(c, geom.Pt(150, 100), geom.Pt(170, 120), Modifiers{})

	handles, err := e.Handles()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, handles[TopLeft].Pos, approx); diff != "" {
		t.Errorf("opposite corner moved (-want +got):\n%s", diff)
	}
}

func TestRectMinimumSize(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100})
	c := NewController(e, e.m, &recordingParent{})

	drag(c, geom.Pt(150, 100), geom.Pt(-50, -100), Modifiers{})

	r := e.Shape().(keyframe.Rect)
	if r.W < 1 || r.H < 1 {
		t.Errorf("rect collapsed to %+v", r)
	}
	if diff := cmp.Diff(keyframe.Rect{X: 0, Y: 0, W: 1, H: 1}, r, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRectProjectionMarker(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100})
	c := NewController(e, e.m, &recordingParent{})

	c.Press(geom.Pt(150, 100), Modifiers{})
	c.Motion(geom.Pt(160, 110), Modifiers{})
	if e.projection == nil {
		t.Fatal("no projection marker during drag")
	}
	c.Release(geom.Pt(160, 110), Modifiers{})
	if e.projection != nil {
		t.Error("projection marker survived commit")
	}
}

func TestRectMenuEdits(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{X: 10, Y: 20, W: 200, H: 50})

	e.ResetAspect()
	if diff := cmp.Diff(keyframe.Rect{X: 10, Y: 20, W: 200, H: 150}, e.Shape(), approx); diff != "" {
		t.Errorf("ResetAspect (-want +got):\n%s", diff)
	}

	e.CenterHorizontal()
	e.CenterVertical()
	if diff := cmp.Diff(keyframe.Rect{X: 100, Y: 75, W: 200, H: 150}, e.Shape(), approx); diff != "" {
		t.Errorf("center (-want +got):\n%s", diff)
	}

	e.NudgeScale(200)
	if diff := cmp.Diff(keyframe.Rect{X: 100, Y: 75, W: 400, H: 300}, e.Shape(), approx); diff != "" {
		t.Errorf("NudgeScale (-want +got):\n%s", diff)
	}

	e.Reset()
	if diff := cmp.Diff(keyframe.Rect{X: 0, Y: 0, W: 400, H: 300}, e.Shape(), approx); diff != "" {
		t.Errorf("Reset (-want +got):\n%s", diff)
	}
}

func TestRectNudgeScaleFromZeroSize(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{})

	e.NudgeScale(10)
	if diff := cmp.Diff(keyframe.Rect{W: 10, H: 1}, e.Shape(), approx); diff != "" {
		t.Errorf("NudgeScale (-want +got):\n%s", diff)
	}
}

func newAffine() *AffineEditor {
	e := NewAffineEditor(unitMapper())
	e.InitTemplate(400, 300)
	e.Reset()
	return e
}

func TestAffineNotReady(t *testing.T) {
	e := NewAffineEditor(unitMapper())
	if e.Ready() {
		t.Fatal("ready without template")
	}
	if _, err := e.Handles(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Handles() error = %v, want ErrNotReady", err)
	}
	if hit := e.HitTest(geom.Pt(250, 150)); hit != NoHit {
		t.Errorf("HitTest = %d, want NoHit", hit)
	}
}

func TestAffineEditPoints(t *testing.T) {
	e := newAffine()
	_ = e.SetShape(keyframe.Affine{X: 200, Y: 150, ScaleX: 2, ScaleY: 0.5, RotationDeg: 0})

	pts, err := e.EditPoints()
	if err != nil {
		t.Fatal(err)
	}
	want := [7]geom.Point{
		{X: 200, Y: 150},
		{X: 600, Y: 150},
		{X: 200, Y: 75},
		{X: -200, Y: 75},
		{X: 600, Y: 75},
		{X: 600, Y: 225},
		{X: -200, Y: 225},
	}
	if diff := cmp.Diff(want, pts, approx); diff != "" {
		t.Errorf("edit points (-want +got):\n%s", diff)
	}
}

func TestAffineHitTest(t *testing.T) {
	e := newAffine()
	tests := []struct {
		name string
		p    geom.Point
		want Hit
	}{
		{"anchor", geom.Pt(255, 145), AnchorHandle},
		{"x scale", geom.Pt(450, 158), XScaleHandle},
		{"y scale", geom.Pt(250, 0), YScaleHandle},
		{"rotation", geom.Pt(50, 0), RotationHandle},
		{"area", geom.Pt(150, 250), AreaHit},
		{"outside", geom.Pt(480, 250), NoHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.HitTest(tt.p); got != tt.want {
				t.Errorf("HitTest(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func TestAffineScaleHandleDoubles(t *testing.T) {
	e := newAffine()
	c := NewController(e, e.m, &recordingParent{})

	if !drag(c, geom.Pt(450, 150), geom.Pt(650, 150), Modifiers{}) {
		t.Fatal("x scale handle missed")
	}
	want := keyframe.Affine{X: 200, Y: 150, ScaleX: 2, ScaleY: 1}
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	pts, _ := e.EditPoints()
	if diff := cmp.Diff(geom.Pt(600, 150), pts[XScaleHandle], approx); diff != "" {
		t.Errorf("x scale handle (-want +got):\n%s", diff)
	}
}

func TestAffineScaleMirror(t *testing.T) {
	t.Run("ctrl", func(t *testing.T) {
		e := newAffine()
		c := NewController(e, e.m, &recordingParent{})
		drag(c, geom.Pt(450, 150), geom.Pt(650, 150), Modifiers{Ctrl: true})
		a := e.Shape().(keyframe.Affine)
		if diff := cmp.Diff([]float64{2, 2}, []float64{a.ScaleX, a.ScaleY}, approx); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("aspect lock", func(t *testing.T) {
		e := newAffine()
		e.AspectLocked = true
		c := NewController(e, e.m, &recordingParent{})
		drag(c, geom.Pt(250, 0), geom.Pt(250, -75), Modifiers{})
		a := e.Shape().(keyframe.Affine)
		if diff := cmp.Diff([]float64{1.5, 1.5}, []float64{a.ScaleX, a.ScaleY}, approx); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestAffineScaleFollowsRotation(t *testing.T) {
	e := newAffine()
	_ = e.SetShape(keyframe.Affine{X: 200, Y: 150, ScaleX: 1, ScaleY: 1, RotationDeg: 90})
	c := NewController(e, e.m, &recordingParent{})

	// Rotated by 90 degrees the y scale handle points along +x.
	if !drag(c, geom.Pt(400, 150), geom.Pt(475, 170), Modifiers{}) {
		t.Fatal("y scale handle missed")
	}
	want := keyframe.Affine{X: 200, Y: 150, ScaleX: 1, ScaleY: 1.5, RotationDeg: 90}
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAffineTranslate(t *testing.T) {
	e := newAffine()
	c := NewController(e, e.m, &recordingParent{})
	drag(c, geom.Pt(150, 250), geom.Pt(160, 230), Modifiers{})

	want := keyframe.Affine{X: 210, Y: 130, ScaleX: 1, ScaleY: 1}
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAffineRotationContinuity(t *testing.T) {
	e := newAffine()
	c := NewController(e, e.m, &recordingParent{})

	anchor := geom.Pt(250, 150)
	start := geom.Pt(50, 0)
	if !c.Press(start, Modifiers{}) {
		t.Fatal("rotation handle missed")
	}

	for k := 1; k <= 40; k++ {
		want := 7.0 * float64(k)
		c.Motion(geom.RotateAroundPoint(want, start, anchor), Modifiers{})
		got := e.Shape().(keyframe.Affine).RotationDeg
		if diff := cmp.Diff(want, got, approx); diff != "" {
			t.Fatalf("step %d rotation (-want +got):\n%s", k, diff)
		}
	}
	c.Release(geom.RotateAroundPoint(280, start, anchor), Modifiers{})
	if got := e.Shape().(keyframe.Affine).RotationDeg; !cmp.Equal(280.0, got, approx) {
		t.Errorf("committed rotation = %v, want 280", got)
	}
}

func TestAffineRotationCounterClockwise(t *testing.T) {
	e := newAffine()
	c := NewController(e, e.m, &recordingParent{})

	anchor := geom.Pt(250, 150)
	start := geom.Pt(50, 0)
	c.Press(start, Modifiers{})
	for k := 1; k <= 30; k++ {
		c.Motion(geom.RotateAroundPoint(-9*float64(k), start, anchor), Modifiers{})
	}
	if got := e.Shape().(keyframe.Affine).RotationDeg; !cmp.Equal(-270.0, got, approx) {
		t.Errorf("rotation = %v, want -270", got)
	}
}

func TestAffineMenuEdits(t *testing.T) {
	e := newAffine()
	_ = e.SetShape(keyframe.Affine{X: 10, Y: 20, ScaleX: 1.5, ScaleY: 3, RotationDeg: 45})

	e.NudgeScale(50)
	if diff := cmp.Diff(keyframe.Affine{X: 10, Y: 20, ScaleX: 2, ScaleY: 4, RotationDeg: 45}, e.Shape(), approx); diff != "" {
		t.Errorf("NudgeScale (-want +got):\n%s", diff)
	}

	e.ResetAspect()
	e.CenterHorizontal()
	e.CenterVertical()
	if diff := cmp.Diff(keyframe.Affine{X: 200, Y: 150, ScaleX: 2, ScaleY: 2, RotationDeg: 45}, e.Shape(), approx); diff != "" {
		t.Errorf("aspect and center (-want +got):\n%s", diff)
	}

	e.AspectLocked = true
	_ = e.SetShape(keyframe.Affine{ScaleX: 1, ScaleY: 3})
	e.NudgeScale(-10)
	a := e.Shape().(keyframe.Affine)
	if diff := cmp.Diff([]float64{0.9, 0.9}, []float64{a.ScaleX, a.ScaleY}, approx); diff != "" {
		t.Errorf("locked NudgeScale (-want +got):\n%s", diff)
	}
}

func TestLineDrag(t *testing.T) {
	// Two source pixels per panel pixel.
	m := NewMapper(400, 300, 1)
	m.Resize(250, 150, 1)
	e := NewLineEditor(m)

	want := keyframe.Line{P1: geom.Pt(200, 225), P2: geom.Pt(200, 75)}
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Fatalf("default line (-want +got):\n%s", diff)
	}

	c := NewController(e, m, &recordingParent{})
	if !drag(c, geom.Pt(125, 112.5), geom.Pt(135, 107.5), Modifiers{}) {
		t.Fatal("start point missed")
	}
	want.P1 = geom.Pt(220, 215)
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Errorf("after drag (-want +got):\n%s", diff)
	}

	if hit := e.HitTest(geom.Pt(125, 50)); hit != NoHit {
		t.Errorf("HitTest between points = %d, want NoHit", hit)
	}
}

func TestLineCenter(t *testing.T) {
	e := NewLineEditor(unitMapper())
	_ = e.SetShape(keyframe.Line{P1: geom.Pt(0, 0), P2: geom.Pt(100, 50)})
	e.CenterHorizontal()
	e.CenterVertical()
	want := keyframe.Line{P1: geom.Pt(150, 125), P2: geom.Pt(250, 175)}
	if diff := cmp.Diff(want, e.Shape(), approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerCallbacks(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{W: 100, H: 100})
	p := &recordingParent{}
	c := NewController(e, e.m, p)

	if c.Press(geom.Pt(400, 250), Modifiers{}) {
		t.Fatal("press outside the shape started a gesture")
	}
	if p.started != 0 {
		t.Fatal("OnEditStarted called on a miss")
	}

	c.Press(geom.Pt(150, 100), Modifiers{})
	c.Motion(geom.Pt(155, 105), Modifiers{})
	c.Motion(geom.Pt(160, 110), Modifiers{})
	if !c.Dragging() {
		t.Fatal("not dragging after press")
	}
	c.Release(geom.Pt(160, 110), Modifiers{})

	got := [3]int{p.started, p.changed, p.finished}
	if got != [3]int{1, 2, 1} {
		t.Errorf("started/changed/finished = %v, want [1 2 1]", got)
	}
	if c.Dragging() {
		t.Error("still dragging after release")
	}

	c.Motion(geom.Pt(200, 200), Modifiers{})
	if p.changed != 2 {
		t.Error("motion without a gesture reached the parent")
	}

	c.Scroll(true)
	if diff := cmp.Diff([]bool{true}, p.scrolls); diff != "" {
		t.Errorf("scrolls (-want +got):\n%s", diff)
	}
}

func TestControllerCancel(t *testing.T) {
	e := NewRectEditor(unitMapper())
	start := keyframe.Rect{W: 100, H: 100}
	_ = e.SetShape(start)
	p := &recordingParent{}
	c := NewController(e, e.m, p)

	c.Press(geom.Pt(100, 50), Modifiers{})
	c.Motion(geom.Pt(140, 90), Modifiers{})
	c.Cancel()

	if diff := cmp.Diff(start, e.Shape(), approx); diff != "" {
		t.Errorf("shape not restored (-want +got):\n%s", diff)
	}
	if p.finished != 0 {
		t.Error("cancel reported a finished edit")
	}
	c.Release(geom.Pt(140, 90), Modifiers{})
	if p.finished != 0 {
		t.Error("release after cancel reported a finished edit")
	}
}

func TestControllerShiftConstraint(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{W: 100, H: 100})
	c := NewController(e, e.m, &recordingParent{})

	shift := Modifiers{Shift: true}
	c.Press(geom.Pt(100, 50), shift)
	c.Motion(geom.Pt(120, 55), shift)

	marker, ok := c.ShiftMarker()
	if !ok {
		t.Fatal("no shift marker during constrained drag")
	}
	if diff := cmp.Diff(geom.Pt(100, 50), marker); diff != "" {
		t.Errorf("marker (-want +got):\n%s", diff)
	}

	c.Release(geom.Pt(120, 55), shift)
	if diff := cmp.Diff(keyframe.Rect{X: 20, Y: 0, W: 100, H: 100}, e.Shape(), approx); diff != "" {
		t.Errorf("constrained move (-want +got):\n%s", diff)
	}
	if _, ok := c.ShiftMarker(); ok {
		t.Error("shift marker survived release")
	}
}

func TestControllerInactive(t *testing.T) {
	e := NewRectEditor(unitMapper())
	_ = e.SetShape(keyframe.Rect{W: 100, H: 100})
	c := NewController(e, e.m, &recordingParent{})

	c.SetActive(false)
	if c.Press(geom.Pt(100, 50), Modifiers{}) {
		t.Fatal("inactive controller accepted a press")
	}

	s := &recordingSurface{}
	c.Render(s)
	last := s.ops[len(s.ops)-1]
	if !last.fill || last.color != ColorVeil {
		t.Errorf("last op = %+v, want veil fill", last)
	}
}

func TestRenderNotReady(t *testing.T) {
	m := NewMapper(400, 300, 1)
	e := NewRectEditor(m)
	c := NewController(e, m, &recordingParent{})

	s := &recordingSurface{}
	c.Render(s)
	if len(s.ops) != 1 {
		t.Errorf("got %d ops before allocation, want background only", len(s.ops))
	}
}
