package canvas

import "github.com/inamate/kfedit/internal/geom"

// Parent receives edit notifications from a Controller.
type Parent interface {
	OnEditStarted()
	OnEditFinished()
	OnGeometryChanged()
}

// Scroller is implemented by parents that want mouse wheel events.
type Scroller interface {
	OnScroll(up bool)
}

// Controller drives an Editor from raw pointer events. It owns at most one
// gesture at a time; events arriving without a gesture are ignored.
type Controller struct {
	editor  Editor
	mapper  *Mapper
	parent  Parent
	gesture *Gesture
	active  bool

	shiftMarker *geom.Point
}

// NewController wires an editor to its parent.
func NewController(editor Editor, mapper *Mapper, parent Parent) *Controller {
	return &Controller{editor: editor, mapper: mapper, parent: parent, active: true}
}

// Editor returns the controlled editor.
func (c *Controller) Editor() Editor { return c.editor }

// SetActive enables or disables input. Disabling drops any gesture.
func (c *Controller) SetActive(active bool) {
	if !active {
		c.Cancel()
	}
	c.active = active
}

// Active reports whether input is accepted.
func (c *Controller) Active() bool { return c.active }

// Dragging reports whether a gesture is in progress.
func (c *Controller) Dragging() bool { return c.gesture != nil }

// Press hit tests p and starts a gesture on a hit.
func (c *Controller) Press(p geom.Point, mods Modifiers) bool {
	if !c.active || c.gesture != nil || !c.editor.Ready() {
		return false
	}

	hit := c.editor.HitTest(p)
	if hit == NoHit {
		return false
	}

	g := &Gesture{Hit: hit, Start: p, Mods: mods, StartShape: c.editor.Shape()}
	c.editor.DragStart(g)
	c.gesture = g

	c.parent.OnEditStarted()
	return true
}

// Motion updates the gesture for a pointer move.
func (c *Controller) Motion(p geom.Point, mods Modifiers) {
	if !c.active || c.gesture == nil {
		return
	}
	c.track(p, mods)
	c.editor.DragUpdate(c.gesture)
	c.parent.OnGeometryChanged()
}

// Release applies the final position and ends the gesture.
func (c *Controller) Release(p geom.Point, mods Modifiers) {
	c.shiftMarker = nil
	if !c.active || c.gesture == nil {
		return
	}
	c.track(p, mods)
	c.editor.DragCommit(c.gesture)
	c.gesture = nil
	c.parent.OnEditFinished()
}

// Cancel drops the gesture and restores the shape it started from.
func (c *Controller) Cancel() {
	c.shiftMarker = nil
	if c.gesture == nil {
		return
	}
	_ = c.editor.SetShape(c.gesture.StartShape)
	c.gesture = nil
}

// Scroll forwards a wheel event to the parent when it listens.
func (c *Controller) Scroll(up bool) {
	if s, ok := c.parent.(Scroller); ok {
		s.OnScroll(up)
	}
}

func (c *Controller) track(p geom.Point, mods Modifiers) {
	g := c.gesture
	g.Mods = mods
	g.Delta = constrainDelta(p.Sub(g.Start), mods.Shift)
	if mods.Shift {
		start := g.Start
		c.shiftMarker = &start
	} else {
		c.shiftMarker = nil
	}
}

// Render paints the panel background, the simulated screen, the axis guide
// of a constrained drag, the editor overlay and, when inactive, a veil.
func (c *Controller) Render(s Surface) {
	w, h := c.mapper.Panel()
	s.FillPolygon(rectPath(geom.Rect{Width: w, Height: h}), ColorBackground)
	if !c.mapper.Ready() {
		return
	}

	screen := c.mapper.ScreenRect()
	s.FillPolygon(rectPath(screen), ColorScreen)

	if c.shiftMarker != nil {
		m := *c.shiftMarker
		s.Polyline([]geom.Point{{X: m.X, Y: 0}, {X: m.X, Y: h}}, false, ColorGuide, 1)
		s.Polyline([]geom.Point{{X: 0, Y: m.Y}, {X: w, Y: m.Y}}, false, ColorGuide, 1)
	}

	s.Polyline(rectPath(screen), true, ColorEdge, 1)
	if c.editor.Ready() {
		c.editor.Render(s)
	}

	if !c.active {
		s.FillPolygon(rectPath(geom.Rect{Width: w, Height: h}), ColorVeil)
	}
}

// ShiftMarker returns the press point while an axis-constrained drag is shown.
func (c *Controller) ShiftMarker() (geom.Point, bool) {
	if c.shiftMarker == nil {
		return geom.Point{}, false
	}
	return *c.shiftMarker, true
}
