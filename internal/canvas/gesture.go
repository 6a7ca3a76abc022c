package canvas

import (
	"errors"
	"math"

	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

// Hit is the result of hit testing: a handle index of the editor, AreaHit
// or NoHit.
type Hit int

const (
	AreaHit Hit = 9
	NoHit   Hit = 10
)

// ErrNotReady is returned while an editor cannot map its shape to the panel,
// e.g. before the panel is allocated or the source size is known.
var ErrNotReady = errors.New("editor not ready")

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool // constrain the drag to its dominant axis
	Ctrl  bool // mirror scale changes into the other axis
}

// Gesture is one press-drag-release interaction. It is created on press,
// passed to every drag call of the editor and dropped on release.
type Gesture struct {
	Hit   Hit
	Start geom.Point // press position, panel space
	Delta geom.Point // pointer offset from Start after axis constraint
	Mods  Modifiers

	// StartShape is the working shape at press, restored on cancel.
	StartShape keyframe.Shape

	state any // editor-owned drag state
}

// Current returns the constrained pointer position in panel space.
func (g *Gesture) Current() geom.Point {
	return g.Start.Add(g.Delta)
}

// constrainDelta zeroes the smaller component of d when shift is held.
func constrainDelta(d geom.Point, shift bool) geom.Point {
	if !shift {
		return d
	}
	if math.Abs(d.X) < math.Abs(d.Y) {
		return geom.Point{X: 0, Y: d.Y}
	}
	return geom.Point{X: d.X, Y: 0}
}

// Handle is an edit handle at its current panel position.
type Handle struct {
	ID  Hit        `json:"id"`
	Pos geom.Point `json:"pos"`
}

// Editor is a shape editor sharing the press/drag/release protocol.
type Editor interface {
	Kind() keyframe.Kind
	Ready() bool

	// SetShape loads a materialized value, e.g. the track evaluated at the
	// current frame.
	SetShape(s keyframe.Shape) error
	// Shape returns the working value.
	Shape() keyframe.Shape

	HitTest(p geom.Point) Hit
	DragStart(g *Gesture)
	DragUpdate(g *Gesture)
	DragCommit(g *Gesture)

	Handles() ([]Handle, error)
	Render(s Surface)

	// Nudge moves the shape by a source-space offset.
	Nudge(dx, dy float64)
	// NudgeScale grows or shrinks the shape keeping its proportions.
	NudgeScale(delta float64)

	Reset()
	ResetAspect()
	CenterHorizontal()
	CenterVertical()
}
