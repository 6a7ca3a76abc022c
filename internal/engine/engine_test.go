package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/keyframe"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// newRectEngine edits a rect that slides from (0,0) to (100,100) over
// frames 0..20 of a 400x300 source shown one to one in a 500x300 panel.
func newRectEngine(t *testing.T) *Engine {
	t.Helper()
	p := &document.Property{
		ID:         "prop_test",
		Kind:       keyframe.KindRect,
		Source:     document.Source{Width: 400, Height: 300},
		ClipLength: 50,
		Keyframes: []document.Keyframe{
			{Frame: 0, Value: []float64{0, 0, 100, 100}},
			{Frame: 20, Value: []float64{100, 100, 100, 100}},
		},
	}
	e, err := New(p, Options{PanelWidth: 500, PanelHeight: 300, YFract: 1})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func frames(e *Engine) []int {
	var out []int
	for _, kf := range e.Keyframes() {
		out = append(out, kf.Frame)
	}
	return out
}

func TestSetClipFrame(t *testing.T) {
	e := newRectEngine(t)

	e.SetClipFrame(10)
	if diff := cmp.Diff(keyframe.Rect{X: 50, Y: 50, W: 100, H: 100}, e.Value(), approx); diff != "" {
		t.Errorf("value at 10 (-want +got):\n%s", diff)
	}
	if e.ActiveIndex() != 0 {
		t.Errorf("active = %d, want 0", e.ActiveIndex())
	}

	e.SetClipFrame(500)
	if e.Frame() != 49 {
		t.Errorf("frame = %d, want clamp to 49", e.Frame())
	}
	if e.ActiveIndex() != 1 {
		t.Errorf("active = %d, want 1", e.ActiveIndex())
	}

	e.SetClipFrame(-3)
	if e.Frame() != 0 {
		t.Errorf("frame = %d, want 0", e.Frame())
	}
}

func TestDragBetweenKeyframesAddsKeyframe(t *testing.T) {
	e := newRectEngine(t)
	e.SetClipFrame(10)

	if !e.Press(150, 80, canvas.Modifiers{}) {
		t.Fatal("press missed the rect")
	}
	e.Motion(155, 80, canvas.Modifiers{})
	if got := len(e.Keyframes()); got != 2 {
		t.Fatalf("keyframes during drag = %d, want 2", got)
	}
	e.Release(160, 80, canvas.Modifiers{})

	if diff := cmp.Diff([]int{0, 10, 20}, frames(e)); diff != "" {
		t.Fatalf("frames (-want +got):\n%s", diff)
	}
	if e.ActiveIndex() != 1 {
		t.Errorf("active = %d, want 1", e.ActiveIndex())
	}
	kf, _ := e.track.At(1)
	want := keyframe.Rect{X: 60, Y: 50, W: 100, H: 100}
	if diff := cmp.Diff(want, kf.Value, approx); diff != "" {
		t.Errorf("committed value (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, e.Value(), approx); diff != "" {
		t.Errorf("working value (-want +got):\n%s", diff)
	}
}

func TestCancelLeavesTrack(t *testing.T) {
	e := newRectEngine(t)
	e.SetClipFrame(10)
	before := e.Keyframes()

	e.Press(150, 80, canvas.Modifiers{})
	e.Motion(200, 120, canvas.Modifiers{})
	e.CancelGesture()

	if diff := cmp.Diff(before, e.Keyframes()); diff != "" {
		t.Errorf("track changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(keyframe.Rect{X: 50, Y: 50, W: 100, H: 100}, e.Value(), approx); diff != "" {
		t.Errorf("working value (-want +got):\n%s", diff)
	}
}

func TestPlayheadChangeDropsDrag(t *testing.T) {
	e := newRectEngine(t)
	e.Press(100, 50, canvas.Modifiers{})
	e.Motion(120, 50, canvas.Modifiers{})

	e.SetClipFrame(20)
	if e.Dragging() {
		t.Fatal("drag survived a playhead change")
	}
	e.Release(130, 50, canvas.Modifiers{})
	if diff := cmp.Diff([]int{0, 20}, frames(e)); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
}

func TestKeyframeCommands(t *testing.T) {
	e := newRectEngine(t)

	e.SetClipFrame(30)
	e.AddKeyframe()
	if diff := cmp.Diff([]int{0, 20, 30}, frames(e)); diff != "" {
		t.Fatalf("after add (-want +got):\n%s", diff)
	}
	if e.ActiveIndex() != 2 {
		t.Errorf("active = %d, want 2", e.ActiveIndex())
	}

	e.MoveActiveKeyframe(15)
	if diff := cmp.Diff([]int{0, 20, 30}, frames(e)); diff != "" {
		t.Errorf("move across a neighbour (-want +got):\n%s", diff)
	}
	e.MoveActiveKeyframe(25)
	if diff := cmp.Diff([]int{0, 20, 25}, frames(e)); diff != "" {
		t.Errorf("move (-want +got):\n%s", diff)
	}
	if e.Frame() != 25 || e.ActiveIndex() != 2 {
		t.Errorf("frame, active = %d, %d, want 25, 2", e.Frame(), e.ActiveIndex())
	}

	e.DeleteActiveKeyframe()
	if diff := cmp.Diff([]int{0, 20}, frames(e)); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}

	e.SelectKeyframe(0)
	e.MoveActiveKeyframe(5)
	e.DeleteActiveKeyframe()
	if diff := cmp.Diff([]int{0, 20}, frames(e)); diff != "" {
		t.Errorf("frame 0 keyframe touched (-want +got):\n%s", diff)
	}
}

func TestCloneAndMode(t *testing.T) {
	e := newRectEngine(t)
	e.SelectKeyframe(0)
	e.CloneFromNext()
	if diff := cmp.Diff(keyframe.Rect{X: 100, Y: 100, W: 100, H: 100}, e.Value(), approx); diff != "" {
		t.Errorf("clone from next (-want +got):\n%s", diff)
	}

	e = newRectEngine(t)
	e.SetActiveMode(keyframe.Discrete)
	e.SetClipFrame(19)
	if diff := cmp.Diff(keyframe.Rect{X: 0, Y: 0, W: 100, H: 100}, e.Value(), approx); diff != "" {
		t.Errorf("discrete hold (-want +got):\n%s", diff)
	}
}

func TestMenuAndNudge(t *testing.T) {
	e := newRectEngine(t)
	e.SelectKeyframe(1)

	if err := e.ApplyMenu(MenuCenterHorizontal); err != nil {
		t.Fatal(err)
	}
	e.Nudge(0, -10)
	kf, _ := e.track.At(1)
	if diff := cmp.Diff(keyframe.Rect{X: 150, Y: 90, W: 100, H: 100}, kf.Value, approx); diff != "" {
		t.Errorf("keyframe (-want +got):\n%s", diff)
	}

	if err := e.ApplyMenu("explode"); err == nil {
		t.Error("unknown menu action accepted")
	}
}

func TestSelectKeyframePastClipEnd(t *testing.T) {
	e := newRectEngine(t)
	e.SetClipLength(10)

	e.SelectKeyframe(1)
	if e.Frame() != 9 || e.ActiveIndex() != 0 {
		t.Fatalf("frame = %d, active = %d, want 9 and 0", e.Frame(), e.ActiveIndex())
	}

	e.Nudge(5, 0)
	if diff := cmp.Diff([]int{0, 20}, frames(e)); diff != "" {
		t.Errorf("keyframes (-want +got):\n%s", diff)
	}
	want := keyframe.Rect{X: 100, Y: 100, W: 100, H: 100}
	got, _ := e.ValueAt(20)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("keyframe past the end changed (-want +got):\n%s", diff)
	}
}

func TestNudgeScaleZeroSizeRect(t *testing.T) {
	p := &document.Property{
		ID:         "prop_test",
		Kind:       keyframe.KindRect,
		Source:     document.Source{Width: 400, Height: 300},
		ClipLength: 50,
		Keyframes:  []document.Keyframe{{Frame: 0, Value: []float64{0, 0, 0, 0}}},
	}
	e, err := New(p, Options{PanelWidth: 500, PanelHeight: 300, YFract: 1})
	if err != nil {
		t.Fatal(err)
	}

	e.NudgeScale(10)
	if diff := cmp.Diff(keyframe.Rect{W: 10, H: 1}, e.Value(), approx); diff != "" {
		t.Errorf("value (-want +got):\n%s", diff)
	}
	if e.StateJSON() == "" || e.PropertyJSON() == "" {
		t.Error("state no longer encodes")
	}
}

func TestScrollStepsFrame(t *testing.T) {
	e := newRectEngine(t)
	e.Scroll(true)
	e.Scroll(true)
	e.Scroll(false)
	if e.Frame() != 1 {
		t.Errorf("frame = %d, want 1", e.Frame())
	}
}

func TestAddKeyframeWithValue(t *testing.T) {
	e := newRectEngine(t)
	err := e.AddKeyframeWithValue(keyframe.Keyframe{Frame: 20, Value: keyframe.Rect{X: 5, Y: 5, W: 5, H: 5}, Mode: keyframe.Smooth})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := e.ValueAt(20)
	if diff := cmp.Diff(keyframe.Rect{X: 5, Y: 5, W: 5, H: 5}, v); diff != "" {
		t.Errorf("replaced value (-want +got):\n%s", diff)
	}

	err = e.AddKeyframeWithValue(keyframe.Keyframe{Frame: 3, Value: keyframe.Affine{}})
	if err == nil {
		t.Error("kind mismatch accepted")
	}
}

func TestAffineEngine(t *testing.T) {
	p := document.NewSampleProperty()
	e, err := New(p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	handles, err := e.Handles()
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 4 {
		t.Errorf("got %d handles, want 4", len(handles))
	}
	if hit := e.HitTest(handles[canvas.XScaleHandle].Pos.X, handles[canvas.XScaleHandle].Pos.Y); hit != canvas.XScaleHandle {
		t.Errorf("HitTest on x scale handle = %d", hit)
	}
}

func TestSnapshotJSON(t *testing.T) {
	e := newRectEngine(t)
	e.SetClipFrame(10)

	var st State
	if err := json.Unmarshal([]byte(e.StateJSON()), &st); err != nil {
		t.Fatal(err)
	}
	if st.Frame != 10 || st.Kind != keyframe.KindRect || len(st.Keyframes) != 2 {
		t.Errorf("state = %+v", st)
	}
	if diff := cmp.Diff([]float64{50, 50, 100, 100}, st.Value, approx); diff != "" {
		t.Errorf("value (-want +got):\n%s", diff)
	}
	if len(st.Handles) != 8 {
		t.Errorf("got %d handles, want 8", len(st.Handles))
	}
	if len(st.Commands) == 0 || st.Commands[0].Op != "fill" {
		t.Errorf("commands = %+v", st.Commands)
	}

	prop, err := document.Parse([]byte(e.PropertyJSON()))
	if err != nil {
		t.Fatal(err)
	}
	if prop.ID != "prop_test" || len(prop.Keyframes) != 2 {
		t.Errorf("property = %+v", prop)
	}
}

func TestInactiveEditor(t *testing.T) {
	e := newRectEngine(t)
	e.SetEditorActive(false)
	if e.Press(100, 50, canvas.Modifiers{}) {
		t.Error("inactive editor accepted a press")
	}
	cmds := e.DrawCommands()
	last := cmds[len(cmds)-1]
	if last.Op != "fill" || last.Fill != cssColor(canvas.ColorVeil) {
		t.Errorf("last command = %+v, want veil", last)
	}
}
