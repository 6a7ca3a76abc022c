package engine

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

// Options configure the editor panel of an Engine.
type Options struct {
	PanelWidth   float64
	PanelHeight  float64
	YFract       float64
	AspectLocked bool
}

// DefaultOptions is a 640x400 panel with the screen at 75% of its height.
func DefaultOptions() Options {
	return Options{PanelWidth: 640, PanelHeight: 400, YFract: 0.75}
}

// Engine edits one animated geometry property. It owns the keyframe track,
// the shape editor over it and the host playhead. It processes commands from
// the frontend and answers queries, and is not safe for concurrent use.
type Engine struct {
	prop  document.Property
	track *keyframe.Track

	mapper *canvas.Mapper
	editor canvas.Editor
	ctrl   *canvas.Controller

	// Host playhead
	frame      int
	clipLength int

	active int // index of the keyframe edits are written to

	// Bumped on every change an observer should re-render for.
	revision int
}

// New creates an engine for the property.
func New(prop *document.Property, opts Options) (*Engine, error) {
	track, err := prop.Track()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		prop:       *prop,
		track:      track,
		clipLength: max(prop.ClipLength, 1),
	}

	sw, sh := float64(prop.Source.Width), float64(prop.Source.Height)
	e.mapper = canvas.NewMapper(sw, sh, prop.Source.PixelAspect)
	e.mapper.Resize(opts.PanelWidth, opts.PanelHeight, opts.YFract)

	switch track.Kind() {
	case keyframe.KindRect:
		e.editor = canvas.NewRectEditor(e.mapper)
	case keyframe.KindAffine:
		a := canvas.NewAffineEditor(e.mapper)
		a.InitTemplate(sw, sh)
		a.AspectLocked = opts.AspectLocked || prop.AspectLocked
		e.editor = a
	case keyframe.KindLine:
		e.editor = canvas.NewLineEditor(e.mapper)
	default:
		return nil, fmt.Errorf("unsupported property kind %q", track.Kind())
	}
	e.ctrl = canvas.NewController(e.editor, e.mapper, e)

	e.SetClipFrame(0)
	return e, nil
}

// --- Parent callbacks (editor → engine) ---

// OnEditStarted is called when a gesture grabs the shape.
func (e *Engine) OnEditStarted() {
	e.revision++
}

// OnGeometryChanged is called for every drag step.
func (e *Engine) OnGeometryChanged() {
	e.revision++
}

// OnEditFinished writes the dragged shape into a keyframe at the playhead,
// adding one when the playhead sits between keyframes.
func (e *Engine) OnEditFinished() {
	e.track.AddKeyframe(e.frame)
	if i, ok := e.track.IndexOf(e.frame); ok {
		e.active = i
	}
	e.commit()
}

// OnScroll steps the playhead.
func (e *Engine) OnScroll(up bool) {
	if up {
		e.SetClipFrame(e.frame + 1)
	} else {
		e.SetClipFrame(e.frame - 1)
	}
}

// --- Commands (frontend → engine) ---

// SetClipFrame moves the playhead, clamped to the clip, and loads the
// evaluated value into the editor. An active drag is dropped.
func (e *Engine) SetClipFrame(frame int) {
	e.ctrl.Cancel()
	e.frame = max(0, min(frame, e.clipLength-1))
	e.active = e.track.ActiveIndex(e.frame)
	e.refresh()
}

// SetClipLength changes the clip length, pulling the playhead inside.
func (e *Engine) SetClipLength(length int) {
	e.clipLength = max(length, 1)
	e.prop.ClipLength = e.clipLength
	e.SetClipFrame(e.frame)
}

// Resize changes the editor panel allocation.
func (e *Engine) Resize(w, h, yFract float64) {
	e.mapper.Resize(w, h, yFract)
	e.revision++
}

// SetEditorActive enables or disables pointer input.
func (e *Engine) SetEditorActive(active bool) {
	e.ctrl.SetActive(active)
	e.revision++
}

// SelectKeyframe moves the playhead onto the keyframe at index and makes it
// active. A keyframe past the clip end cannot become active.
func (e *Engine) SelectKeyframe(index int) {
	kf, ok := e.track.At(index)
	if !ok {
		return
	}
	e.SetClipFrame(kf.Frame)
	if e.frame == kf.Frame {
		e.active = index
	}
}

// AddKeyframe inserts a keyframe at the playhead copying the keyframe
// before it, and makes it active.
func (e *Engine) AddKeyframe() {
	e.track.AddKeyframe(e.frame)
	e.SetClipFrame(e.frame)
}

// AddKeyframeWithValue inserts or replaces the keyframe at kf.Frame.
func (e *Engine) AddKeyframeWithValue(kf keyframe.Keyframe) error {
	if err := e.track.AddKeyframeWithValue(kf); err != nil {
		return err
	}
	e.SetClipFrame(e.frame)
	return nil
}

// DeleteKeyframe removes the keyframe at index. The frame 0 keyframe stays.
func (e *Engine) DeleteKeyframe(index int) {
	e.track.DeleteKeyframe(index)
	e.SetClipFrame(e.frame)
}

// DeleteActiveKeyframe removes the active keyframe.
func (e *Engine) DeleteActiveKeyframe() {
	e.DeleteKeyframe(e.active)
}

// MoveActiveKeyframe moves the active keyframe to frame. The move is ignored
// unless frame stays strictly between the neighbouring keyframes, and the
// first keyframe never leaves frame 0.
func (e *Engine) MoveActiveKeyframe(frame int) {
	if e.active == 0 {
		return
	}
	if prev, ok := e.track.At(e.active - 1); ok && frame <= prev.Frame {
		return
	}
	if next, ok := e.track.At(e.active + 1); ok && frame >= next.Frame {
		return
	}
	e.track.SetFrame(e.active, frame)
	active := e.active
	e.SetClipFrame(frame)
	e.active = active
}

// SetActiveMode changes the interpolation of the segment after the active
// keyframe.
func (e *Engine) SetActiveMode(mode keyframe.Mode) {
	e.track.SetMode(e.active, mode)
	e.refresh()
}

// SetActiveOpacity sets the opacity of the active keyframe.
func (e *Engine) SetActiveOpacity(o keyframe.Opacity) {
	e.track.SetOpacity(e.active, o)
	e.refresh()
}

// CloneFromPrev copies the previous keyframe into the active one.
func (e *Engine) CloneFromPrev() {
	e.track.CloneFromPrev(e.active)
	e.refresh()
}

// CloneFromNext copies the next keyframe into the active one.
func (e *Engine) CloneFromNext() {
	e.track.CloneFromNext(e.active)
	e.refresh()
}

// MenuAction is a shape edit offered by the editor's context menu.
type MenuAction string

const (
	MenuReset            MenuAction = "reset"
	MenuResetAspect      MenuAction = "resetAspect"
	MenuCenterHorizontal MenuAction = "centerHorizontal"
	MenuCenterVertical   MenuAction = "centerVertical"
)

// ApplyMenu runs a menu edit and writes the result into the active keyframe.
func (e *Engine) ApplyMenu(action MenuAction) error {
	switch action {
	case MenuReset:
		e.editor.Reset()
	case MenuResetAspect:
		e.editor.ResetAspect()
	case MenuCenterHorizontal:
		e.editor.CenterHorizontal()
	case MenuCenterVertical:
		e.editor.CenterVertical()
	default:
		return fmt.Errorf("unknown menu action %q", action)
	}
	e.commit()
	return nil
}

// Nudge moves the shape by a source-space offset, e.g. from arrow keys.
func (e *Engine) Nudge(dx, dy float64) {
	if e.ctrl.Dragging() {
		return
	}
	e.editor.Nudge(dx, dy)
	e.commit()
}

// NudgeScale grows or shrinks the shape, e.g. from arrow keys with a modifier.
func (e *Engine) NudgeScale(delta float64) {
	if e.ctrl.Dragging() {
		return
	}
	e.editor.NudgeScale(delta)
	e.commit()
}

// Press forwards a button press in panel coordinates. It reports whether a
// gesture started.
func (e *Engine) Press(x, y float64, mods canvas.Modifiers) bool {
	return e.ctrl.Press(geom.Pt(x, y), mods)
}

// Motion forwards a pointer move.
func (e *Engine) Motion(x, y float64, mods canvas.Modifiers) {
	e.ctrl.Motion(geom.Pt(x, y), mods)
}

// Release forwards a button release.
func (e *Engine) Release(x, y float64, mods canvas.Modifiers) {
	e.ctrl.Release(geom.Pt(x, y), mods)
}

// CancelGesture drops the gesture in progress.
func (e *Engine) CancelGesture() {
	e.ctrl.Cancel()
	e.revision++
}

// Scroll forwards a wheel event.
func (e *Engine) Scroll(up bool) {
	e.ctrl.Scroll(up)
}

func (e *Engine) commit() {
	// The working shape always comes from the editor, so a kind mismatch
	// cannot happen here.
	_ = e.track.SetValue(e.active, e.editor.Shape())
	e.refresh()
}

// refresh reloads the editor from the track unless a drag owns it.
func (e *Engine) refresh() {
	if !e.ctrl.Dragging() {
		_ = e.editor.SetShape(e.track.Evaluate(e.frame))
	}
	e.revision++
}

// --- Queries (frontend ← engine) ---

// Frame returns the playhead.
func (e *Engine) Frame() int { return e.frame }

// ClipLength returns the clip length in frames.
func (e *Engine) ClipLength() int { return e.clipLength }

// ActiveIndex returns the index of the active keyframe.
func (e *Engine) ActiveIndex() int { return e.active }

// Revision increases with every observable change.
func (e *Engine) Revision() int { return e.revision }

// Dragging reports whether a gesture is in progress.
func (e *Engine) Dragging() bool { return e.ctrl.Dragging() }

// Value returns the editor's working shape.
func (e *Engine) Value() keyframe.Shape { return e.editor.Shape() }

// ValueAt evaluates the track at any frame.
func (e *Engine) ValueAt(frame int) (keyframe.Shape, keyframe.Opacity) {
	return e.track.Evaluate(frame), e.track.OpacityAt(frame)
}

// Keyframes returns a copy of the keyframe list.
func (e *Engine) Keyframes() []keyframe.Keyframe {
	return e.track.ToKeyframeList()
}

// Handles returns the editor handles in panel coordinates.
func (e *Engine) Handles() ([]canvas.Handle, error) {
	return e.editor.Handles()
}

// HitTest returns the handle under a panel point.
func (e *Engine) HitTest(x, y float64) canvas.Hit {
	return e.editor.HitTest(geom.Pt(x, y))
}

// Property returns the persisted form of the current track.
func (e *Engine) Property() *document.Property {
	p := e.prop
	p.SetTrack(e.track)
	return &p
}

// Render paints the editor panel onto s.
func (e *Engine) Render(s canvas.Surface) {
	e.ctrl.Render(s)
}

// DrawCommands renders the panel into a command buffer.
func (e *Engine) DrawCommands() []DrawCommand {
	r := &Recorder{}
	e.Render(r)
	return r.Commands
}

// State is the snapshot of an engine sent to observers.
type State struct {
	Frame      int             `json:"frame"`
	ClipLength int             `json:"clipLength"`
	Active     int             `json:"active"`
	Revision   int             `json:"revision"`
	Dragging   bool            `json:"dragging"`
	Kind       keyframe.Kind   `json:"kind"`
	Value      []float64       `json:"value"`
	Opacity    *float64        `json:"opacity,omitempty"`
	Keyframes  []StateKeyframe `json:"keyframes"`
	Handles    []canvas.Handle `json:"handles,omitempty"`
	Shift      *geom.Point     `json:"shiftMarker,omitempty"`
	Commands   []DrawCommand   `json:"commands,omitempty"`
}

// StateKeyframe is a keyframe as reported in State.
type StateKeyframe struct {
	Frame   int       `json:"frame"`
	Value   []float64 `json:"value"`
	Opacity *float64  `json:"opacity,omitempty"`
	Mode    string    `json:"mode"`
}

// Snapshot captures the engine state. Draw commands are included when
// withCommands is set.
func (e *Engine) Snapshot(withCommands bool) State {
	st := State{
		Frame:      e.frame,
		ClipLength: e.clipLength,
		Active:     e.active,
		Revision:   e.revision,
		Dragging:   e.ctrl.Dragging(),
		Kind:       e.track.Kind(),
		Value:      keyframe.Components(e.editor.Shape()),
	}
	if o := e.track.OpacityAt(e.frame); o.Valid {
		st.Opacity = &o.Value
	}
	for _, kf := range e.track.ToKeyframeList() {
		skf := StateKeyframe{Frame: kf.Frame, Value: keyframe.Components(kf.Value), Mode: kf.Mode.String()}
		if kf.Opacity.Valid {
			v := kf.Opacity.Value
			skf.Opacity = &v
		}
		st.Keyframes = append(st.Keyframes, skf)
	}
	if handles, err := e.editor.Handles(); err == nil {
		st.Handles = handles
	}
	if m, ok := e.ctrl.ShiftMarker(); ok {
		st.Shift = &m
	}
	if withCommands {
		st.Commands = e.DrawCommands()
	}
	return st
}

// StateJSON returns Snapshot(true) as JSON.
func (e *Engine) StateJSON() string {
	data, _ := json.Marshal(e.Snapshot(true))
	return string(data)
}

// PropertyJSON returns the persisted property as JSON.
func (e *Engine) PropertyJSON() string {
	data, _ := json.Marshal(e.Property())
	return string(data)
}
