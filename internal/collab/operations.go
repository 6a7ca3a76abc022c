package collab

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/keyframe"
)

var (
	ErrGestureBusy = errors.New("another client is editing")
	ErrUnknownOp   = errors.New("unknown edit operation")
)

// EditSession holds the authoritative engine of a room. Only one client at
// a time may drag; other clients' edits are refused until it releases.
type EditSession struct {
	mu      sync.Mutex
	opts    engine.Options
	engine  *engine.Engine
	owner   string // client holding the gesture
	version int    // stored snapshot the engine started from
	dirty   bool   // track changed since the last save
}

func NewEditSession(doc *document.Property, opts engine.Options) (*EditSession, error) {
	e, err := engine.New(doc, opts)
	if err != nil {
		return nil, err
	}
	return &EditSession{opts: opts, engine: e, version: doc.Version}, nil
}

// Apply runs op on behalf of clientID and reports whether observers need a
// new state.
func (s *EditSession) Apply(clientID string, op EditPayload) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.engine
	if s.owner != "" && s.owner != clientID {
		switch op.Op {
		case OpMotion, OpRelease, OpCancel:
			return false, nil
		default:
			return false, ErrGestureBusy
		}
	}

	before := e.Revision()
	mods := canvas.Modifiers{Shift: op.Shift, Ctrl: op.Ctrl}
	persist := false

	switch op.Op {
	case OpFrame:
		e.SetClipFrame(op.Frame)
	case OpClipLength:
		e.SetClipLength(op.Frame)
		persist = true
	case OpResize:
		if op.Width <= 0 || op.Height <= 0 {
			return false, fmt.Errorf("resize to %gx%g", op.Width, op.Height)
		}
		yFract := op.YFract
		if yFract <= 0 {
			yFract = s.opts.YFract
		}
		e.Resize(op.Width, op.Height, yFract)
	case OpEditorState:
		e.SetEditorActive(op.Active)
	case OpPress:
		if e.Press(op.X, op.Y, mods) {
			s.owner = clientID
		}
	case OpMotion:
		e.Motion(op.X, op.Y, mods)
	case OpRelease:
		persist = e.Dragging()
		e.Release(op.X, op.Y, mods)
	case OpCancel:
		e.CancelGesture()
	case OpScroll:
		e.Scroll(op.Up)
	case OpSelect:
		e.SelectKeyframe(op.Index)
	case OpAdd:
		e.AddKeyframe()
		persist = true
	case OpDelete:
		e.DeleteKeyframe(op.Index)
		persist = true
	case OpMove:
		e.MoveActiveKeyframe(op.Frame)
		persist = true
	case OpMode:
		mode, err := keyframe.ParseMode(op.Mode)
		if err != nil {
			return false, err
		}
		e.SetActiveMode(mode)
		persist = true
	case OpOpacity:
		var o keyframe.Opacity
		if op.Opacity != nil {
			o = keyframe.OpacityOf(*op.Opacity)
		}
		e.SetActiveOpacity(o)
		persist = true
	case OpClonePrev:
		e.CloneFromPrev()
		persist = true
	case OpCloneNext:
		e.CloneFromNext()
		persist = true
	case OpMenu:
		if err := e.ApplyMenu(engine.MenuAction(op.Action)); err != nil {
			return false, err
		}
		persist = true
	case OpNudge:
		e.Nudge(op.DX, op.DY)
		persist = true
	case OpNudgeScale:
		e.NudgeScale(op.Delta)
		persist = true
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownOp, op.Op)
	}

	if !e.Dragging() {
		s.owner = ""
	}
	changed := e.Revision() != before
	if persist && changed {
		s.dirty = true
	}
	return changed, nil
}

// Leave drops the gesture clientID holds, if any.
func (s *EditSession) Leave(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != clientID {
		return false
	}
	s.engine.CancelGesture()
	s.owner = ""
	return true
}

// State is the engine snapshot broadcast to clients.
func (s *EditSession) State() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(true)
}

// Document returns the current property at the version it was loaded or
// last saved at.
func (s *EditSession) Document() *document.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document()
}

func (s *EditSession) document() *document.Property {
	doc := s.engine.Property()
	doc.Version = s.version
	return doc
}

// Pending returns the document to save when the track changed since the
// last save.
func (s *EditSession) Pending() (*document.Property, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil, false
	}
	return s.document(), true
}

// MarkSaved records that saved was stored as version to. Edits made while
// the save ran keep the session dirty.
func (s *EditSession) MarkSaved(saved *document.Property, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = to
	current := s.engine.Property()
	s.dirty = !sameKeyframes(current, saved)
}

// Reload replaces the engine with doc, keeping the playhead. Any gesture
// and unsaved edits are dropped.
func (s *EditSession) Reload(doc *document.Property) error {
	e, err := engine.New(doc, s.opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.SetClipFrame(s.engine.Frame())
	s.engine = e
	s.owner = ""
	s.version = doc.Version
	s.dirty = false
	return nil
}

func sameKeyframes(a, b *document.Property) bool {
	if a.ClipLength != b.ClipLength || len(a.Keyframes) != len(b.Keyframes) {
		return false
	}
	for i := range a.Keyframes {
		x, y := a.Keyframes[i], b.Keyframes[i]
		if x.Frame != y.Frame || x.Mode != y.Mode || !slices.Equal(x.Value, y.Value) {
			return false
		}
		if (x.Opacity == nil) != (y.Opacity == nil) || (x.Opacity != nil && *x.Opacity != *y.Opacity) {
			return false
		}
	}
	return true
}
