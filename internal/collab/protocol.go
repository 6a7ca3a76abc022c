package collab

import (
	"encoding/json"

	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
)

type Message struct {
	Type       string          `json:"type"`
	PropertyID string          `json:"propertyId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Hit         *int       `json:"hit,omitempty"` // handle under the cursor
	UserID      string     `json:"userId,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in panel coordinates.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Editing
	TypeEdit  = "edit"  // client → server
	TypeState = "state" // server → clients, after every change
	TypeSaved = "saved" // server → clients, after a snapshot is stored
)

// Edit operations carried in EditPayload.Op.
const (
	OpFrame       = "frame"
	OpClipLength  = "clip.length"
	OpResize      = "resize"
	OpPress       = "press"
	OpMotion      = "motion"
	OpRelease     = "release"
	OpCancel      = "cancel"
	OpScroll      = "scroll"
	OpSelect      = "keyframe.select"
	OpAdd         = "keyframe.add"
	OpDelete      = "keyframe.delete"
	OpMove        = "keyframe.move"
	OpMode        = "keyframe.mode"
	OpOpacity     = "keyframe.opacity"
	OpClonePrev   = "keyframe.clonePrev"
	OpCloneNext   = "keyframe.cloneNext"
	OpMenu        = "menu"
	OpNudge       = "nudge"
	OpNudgeScale  = "nudge.scale"
	OpEditorState = "editor.active"
)

// EditPayload is one command for the room's engine. Only the fields the
// operation reads need to be set.
type EditPayload struct {
	Op string `json:"op"`

	// frame, clip.length, keyframe.select, keyframe.delete, keyframe.move
	Frame int `json:"frame,omitempty"`
	Index int `json:"index,omitempty"`

	// press, motion, release; panel coordinates
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Shift bool    `json:"shift,omitempty"`
	Ctrl  bool    `json:"ctrl,omitempty"`

	// resize
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	YFract float64 `json:"yFract,omitempty"`

	// nudge, nudge.scale
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Delta float64 `json:"delta,omitempty"`

	Up      bool     `json:"up,omitempty"`      // scroll
	Mode    string   `json:"mode,omitempty"`    // keyframe.mode
	Opacity *float64 `json:"opacity,omitempty"` // keyframe.opacity; nil clears
	Action  string   `json:"action,omitempty"`  // menu
	Active  bool     `json:"active,omitempty"`  // editor.active
}

type WelcomePayload struct {
	ClientID string             `json:"clientId"`
	UserID   string             `json:"userId"`
	Property *document.Property `json:"property"`
	State    engine.State       `json:"state"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}
