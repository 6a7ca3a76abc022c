// Package keyframe holds the keyframe track of one geometry property and
// the engine that evaluates it at arbitrary frames.
package keyframe

import (
	"errors"
	"fmt"
	"sort"
)

// Mode is the interpolation policy of the segment that starts at a keyframe.
type Mode int

const (
	// Discrete holds the keyframe value until the next keyframe.
	Discrete Mode = iota
	// Smooth blends towards the next keyframe.
	Smooth
)

func (m Mode) String() string {
	switch m {
	case Discrete:
		return "discrete"
	case Smooth:
		return "smooth"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "discrete":
		return Discrete, nil
	case "smooth", "":
		return Smooth, nil
	default:
		return 0, fmt.Errorf("unknown keyframe mode %q", s)
	}
}

// Opacity is an optional opacity in [0, 1].
type Opacity struct {
	Value float64
	Valid bool
}

// OpacityOf returns a present opacity clamped to [0, 1].
func OpacityOf(v float64) Opacity {
	return Opacity{Value: max(0, min(1, v)), Valid: true}
}

// Keyframe anchors a property's value at a frame.
type Keyframe struct {
	Frame   int
	Value   Shape
	Opacity Opacity
	Mode    Mode
}

var (
	ErrEmptyTrack    = errors.New("keyframe track needs at least one keyframe")
	ErrNoFrameZero   = errors.New("keyframe track needs a keyframe at frame 0")
	ErrKindMismatch  = errors.New("keyframe value kind does not match track")
	ErrDuplicate     = errors.New("duplicate keyframe frame")
	ErrNegativeFrame = errors.New("keyframe frame is negative")
)

// Track is the ordered keyframe list of one property. It always holds at
// least one keyframe and the keyframe at frame 0 cannot be deleted.
// A Track is not safe for concurrent use.
type Track struct {
	kind         Kind
	keyframes    []Keyframe
	interpolator Interpolator
}

// NewTrack creates a track with a single Smooth keyframe at frame 0.
func NewTrack(initial Shape, opacity Opacity) *Track {
	return &Track{
		kind:         initial.Kind(),
		keyframes:    []Keyframe{{Frame: 0, Value: initial, Opacity: opacity, Mode: Smooth}},
		interpolator: Linear{},
	}
}

// FromKeyframeList builds a track from a persisted keyframe list. The list
// is sorted by frame; it must be non-empty, contain frame 0, have unique
// non-negative frames and a single shape kind.
func FromKeyframeList(list []Keyframe) (*Track, error) {
	if len(list) == 0 {
		return nil, ErrEmptyTrack
	}

	kfs := make([]Keyframe, len(list))
	copy(kfs, list)
	sort.SliceStable(kfs, func(i, j int) bool {
		return kfs[i].Frame < kfs[j].Frame
	})

	if kfs[0].Value == nil {
		return nil, fmt.Errorf("frame %d: %w", kfs[0].Frame, ErrKindMismatch)
	}
	kind := kfs[0].Value.Kind()
	for i, kf := range kfs {
		if kf.Frame < 0 {
			return nil, fmt.Errorf("frame %d: %w", kf.Frame, ErrNegativeFrame)
		}
		if kf.Value == nil || kf.Value.Kind() != kind {
			return nil, fmt.Errorf("frame %d: %w", kf.Frame, ErrKindMismatch)
		}
		if i > 0 && kfs[i-1].Frame == kf.Frame {
			return nil, fmt.Errorf("frame %d: %w", kf.Frame, ErrDuplicate)
		}
	}
	if kfs[0].Frame != 0 {
		return nil, ErrNoFrameZero
	}

	return &Track{kind: kind, keyframes: kfs, interpolator: Linear{}}, nil
}

// ToKeyframeList returns a copy of the keyframes in track order.
func (t *Track) ToKeyframeList() []Keyframe {
	out := make([]Keyframe, len(t.keyframes))
	copy(out, t.keyframes)
	return out
}

// SetInterpolator replaces the smoother used on Smooth segments.
// A nil interpolator restores Linear.
func (t *Track) SetInterpolator(in Interpolator) {
	if in == nil {
		in = Linear{}
	}
	t.interpolator = in
}

// Kind returns the shape kind every keyframe in the track carries.
func (t *Track) Kind() Kind { return t.kind }

// Len returns the number of keyframes.
func (t *Track) Len() int { return len(t.keyframes) }

// At returns the keyframe at index.
func (t *Track) At(index int) (Keyframe, bool) {
	if !t.valid(index) {
		return Keyframe{}, false
	}
	return t.keyframes[index], true
}

// IndexOf returns the index of the keyframe exactly at frame.
func (t *Track) IndexOf(frame int) (int, bool) {
	for i, kf := range t.keyframes {
		if kf.Frame == frame {
			return i, true
		}
	}
	return -1, false
}

// ActiveIndex returns the index of the last keyframe at or before frame,
// or 0 when frame precedes every keyframe.
func (t *Track) ActiveIndex(frame int) int {
	active := 0
	for i, kf := range t.keyframes {
		if kf.Frame <= frame {
			active = i
		}
	}
	return active
}

// Evaluate returns the property value at frame.
func (t *Track) Evaluate(frame int) Shape {
	kf, next, fract, ok := t.bracket(frame)
	if !ok {
		return kf.Value
	}

	kind := kf.Value.Kind()
	out := make([]float64, componentCount(kind))
	prev := t.keyframes[max(0, next-2)].Value
	following := t.keyframes[min(len(t.keyframes)-1, next+1)].Value

	c0, c1 := Components(prev), Components(kf.Value)
	c2, c3 := Components(t.keyframes[next].Value), Components(following)
	for i := range out {
		out[i] = t.interpolator.Interpolate(c0[i], c1[i], c2[i], c3[i], fract)
	}

	shape, err := FromComponents(kind, out)
	if err != nil {
		return kf.Value
	}
	return shape
}

// OpacityAt evaluates the opacity channel with the same bracketing as
// Evaluate. Segments where either end has no opacity hold the start value.
func (t *Track) OpacityAt(frame int) Opacity {
	kf, next, fract, ok := t.bracket(frame)
	if !ok {
		return kf.Opacity
	}
	end := t.keyframes[next].Opacity
	if !kf.Opacity.Valid || !end.Valid {
		return kf.Opacity
	}
	return OpacityOf(lerp(kf.Opacity.Value, end.Value, fract))
}

// bracket finds the segment containing frame. When ok is false the returned
// keyframe's value is held as is: exact hits, Discrete segments and frames
// outside the keyed range.
func (t *Track) bracket(frame int) (kf Keyframe, next int, fract float64, ok bool) {
	if len(t.keyframes) == 0 {
		return Keyframe{}, 0, 0, false
	}
	if frame < t.keyframes[0].Frame {
		return t.keyframes[0], 0, 0, false
	}

	for i, cur := range t.keyframes {
		if cur.Frame == frame {
			return cur, 0, 0, false
		}
		if i+1 >= len(t.keyframes) {
			// Past last keyframe, hold its value.
			return cur, 0, 0, false
		}

		n := t.keyframes[i+1]
		if cur.Frame < frame && frame < n.Frame {
			if cur.Mode == Discrete {
				return cur, 0, 0, false
			}
			fract = float64(frame-cur.Frame) / float64(n.Frame-cur.Frame)
			return cur, i + 1, fract, true
		}
	}

	return t.keyframes[len(t.keyframes)-1], 0, 0, false
}

// AddKeyframe inserts a keyframe at frame copying the value, opacity and mode
// of the last keyframe before it. With no earlier keyframe the last keyframe
// of the track is the source. Existing frames are left alone.
func (t *Track) AddKeyframe(frame int) {
	if frame < 0 {
		return
	}
	if _, ok := t.IndexOf(frame); ok {
		return
	}

	src := t.keyframes[len(t.keyframes)-1]
	for _, kf := range t.keyframes {
		if kf.Frame < frame {
			src = kf
		}
	}

	t.keyframes = append(t.keyframes, Keyframe{
		Frame:   frame,
		Value:   src.Value,
		Opacity: src.Opacity,
		Mode:    src.Mode,
	})
	t.sort()
}

// AddKeyframeWithValue inserts kf, replacing any keyframe already at its frame.
func (t *Track) AddKeyframeWithValue(kf Keyframe) error {
	if kf.Frame < 0 {
		return ErrNegativeFrame
	}
	if kf.Value == nil || kf.Value.Kind() != t.kind {
		return ErrKindMismatch
	}

	if i, ok := t.IndexOf(kf.Frame); ok {
		t.keyframes = append(t.keyframes[:i], t.keyframes[i+1:]...)
	}
	t.keyframes = append(t.keyframes, kf)
	t.sort()
	return nil
}

// DeleteKeyframe removes the keyframe at index. Index 0 is never removed.
func (t *Track) DeleteKeyframe(index int) {
	if index == 0 || !t.valid(index) {
		return
	}
	t.keyframes = append(t.keyframes[:index], t.keyframes[index+1:]...)
}

// SetFrame moves the keyframe at index to frame without re-sorting, for
// live frame dragging. Callers avoid collisions and keep the order.
func (t *Track) SetFrame(index, frame int) {
	if !t.valid(index) || frame < 0 {
		return
	}
	t.keyframes[index].Frame = frame
}

// SetValue replaces the value of the keyframe at index.
func (t *Track) SetValue(index int, value Shape) error {
	if !t.valid(index) {
		return nil
	}
	if value == nil || value.Kind() != t.kind {
		return ErrKindMismatch
	}
	t.keyframes[index].Value = value
	return nil
}

// SetOpacity replaces the opacity of the keyframe at index.
func (t *Track) SetOpacity(index int, o Opacity) {
	if !t.valid(index) {
		return
	}
	t.keyframes[index].Opacity = o
}

// SetMode changes the interpolation mode of the segment starting at index.
func (t *Track) SetMode(index int, mode Mode) {
	if !t.valid(index) {
		return
	}
	t.keyframes[index].Mode = mode
}

// CloneFromNext copies value and opacity from the following keyframe.
func (t *Track) CloneFromNext(index int) {
	if !t.valid(index) || !t.valid(index+1) {
		return
	}
	t.keyframes[index].Value = t.keyframes[index+1].Value
	t.keyframes[index].Opacity = t.keyframes[index+1].Opacity
}

// CloneFromPrev copies value and opacity from the preceding keyframe.
func (t *Track) CloneFromPrev(index int) {
	if !t.valid(index) || !t.valid(index-1) {
		return
	}
	t.keyframes[index].Value = t.keyframes[index-1].Value
	t.keyframes[index].Opacity = t.keyframes[index-1].Opacity
}

func (t *Track) valid(index int) bool {
	return index >= 0 && index < len(t.keyframes)
}

func (t *Track) sort() {
	sort.SliceStable(t.keyframes, func(i, j int) bool {
		return t.keyframes[i].Frame < t.keyframes[j].Frame
	})
}
