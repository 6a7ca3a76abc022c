package document

import (
	"errors"
	"fmt"

	"github.com/inamate/kfedit/internal/geom"
	"github.com/inamate/kfedit/internal/keyframe"
)

var ErrInvalidDocument = errors.New("invalid property document")

// Property is the persisted form of one animated geometry property.
type Property struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Kind         keyframe.Kind `json:"kind" yaml:"kind"`
	Source       Source        `json:"source" yaml:"source"`
	ClipLength   int           `json:"clipLength" yaml:"clipLength"`
	Interpolator string        `json:"interpolator,omitempty" yaml:"interpolator,omitempty"`
	AspectLocked bool          `json:"aspectLocked,omitempty" yaml:"aspectLocked,omitempty"`
	Keyframes    []Keyframe    `json:"keyframes" yaml:"keyframes"`
	Version      int           `json:"version" yaml:"-"`
	CreatedAt    string        `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt    string        `json:"updatedAt,omitempty" yaml:"-"`
}

// Source describes the clip the property is edited over.
type Source struct {
	Width       int     `json:"width" yaml:"width"`
	Height      int     `json:"height" yaml:"height"`
	PixelAspect float64 `json:"pixelAspect,omitempty" yaml:"pixelAspect,omitempty"`
}

// Keyframe stores the value as its flat components, in the order
// keyframe.Components produces them.
type Keyframe struct {
	Frame   int       `json:"frame" yaml:"frame"`
	Value   []float64 `json:"value" yaml:"value,flow"`
	Opacity *float64  `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Mode    string    `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// DefaultShape is the value a new property of kind starts with over a w×h
// source.
func DefaultShape(kind keyframe.Kind, w, h float64) (keyframe.Shape, error) {
	switch kind {
	case keyframe.KindRect:
		return keyframe.Rect{W: w, H: h}, nil
	case keyframe.KindAffine:
		return keyframe.Affine{X: w / 2, Y: h / 2, ScaleX: 1, ScaleY: 1}, nil
	case keyframe.KindLine:
		return keyframe.Line{
			P1: geom.Pt(w/2, h/2+h/4),
			P2: geom.Pt(w/2, h/2-h/4),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, kind)
	}
}

// NewProperty creates a property with a single keyframe at frame 0.
func NewProperty(id, name string, kind keyframe.Kind, src Source, clipLength int) (*Property, error) {
	initial, err := DefaultShape(kind, float64(src.Width), float64(src.Height))
	if err != nil {
		return nil, err
	}
	p := &Property{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Source:     src,
		ClipLength: clipLength,
		Version:    1,
	}
	p.SetTrack(keyframe.NewTrack(initial, keyframe.OpacityOf(1)))
	return p, nil
}

// Validate checks the header fields and that the keyframes form a track.
// Stored rects are at least 1x1.
func (p *Property) Validate() error {
	if p.Source.Width <= 0 || p.Source.Height <= 0 {
		return fmt.Errorf("%w: source size %dx%d", ErrInvalidDocument, p.Source.Width, p.Source.Height)
	}
	if p.ClipLength <= 0 {
		return fmt.Errorf("%w: clip length %d", ErrInvalidDocument, p.ClipLength)
	}
	if _, err := keyframe.InterpolatorByName(p.Interpolator); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	t, err := p.Track()
	if err != nil {
		return err
	}
	for _, kf := range t.ToKeyframeList() {
		if r, ok := kf.Value.(keyframe.Rect); ok && (r.W < 1 || r.H < 1) {
			return fmt.Errorf("%w: frame %d: rect size %gx%g below 1", ErrInvalidDocument, kf.Frame, r.W, r.H)
		}
	}
	return nil
}

// Track builds the keyframe track the document describes.
func (p *Property) Track() (*keyframe.Track, error) {
	list := make([]keyframe.Keyframe, 0, len(p.Keyframes))
	for _, kf := range p.Keyframes {
		value, err := keyframe.FromComponents(p.Kind, kf.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrInvalidDocument, kf.Frame, err)
		}
		mode, err := keyframe.ParseMode(kf.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrInvalidDocument, kf.Frame, err)
		}
		var opacity keyframe.Opacity
		if kf.Opacity != nil {
			opacity = keyframe.OpacityOf(*kf.Opacity)
		}
		list = append(list, keyframe.Keyframe{Frame: kf.Frame, Value: value, Opacity: opacity, Mode: mode})
	}

	t, err := keyframe.FromKeyframeList(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	in, err := keyframe.InterpolatorByName(p.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	t.SetInterpolator(in)
	return t, nil
}

// SetTrack replaces the stored keyframes with the track's.
func (p *Property) SetTrack(t *keyframe.Track) {
	list := t.ToKeyframeList()
	p.Kind = t.Kind()
	p.Keyframes = make([]Keyframe, len(list))
	for i, kf := range list {
		out := Keyframe{
			Frame: kf.Frame,
			Value: keyframe.Components(kf.Value),
			Mode:  kf.Mode.String(),
		}
		if kf.Opacity.Valid {
			o := kf.Opacity.Value
			out.Opacity = &o
		}
		p.Keyframes[i] = out
	}
}
