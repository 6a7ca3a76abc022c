package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/inamate/kfedit/internal/keyframe"
)

func TestNewPropertyDefaults(t *testing.T) {
	tests := []struct {
		kind keyframe.Kind
		want keyframe.Shape
	}{
		{keyframe.KindRect, keyframe.Rect{W: 400, H: 300}},
		{keyframe.KindAffine, keyframe.Affine{X: 200, Y: 150, ScaleX: 1, ScaleY: 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := NewProperty("prop_1", "p", tt.kind, Source{Width: 400, Height: 300}, 100)
			if err != nil {
				t.Fatal(err)
			}
			tr, err := p.Track()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, tr.Evaluate(50)); diff != "" {
				t.Errorf("initial value (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := NewProperty("prop_1", "p", "ellipse", Source{Width: 1, Height: 1}, 1); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("unknown kind error = %v, want ErrInvalidDocument", err)
	}
}

func TestTrackRoundTrip(t *testing.T) {
	p := NewSampleProperty()
	tr, err := p.Track()
	if err != nil {
		t.Fatal(err)
	}
	tr.AddKeyframe(60)
	tr.SetOpacity(0, keyframe.Opacity{})

	p.SetTrack(tr)
	if len(p.Keyframes) != 5 {
		t.Fatalf("got %d keyframes, want 5", len(p.Keyframes))
	}
	if p.Keyframes[0].Opacity != nil {
		t.Error("absent opacity was stored")
	}
	if got := p.Keyframes[4]; got.Frame != 60 || got.Mode != "smooth" {
		t.Errorf("added keyframe = %+v", got)
	}

	back, err := p.Track()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tr.ToKeyframeList(), back.ToKeyframeList()); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Property)
	}{
		{"no keyframes", func(p *Property) { p.Keyframes = nil }},
		{"missing frame zero", func(p *Property) { p.Keyframes = p.Keyframes[1:] }},
		{"wrong component count", func(p *Property) { p.Keyframes[1].Value = []float64{1, 2} }},
		{"unknown mode", func(p *Property) { p.Keyframes[1].Mode = "bezier" }},
		{"duplicate frame", func(p *Property) { p.Keyframes[1].Frame = 0 }},
		{"zero source", func(p *Property) { p.Source.Width = 0 }},
		{"zero clip", func(p *Property) { p.ClipLength = 0 }},
		{"unknown interpolator", func(p *Property) { p.Interpolator = "spline" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSampleProperty()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Validate() = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestValidateRejectsDegenerateRect(t *testing.T) {
	p, err := NewProperty("prop_1", "p", keyframe.KindRect, Source{Width: 400, Height: 300}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default rect rejected: %v", err)
	}

	p.Keyframes[0].Value = []float64{0, 0, 0, 0}
	if err := p.Validate(); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Validate() = %v, want ErrInvalidDocument", err)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	p := NewSampleProperty()
	p.Interpolator = "catmull-rom"

	var buf bytes.Buffer
	if err := WritePreset(&buf, p); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "createdAt") {
		t.Error("preset carries storage timestamps")
	}

	got, err := ReadPreset(&buf)
	if err != nil {
		t.Fatal(err)
	}
	opts := cmpopts.IgnoreFields(Property{}, "Version", "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(p, got, opts); diff != "" {
		t.Errorf("preset round trip (-want +got):\n%s", diff)
	}
}

func TestReadPresetInvalid(t *testing.T) {
	const preset = `
id: prop_x
kind: rect
source: {width: 100, height: 100}
clipLength: 10
keyframes:
  - frame: 5
    value: [0, 0, 10, 10]
`
	if _, err := ReadPreset(strings.NewReader(preset)); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("ReadPreset() error = %v, want ErrInvalidDocument", err)
	}
}

func TestParse(t *testing.T) {
	data, err := json.Marshal(NewSampleProperty())
	if err != nil {
		t.Fatal(err)
	}
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != keyframe.KindAffine || len(p.Keyframes) != 4 {
		t.Errorf("parsed %+v", p)
	}

	if _, err := Parse([]byte(`{"kind":`)); err == nil {
		t.Error("Parse accepted truncated JSON")
	}
}
