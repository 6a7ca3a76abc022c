package document

import (
	"time"

	"github.com/inamate/kfedit/internal/keyframe"
	"github.com/inamate/kfedit/internal/typeid"
)

func ptr(v float64) *float64 { return &v }

// NewSampleProperty returns a 1280x720 affine property that pans, grows and
// spins over two seconds at 24 fps, then holds.
func NewSampleProperty() *Property {
	now := time.Now().UTC().Format(time.RFC3339)

	return &Property{
		ID:         typeid.NewPropertyID(),
		Name:       "Sample transform",
		Kind:       keyframe.KindAffine,
		Source:     Source{Width: 1280, Height: 720, PixelAspect: 1},
		ClipLength: 72,
		Keyframes: []Keyframe{
			{Frame: 0, Value: []float64{320, 360, 0.5, 0.5, 0}, Opacity: ptr(1), Mode: "smooth"},
			{Frame: 24, Value: []float64{640, 300, 1, 1, 180}, Opacity: ptr(1), Mode: "smooth"},
			{Frame: 36, Value: []float64{640, 300, 1, 1, 180}, Opacity: ptr(0.5), Mode: "discrete"},
			{Frame: 48, Value: []float64{960, 360, 0.75, 0.75, 360}, Opacity: ptr(1), Mode: "smooth"},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
