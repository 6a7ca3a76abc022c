package engine

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/geom"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string    `json:"op"`                    // Operation: "fill" or "stroke"
	Points      []float64 `json:"points"`                // Flat x, y pairs in panel coordinates
	Closed      bool      `json:"closed,omitempty"`      // Close the path before stroking
	Fill        string    `json:"fill,omitempty"`        // Fill color
	Stroke      string    `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64   `json:"strokeWidth,omitempty"` // Stroke width
}

// Recorder is a canvas.Surface that records draw commands.
type Recorder struct {
	Commands []DrawCommand
}

var _ canvas.Surface = (*Recorder)(nil)

func (r *Recorder) Polyline(points []geom.Point, closed bool, c canvas.Color, width float64) {
	r.Commands = append(r.Commands, DrawCommand{
		Op:          "stroke",
		Points:      flatten(points),
		Closed:      closed,
		Stroke:      cssColor(c),
		StrokeWidth: width,
	})
}

func (r *Recorder) FillPolygon(points []geom.Point, c canvas.Color) {
	r.Commands = append(r.Commands, DrawCommand{
		Op:     "fill",
		Points: flatten(points),
		Fill:   cssColor(c),
	})
}

func flatten(points []geom.Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

// cssColor formats c for a Canvas2D fillStyle or strokeStyle.
func cssColor(c canvas.Color) string {
	to8 := func(v float64) int { return int(max(0, min(1, v))*255 + 0.5) }
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", to8(c.R), to8(c.G), to8(c.B), c.A)
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
