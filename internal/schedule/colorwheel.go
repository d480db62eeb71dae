package schedule

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"voccal/internal/model"
)

// DefaultPalette holds the 20 colors events cycle through.
var DefaultPalette = []model.Color{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// ColorWheel hands out palette colors cyclically. It never runs out.
type ColorWheel struct {
	palette []model.Color
	next    int
}

// NewColorWheel cycles over palette, or DefaultPalette when none is given.
func NewColorWheel(palette ...model.Color) *ColorWheel {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	p := make([]model.Color, len(palette))
	copy(p, palette)
	return &ColorWheel{palette: p}
}

// Next returns the next color and advances the wheel.
func (w *ColorWheel) Next() model.Color {
	c := w.palette[w.next%len(w.palette)]
	w.next++
	return c
}

// Reset moves the wheel back to the first color.
func (w *ColorWheel) Reset() {
	w.next = 0
}

func (w *ColorWheel) Len() int {
	return len(w.palette)
}

// ParsePalette validates hex colors and returns them normalized to
// lowercase "#rrggbb".
func ParsePalette(hexes []string) ([]model.Color, error) {
	out := make([]model.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette: invalid color %q: %w", h, err)
		}
		out = append(out, model.Color(c.Hex()))
	}
	return out, nil
}
