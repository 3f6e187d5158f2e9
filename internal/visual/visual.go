// Package visual holds the chart primitives placed in report documents.
//
// Every primitive is a Drawable: it reports the size it needs through
// Measure and paints itself into a box on a Canvas through Draw. Geometry is
// computed by a pure Layout step first (desired geometry, clamp against the
// box, recompute dependents), so it can be checked without a renderer.
// Coordinates have their origin at the top-left with y growing downwards.
package visual

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB color.
type Color struct{ R, G, B uint8 }

// Hex parses "#rrggbb". Malformed input yields black.
func Hex(s string) Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Palette shared by the primitives and the document styles.
var (
	White      = Hex("#ffffff")
	TextDark   = Hex("#111827")
	TextValue  = Hex("#1f2937")
	TextMuted  = Hex("#6b7280")
	Blue       = Hex("#3b82f6")
	Green      = Hex("#10b981")
	Red        = Hex("#ef4444")
	Amber      = Hex("#f59e0b")
	Track      = Hex("#e5e7eb")
	Border     = Hex("#d1d5db")
	HeaderFill = Hex("#1f2937")
	ZebraFill  = Hex("#f9fafb")
)

// Font families available to every renderer.
const (
	Times     = "Times"
	Helvetica = "Helvetica"
)

// Font selects a face and size in points.
type Font struct {
	Family string
	Bold   bool
	Italic bool
	Size   float64
}

// Style returns the fpdf-style string: "", "B", "I" or "BI".
func (f Font) Style() string {
	s := ""
	if f.Bold {
		s += "B"
	}
	if f.Italic {
		s += "I"
	}
	return s
}

func regular(size float64) Font { return Font{Family: Times, Size: size} }
func bold(size float64) Font    { return Font{Family: Times, Bold: true, Size: size} }

// Box is a placement rectangle.
type Box struct{ X, Y, W, H float64 }

// Rect is a filled or stroked rectangle produced by a layout.
type Rect struct {
	X, Y, W, H float64
	Color      Color
}

// TextItem is a positioned string; Y is the baseline.
type TextItem struct {
	X, Y  float64
	Text  string
	Font  Font
	Color Color
}

// Measurer reports rendered string widths.
type Measurer interface {
	StringWidth(s string, f Font) float64
}

// Canvas is the drawing surface a renderer hands to primitives.
type Canvas interface {
	Measurer
	FillRect(x, y, w, h float64, c Color)
	StrokeRect(x, y, w, h, lineWidth float64, c Color)
	Line(x1, y1, x2, y2, lineWidth float64, c Color)
	Text(x, y float64, s string, f Font, c Color)
}

// Drawable is a self-contained visual element.
type Drawable interface {
	Measure() (w, h float64)
	Draw(c Canvas, box Box)
}

// ApproxMeasurer estimates widths as half the font size per rune. It is the
// measurer for renderers without font metrics, such as the text outline.
type ApproxMeasurer struct{}

func (ApproxMeasurer) StringWidth(s string, f Font) float64 {
	return float64(len([]rune(s))) * f.Size * 0.5
}

func drawRects(c Canvas, rects []Rect) {
	for _, r := range rects {
		if r.W > 0 && r.H > 0 {
			c.FillRect(r.X, r.Y, r.W, r.H, r.Color)
		}
	}
}

func drawTexts(c Canvas, items []TextItem) {
	for _, t := range items {
		if t.Text != "" {
			c.Text(t.X, t.Y, t.Text, t.Font, t.Color)
		}
	}
}
