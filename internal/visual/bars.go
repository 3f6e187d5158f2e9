package visual

import "math"

// ════════════════════════════════════════════════════════════════════
// VerticalBar
// ════════════════════════════════════════════════════════════════════

const (
	vbarLabelBand   = 30.0 // reserved below the bar for the label
	vbarInsideLimit = 18.0 // bars taller than this carry their value inside
)

// VerticalBar is one upright bar with its label underneath.
type VerticalBar struct {
	Label  string
	Value  float64
	Max    float64
	Width  float64
	Height float64
	Color  Color
	Unit   string
}

// VerticalBarLayout is the computed geometry of a VerticalBar.
type VerticalBarLayout struct {
	Bar   Rect
	Label TextItem
	Value TextItem // empty Text when the value does not fit the width
}

func (b VerticalBar) Measure() (float64, float64) { return b.Width, b.Height }

// Layout places the bar, label and value inside box.
func (b VerticalBar) Layout(m Measurer, box Box) VerticalBarLayout {
	chartH := math.Max(0, box.H-vbarLabelBand)
	barW := math.Max(10, math.Min(box.W-4, box.W*0.95))
	barX := box.X + math.Max(0, (box.W-barW)/2)

	barH := 0.0
	if b.Max > 0 {
		barH = math.Min(math.Abs(b.Value)/b.Max*chartH, chartH)
	}
	base := box.Y + box.H - vbarLabelBand
	barTop := base - barH

	var out VerticalBarLayout
	out.Bar = Rect{X: barX, Y: barTop, W: barW, H: barH, Color: b.Color}

	labelFont := regular(8)
	label := Fit(m, Truncate(b.Label, int(box.W/5)), labelFont, box.W)
	lw := m.StringWidth(label, labelFont)
	out.Label = TextItem{
		X: box.X + math.Max(0, (box.W-lw)/2), Y: box.Y + box.H - 5,
		Text: label, Font: labelFont, Color: TextDark,
	}

	valueFont := bold(8)
	value := FormatValue(b.Value, b.Unit)
	vw := m.StringWidth(value, valueFont)
	vx := math.Max(0, (box.W-vw)/2)
	if vx+vw > box.W {
		return out
	}
	out.Value = TextItem{X: box.X + vx, Text: value, Font: valueFont}
	if barH > vbarInsideLimit {
		out.Value.Y = barTop + 10
		out.Value.Color = White
	} else {
		out.Value.Y = barTop - 2
		out.Value.Color = TextValue
	}
	return out
}

func (b VerticalBar) Draw(c Canvas, box Box) {
	l := b.Layout(c, box)
	drawRects(c, []Rect{l.Bar})
	drawTexts(c, []TextItem{l.Label, l.Value})
}

// ════════════════════════════════════════════════════════════════════
// HorizontalBar
// ════════════════════════════════════════════════════════════════════

const (
	hbarLineHeight = 11.0
	hbarPad        = 4.0
)

// HorizontalBar is one bar growing rightwards, label on the left and the
// value immediately after the bar.
type HorizontalBar struct {
	Label  string
	Value  float64
	Max    float64
	Width  float64
	Height float64
	Color  Color
	Unit   string
}

// HorizontalBarLayout is the computed geometry of a HorizontalBar.
type HorizontalBarLayout struct {
	Bar        Rect
	LabelLines []TextItem
	Value      TextItem
	TextWidth  float64 // label column width
	BarAreaX   float64 // offset of the bar area from the box's left edge
}

func (b HorizontalBar) Measure() (float64, float64) { return b.Width, b.Height }

// Layout places label, bar and value. The first pass scales the bar into
// the space left after the label and value columns; the second shrinks it
// if the value text would cross the right edge.
func (b HorizontalBar) Layout(m Measurer, box Box) HorizontalBarLayout {
	valueFont := bold(9)
	labelFont := regular(9)

	value := FormatValue(b.Value, b.Unit)
	vw := m.StringWidth(value, valueFont)

	textW := box.W / 5
	barAreaX := textW + 5
	valueAreaW := vw + 10
	barAreaW := box.W - barAreaX - valueAreaW

	barW := 0.0
	if b.Max > 0 {
		barW = math.Max(0, math.Abs(b.Value)/b.Max*barAreaW)
	}
	barH := math.Max(0, box.H-2*hbarPad)
	center := hbarPad + barH/2

	valueX := barAreaX + barW + 5
	if valueX+vw > box.W-5 {
		if maxBarW := box.W - barAreaX - valueAreaW - 5; maxBarW > 0 {
			barW = math.Min(barW, maxBarW)
			valueX = barAreaX + barW + 5
		}
	}

	out := HorizontalBarLayout{TextWidth: textW, BarAreaX: barAreaX}
	out.Bar = Rect{X: box.X + barAreaX, Y: box.Y + hbarPad, W: barW, H: barH, Color: b.Color}
	out.Value = TextItem{X: box.X + valueX, Y: box.Y + center + 4.5, Text: value, Font: valueFont, Color: TextValue}

	lines := wrapLabel(m, b.Label, labelFont, textW-5, box.H)
	total := float64(len(lines)) * hbarLineHeight
	for i, line := range lines {
		lw := m.StringWidth(line, labelFont)
		out.LabelLines = append(out.LabelLines, TextItem{
			X:     box.X + math.Max(0, textW-lw-2),
			Y:     box.Y + center - total/2 + float64(i+1)*hbarLineHeight - 2,
			Text:  line,
			Font:  labelFont,
			Color: TextDark,
		})
	}
	return out
}

// wrapLabel wraps the label and keeps only as many lines as fit height,
// marking the cut with an ellipsis.
func wrapLabel(m Measurer, label string, f Font, width, height float64) []string {
	lines := Wrap(m, label, f, width)
	if len(lines) == 0 {
		if t := Truncate(label, int(width/5)); t != "" {
			lines = []string{t}
		}
	}
	maxLines := int(height / hbarLineHeight)
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		for len(last) > 0 && m.StringWidth(string(last)+ellipsis, f) > width {
			last = last[:len(last)-1]
		}
		lines[maxLines-1] = string(last) + ellipsis
	}
	return lines
}

func (b HorizontalBar) Draw(c Canvas, box Box) {
	l := b.Layout(c, box)
	drawRects(c, []Rect{l.Bar})
	drawTexts(c, l.LabelLines)
	drawTexts(c, []TextItem{l.Value})
}
