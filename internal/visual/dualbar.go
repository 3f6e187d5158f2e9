package visual

import (
	"fmt"
	"math"

	"github.com/seenimoa/crmreport/pkg/utils"
)

const (
	dualBarStartX   = 110.0
	dualReserved    = 180.0 // width kept free of the tracks by default
	dualTrackHeight = 8.0
	dualOrigTop     = 18.0
	dualIncTop      = 32.0
	dualTextGap     = 8.0
	dualLabelChars  = 35
)

// DualComparisonBar contrasts a category's original volume with the volume
// after a percentage change. Both bars share one scale, so a +50% change
// draws the second bar 1.5 times as long as the first.
type DualComparisonBar struct {
	Label           string
	Original        float64
	PercentIncrease float64
	MaxOriginal     float64 // largest original value across the chart set
	Width           float64
	Height          float64
}

// DualBarLayout is the computed geometry of a DualComparisonBar.
type DualBarLayout struct {
	NewValue float64
	Scale    float64
	Label    TextItem
	Captions [2]TextItem
	Tracks   [2]Rect
	Bars     [2]Rect
	Values   [2]TextItem
}

func (d DualComparisonBar) Measure() (float64, float64) { return d.Width, d.Height }

// NewValue is the value after applying the percentage change.
func (d DualComparisonBar) NewValue() float64 {
	return d.Original * (1 + d.PercentIncrease/100)
}

// IncreaseColor encodes the sign of the change.
func (d DualComparisonBar) IncreaseColor() Color {
	switch {
	case d.PercentIncrease > 0:
		return Green
	case d.PercentIncrease < 0:
		return Red
	default:
		return TextMuted
	}
}

// Layout computes both tracks. The track width starts at box.W-180 and is
// narrowed when the longer value text would not fit after it.
func (d DualComparisonBar) Layout(m Measurer, box Box) DualBarLayout {
	newV := d.NewValue()
	scale := math.Max(d.MaxOriginal, math.Abs(newV))

	textFont := regular(7)
	origText := utils.FormatInt(int64(d.Original)) + " requests"
	newText := fmt.Sprintf("%s requests (%+.1f%%)", utils.FormatInt(int64(newV)), d.PercentIncrease)
	textW := math.Max(m.StringWidth(origText, textFont), m.StringWidth(newText, textFont))

	trackW := box.W - dualReserved
	if limit := box.W - dualBarStartX - dualTextGap - textW; trackW > limit {
		trackW = limit
	}
	trackW = math.Max(0, trackW)

	barWidth := func(v float64) float64 {
		if scale <= 0 {
			return 0
		}
		return math.Min(math.Abs(v)/scale*trackW, trackW)
	}

	x0 := box.X + dualBarStartX
	tops := [2]float64{box.Y + dualOrigTop, box.Y + dualIncTop}
	widths := [2]float64{barWidth(d.Original), barWidth(newV)}
	colors := [2]Color{Blue, d.IncreaseColor()}
	captions := [2]string{"Original:", "After Increase:"}
	values := [2]string{origText, newText}

	out := DualBarLayout{NewValue: newV, Scale: scale}
	labelFont := regular(9)
	out.Label = TextItem{
		X: box.X, Y: box.Y + 10,
		Text:  Fit(m, Truncate(d.Label, dualLabelChars), labelFont, box.W),
		Font:  labelFont,
		Color: TextDark,
	}
	for i := range tops {
		baseline := tops[i] + dualTrackHeight - 1
		out.Captions[i] = TextItem{X: box.X, Y: baseline, Text: captions[i], Font: textFont, Color: TextMuted}
		out.Tracks[i] = Rect{X: x0, Y: tops[i], W: trackW, H: dualTrackHeight, Color: Track}
		out.Bars[i] = Rect{X: x0, Y: tops[i], W: widths[i], H: dualTrackHeight, Color: colors[i]}
		out.Values[i] = TextItem{X: x0 + trackW + dualTextGap, Y: baseline, Text: values[i], Font: textFont, Color: TextValue}
	}
	return out
}

func (d DualComparisonBar) Draw(c Canvas, box Box) {
	l := d.Layout(c, box)
	drawTexts(c, []TextItem{l.Label})
	drawTexts(c, l.Captions[:])
	drawRects(c, l.Tracks[:])
	drawRects(c, l.Bars[:])
	drawTexts(c, l.Values[:])
	for _, t := range l.Tracks {
		c.StrokeRect(t.X, t.Y, t.W, t.H, 0.5, Border)
	}
}
