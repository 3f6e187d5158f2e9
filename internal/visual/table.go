package visual

import "math"

// Align is a cell's horizontal alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TableStyle controls fonts, paddings and rules of a TableBlock.
type TableStyle struct {
	HeaderFont    Font
	HeaderFill    Color
	HeaderText    Color
	HeaderPadding float64
	BodyFont      Font
	BodyText      Color
	BodyPadding   float64
	GridWidth     float64
	GridColor     Color
	HeaderRule    float64 // line under the header row
	HeaderRuleCol Color
	Zebra         []Color // alternating body fills; empty for none
}

// StandardTableStyle is the light style used by most data tables.
func StandardTableStyle() TableStyle {
	return TableStyle{
		HeaderFont:    bold(10),
		HeaderFill:    Hex("#f3f4f6"),
		HeaderText:    TextDark,
		HeaderPadding: 12,
		BodyFont:      regular(10),
		BodyText:      TextDark,
		BodyPadding:   8,
		GridWidth:     0.5,
		GridColor:     Track,
		HeaderRule:    1,
		HeaderRuleCol: Border,
	}
}

// RankedTableStyle is the dark-header zebra style of ranking tables.
func RankedTableStyle() TableStyle {
	return TableStyle{
		HeaderFont:    bold(12),
		HeaderFill:    HeaderFill,
		HeaderText:    White,
		HeaderPadding: 14,
		BodyFont:      regular(11),
		BodyText:      TextDark,
		BodyPadding:   10,
		GridWidth:     0.5,
		GridColor:     Track,
		HeaderRule:    2,
		HeaderRuleCol: TextDark,
		Zebra:         []Color{White, ZebraFill},
	}
}

// TableBlock is a grid of pre-formatted cells. Widths are fractions of
// Width; missing fractions share the remainder equally.
type TableBlock struct {
	Headers []string
	Rows    [][]string
	Widths  []float64
	Aligns  []Align // missing entries align left
	Width   float64
	Style   TableStyle
}

func rowHeight(f Font, pad float64) float64 { return f.Size*1.2 + 2*pad }

func (t TableBlock) headerHeight() float64 { return rowHeight(t.Style.HeaderFont, t.Style.HeaderPadding) }
func (t TableBlock) bodyHeight() float64   { return rowHeight(t.Style.BodyFont, t.Style.BodyPadding) }

func (t TableBlock) Measure() (float64, float64) {
	return t.Width, t.headerHeight() + float64(len(t.Rows))*t.bodyHeight()
}

// ColumnWidths resolves the absolute width of every column.
func (t TableBlock) ColumnWidths() []float64 {
	n := len(t.Headers)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	used, given := 0.0, 0
	for i := 0; i < n && i < len(t.Widths); i++ {
		out[i] = t.Widths[i] * t.Width
		used += out[i]
		given++
	}
	if rest := n - given; rest > 0 {
		share := math.Max(0, t.Width-used) / float64(rest)
		for i := given; i < n; i++ {
			out[i] = share
		}
	}
	return out
}

func (t TableBlock) align(col int) Align {
	if col < len(t.Aligns) {
		return t.Aligns[col]
	}
	return AlignLeft
}

// Cells lays out every visible cell string, header row first.
func (t TableBlock) Cells(m Measurer, box Box) []TextItem {
	widths := t.ColumnWidths()
	var out []TextItem
	place := func(y, h float64, cells []string, f Font, c Color) {
		x := box.X
		for i, w := range widths {
			if i < len(cells) && cells[i] != "" {
				inner := math.Max(0, w-2*cellInset)
				s := Fit(m, cells[i], f, inner)
				sw := m.StringWidth(s, f)
				tx := x + cellInset
				switch t.align(i) {
				case AlignCenter:
					tx = x + (w-sw)/2
				case AlignRight:
					tx = x + w - cellInset - sw
				}
				out = append(out, TextItem{X: tx, Y: y + h/2 + f.Size*0.35, Text: s, Font: f, Color: c})
			}
			x += w
		}
	}
	st := t.Style
	hh, bh := t.headerHeight(), t.bodyHeight()
	place(box.Y, hh, t.Headers, st.HeaderFont, st.HeaderText)
	for r, row := range t.Rows {
		place(box.Y+hh+float64(r)*bh, bh, row, st.BodyFont, st.BodyText)
	}
	return out
}

const cellInset = 6.0

func (t TableBlock) Draw(c Canvas, box Box) {
	st := t.Style
	widths := t.ColumnWidths()
	hh, bh := t.headerHeight(), t.bodyHeight()
	_, total := t.Measure()

	c.FillRect(box.X, box.Y, t.Width, hh, st.HeaderFill)
	if len(st.Zebra) > 0 {
		for r := range t.Rows {
			c.FillRect(box.X, box.Y+hh+float64(r)*bh, t.Width, bh, st.Zebra[r%len(st.Zebra)])
		}
	}

	// grid
	for r := 0; r <= len(t.Rows); r++ {
		y := box.Y + hh + float64(r)*bh
		c.Line(box.X, y, box.X+t.Width, y, st.GridWidth, st.GridColor)
	}
	c.Line(box.X, box.Y, box.X+t.Width, box.Y, st.GridWidth, st.GridColor)
	x := box.X
	for _, w := range widths {
		c.Line(x, box.Y, x, box.Y+total, st.GridWidth, st.GridColor)
		x += w
	}
	c.Line(x, box.Y, x, box.Y+total, st.GridWidth, st.GridColor)
	if st.HeaderRule > 0 {
		c.Line(box.X, box.Y+hh, box.X+t.Width, box.Y+hh, st.HeaderRule, st.HeaderRuleCol)
	}

	drawTexts(c, t.Cells(c, box))
}
