package document

import (
	"math"
	"unicode"

	"github.com/seenimoa/crmreport/internal/visual"
)

// ════════════════════════════════════════════════════════════════════
// Paragraph layout
// ════════════════════════════════════════════════════════════════════

// Line is one laid-out paragraph line. Item X is relative to the paragraph's
// left edge and Y is the baseline relative to the line's top.
type Line struct {
	Items  []visual.TextItem
	Width  float64
	Height float64
}

type piece struct {
	text  string
	font  visual.Font
	color visual.Color
}

type word struct {
	pieces []piece
	width  float64
}

// tokenize splits runs into words. A word may span several runs when no
// whitespace separates them, so "[HIGH]" in one color followed by text in
// another stays glued.
func tokenize(m visual.Measurer, p Paragraph) []word {
	var (
		words []word
		cur   word
		buf   []rune
		font  visual.Font
		color visual.Color
	)
	flushPiece := func() {
		if len(buf) == 0 {
			return
		}
		pc := piece{text: string(buf), font: font, color: color}
		cur.pieces = append(cur.pieces, pc)
		cur.width += m.StringWidth(pc.text, pc.font)
		buf = nil
	}
	closeWord := func() {
		flushPiece()
		if len(cur.pieces) > 0 {
			words = append(words, cur)
			cur = word{}
		}
	}
	for _, r := range p.Runs {
		flushPiece()
		font = p.Style.Font
		font.Bold = font.Bold || r.Bold
		font.Italic = font.Italic || r.Italic
		color = p.Style.Color
		if r.Color != nil {
			color = *r.Color
		}
		for _, ch := range r.Text {
			if unicode.IsSpace(ch) {
				closeWord()
				continue
			}
			buf = append(buf, ch)
		}
	}
	closeWord()
	return words
}

// LayoutParagraph wraps the paragraph into lines no wider than width minus
// the indent. A single word wider than the line is left on its own line.
func LayoutParagraph(m visual.Measurer, p Paragraph, width float64) []Line {
	words := tokenize(m, p)
	if len(words) == 0 {
		return nil
	}
	st := p.Style
	avail := math.Max(1, width-st.Indent)
	space := m.StringWidth(" ", st.Font)

	var rows [][]word
	var row []word
	rowW := 0.0
	for _, w := range words {
		next := rowW + w.width
		if len(row) > 0 {
			next += space
		}
		if len(row) > 0 && next > avail {
			rows = append(rows, row)
			row, next = nil, w.width
		}
		row = append(row, w)
		rowW = next
	}
	rows = append(rows, row)

	lead := st.leading()
	baseline := (lead + st.Font.Size*0.7) / 2
	lines := make([]Line, 0, len(rows))
	for i, r := range rows {
		natural := space * float64(len(r)-1)
		for _, w := range r {
			natural += w.width
		}
		x, gap := st.Indent, space
		switch st.Align {
		case AlignCenter:
			x += math.Max(0, (avail-natural)/2)
		case AlignJustify:
			if i < len(rows)-1 && len(r) > 1 {
				gap += math.Max(0, (avail-natural)/float64(len(r)-1))
			}
		}
		line := Line{Height: lead, Width: natural}
		for _, w := range r {
			for _, pc := range w.pieces {
				line.Items = append(line.Items, visual.TextItem{X: x, Y: baseline, Text: pc.text, Font: pc.font, Color: pc.color})
				x += m.StringWidth(pc.text, pc.font)
			}
			x += gap
		}
		lines = append(lines, line)
	}
	return lines
}

// ════════════════════════════════════════════════════════════════════
// Pagination
// ════════════════════════════════════════════════════════════════════

// Frame is the content area of a page.
type Frame struct{ X, Y, W, H float64 }

type drawFunc func(c visual.Canvas, x, y float64)

type item struct {
	height float64
	draw   drawFunc // nil for blank space
}

// unit is a run of items that must share a page.
type unit struct {
	items        []item
	keepWithNext bool
	spacer       bool
	pageBreak    bool
}

func (u unit) height() float64 {
	h := 0.0
	for _, it := range u.items {
		h += it.height
	}
	return h
}

func (u unit) join(next unit) unit {
	items := make([]item, 0, len(u.items)+len(next.items))
	items = append(append(items, u.items...), next.items...)
	return unit{items: items, keepWithNext: next.keepWithNext || next.spacer}
}

func blank(h float64) []item {
	if h <= 0 {
		return nil
	}
	return []item{{height: h}}
}

func paragraphUnits(m visual.Measurer, p Paragraph, width float64, keep bool) []unit {
	st := p.Style
	lines := LayoutParagraph(m, p, width)
	if len(lines) == 0 {
		if h := st.SpaceBefore + st.SpaceAfter; h > 0 {
			return []unit{{items: blank(h), keepWithNext: keep}}
		}
		return nil
	}
	units := make([]unit, len(lines))
	for i, ln := range lines {
		draw := func(c visual.Canvas, x, y float64) {
			if st.LeftRule > 0 {
				c.Line(x, y, x, y+ln.Height, st.LeftRule, st.LeftRuleColor)
			}
			for _, t := range ln.Items {
				c.Text(x+t.X, y+t.Y, t.Text, t.Font, t.Color)
			}
		}
		var items []item
		if i == 0 {
			items = append(items, blank(st.SpaceBefore)...)
		}
		items = append(items, item{height: ln.Height, draw: draw})
		if i == len(lines)-1 {
			items = append(items, blank(st.SpaceAfter)...)
		}
		units[i] = unit{items: items, keepWithNext: keep}
	}
	return units
}

func buildUnits(m visual.Measurer, blocks []Block, f Frame) []unit {
	var units []unit
	for _, b := range blocks {
		switch b := b.(type) {
		case Paragraph:
			units = append(units, paragraphUnits(m, b, f.W, false)...)
		case Heading:
			p := Paragraph{Runs: []Run{Text(b.Text)}, Style: b.Style}
			units = append(units, paragraphUnits(m, p, f.W, true)...)
		case Spacer:
			units = append(units, unit{items: blank(b.Height), spacer: true})
		case Divider:
			d := b
			items := blank(d.SpaceBefore)
			items = append(items, item{height: d.Width, draw: func(c visual.Canvas, x, y float64) {
				c.Line(x, y+d.Width/2, x+f.W, y+d.Width/2, d.Width, d.Color)
			}})
			items = append(items, blank(d.SpaceAfter)...)
			units = append(units, unit{items: items})
		case Flow:
			if b.Drawable == nil {
				continue
			}
			d := b.Drawable
			w, h := d.Measure()
			units = append(units, unit{items: []item{{height: h, draw: func(c visual.Canvas, x, y float64) {
				d.Draw(c, visual.Box{X: x, Y: y, W: w, H: h})
			}}}})
		case KeepTogether:
			inner := buildUnits(m, b.Blocks, f)
			if len(inner) == 0 {
				continue
			}
			joined := unit{}
			for _, u := range inner {
				joined.items = append(joined.items, u.items...)
			}
			if joined.height() <= f.H {
				joined.keepWithNext = inner[len(inner)-1].keepWithNext
				units = append(units, joined)
			} else {
				units = append(units, inner...)
			}
		case PageBreak:
			units = append(units, unit{pageBreak: true})
		}
	}
	return units
}

// mergeKept joins every keep-with-next unit to its successor while the
// pair still fits on a page.
func mergeKept(units []unit, pageH float64) []unit {
	out := make([]unit, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		for u.keepWithNext && i+1 < len(units) && !units[i+1].pageBreak {
			next := units[i+1]
			if u.height()+next.height() > pageH {
				break
			}
			u = u.join(next)
			i++
		}
		out = append(out, u)
	}
	return out
}

// Placement is an item positioned on a page.
type Placement struct {
	Page   int // zero-based
	X, Y   float64
	Height float64
	draw   drawFunc
}

// Draw paints the placement onto c.
func (p Placement) Draw(c visual.Canvas) {
	if p.draw != nil {
		p.draw(c, p.X, p.Y)
	}
}

// Layout is a paginated document.
type Layout struct {
	Pages      int
	Placements []Placement
}

// Paginate flows blocks through successive frames. A unit that does not fit
// the space left moves to a fresh page; a unit taller than a whole frame is
// placed at the top of one and overflows. Spacers at the top of a page are
// dropped.
func Paginate(m visual.Measurer, blocks []Block, f Frame) Layout {
	units := mergeKept(buildUnits(m, blocks, f), f.H)
	var out Layout
	page, y := 0, 0.0
	for _, u := range units {
		if u.pageBreak {
			if y > 0 {
				page, y = page+1, 0
			}
			continue
		}
		h := u.height()
		if u.spacer && y == 0 && page > 0 {
			continue
		}
		if y > 0 && y+h > f.H {
			page, y = page+1, 0
			if u.spacer {
				continue
			}
		}
		for _, it := range u.items {
			out.Placements = append(out.Placements, Placement{Page: page, X: f.X, Y: f.Y + y, Height: it.height, draw: it.draw})
			y += it.height
		}
	}
	out.Pages = page + 1
	return out
}
