package document

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/seenimoa/crmreport/internal/visual"
)

// TextRenderer writes a plain-text outline of a document. Drawables are laid
// out with approximate metrics and their text is placed on a character grid,
// so tables keep their columns.
type TextRenderer struct {
	Width int // columns, 100 when zero
}

func (r TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (r TextRenderer) Render(doc *Document) ([]byte, error) {
	width := r.Width
	if width <= 0 {
		width = 100
	}
	var b strings.Builder
	if doc.Title != "" && !opensWithTitle(doc) {
		b.WriteString(doc.Title + "\n" + strings.Repeat("=", utf8.RuneCountInString(doc.Title)) + "\n\n")
	}
	writeBlocks(&b, doc.Blocks, width)
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

// opensWithTitle reports whether the first block already prints the title.
func opensWithTitle(doc *Document) bool {
	if len(doc.Blocks) == 0 {
		return false
	}
	switch b := doc.Blocks[0].(type) {
	case Paragraph:
		return b.PlainText() == doc.Title
	case Heading:
		return b.Text == doc.Title
	}
	return false
}

func writeBlocks(b *strings.Builder, blocks []Block, width int) {
	for _, blk := range blocks {
		switch blk := blk.(type) {
		case Heading:
			b.WriteString("\n" + blk.Text + "\n")
			b.WriteString(strings.Repeat(headingRule(blk.Level), utf8.RuneCountInString(blk.Text)) + "\n")
		case Paragraph:
			prefix := ""
			if blk.Style.LeftRule > 0 {
				prefix = "| "
			}
			for _, line := range wrapColumns(blk.PlainText(), width-len(prefix)) {
				b.WriteString(prefix + line + "\n")
			}
			if blk.Style.SpaceAfter >= 6 {
				b.WriteString("\n")
			}
		case Divider:
			b.WriteString(strings.Repeat("-", width) + "\n")
		case Flow:
			if blk.Drawable != nil {
				for _, line := range gridText(blk.Drawable) {
					b.WriteString(line + "\n")
				}
				b.WriteString("\n")
			}
		case KeepTogether:
			writeBlocks(b, blk.Blocks, width)
		case PageBreak:
			b.WriteString("\n")
		}
	}
}

func headingRule(level int) string {
	if level <= 1 {
		return "="
	}
	return "-"
}

// wrapColumns word-wraps s to at most width runes per line.
func wrapColumns(s string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range strings.Fields(s) {
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// ── character grid ──

const gridColumn = 5.0 // points per character column

type gridCanvas struct {
	visual.ApproxMeasurer
	texts []visual.TextItem
}

func (*gridCanvas) FillRect(_, _, _, _ float64, _ visual.Color)      {}
func (*gridCanvas) StrokeRect(_, _, _, _, _ float64, _ visual.Color) {}
func (*gridCanvas) Line(_, _, _, _, _ float64, _ visual.Color)       {}

func (g *gridCanvas) Text(x, y float64, s string, f visual.Font, c visual.Color) {
	g.texts = append(g.texts, visual.TextItem{X: x, Y: y, Text: s, Font: f, Color: c})
}

// gridText draws d with approximate metrics and returns its text, one line
// per baseline, each item starting at its nearest column or just after the
// previous item.
func gridText(d visual.Drawable) []string {
	g := &gridCanvas{}
	w, h := d.Measure()
	d.Draw(g, visual.Box{W: w, H: h})
	sort.SliceStable(g.texts, func(i, j int) bool {
		if math.Abs(g.texts[i].Y-g.texts[j].Y) > 1 {
			return g.texts[i].Y < g.texts[j].Y
		}
		return g.texts[i].X < g.texts[j].X
	})

	var lines []string
	var cur []rune
	lastY := math.Inf(-1)
	for _, t := range g.texts {
		if t.Y-lastY > 1 {
			if cur != nil {
				lines = append(lines, strings.TrimRight(string(cur), " "))
			}
			cur = []rune{}
			lastY = t.Y
		}
		col := int(math.Round(t.X / gridColumn))
		if len(cur) > 0 && col <= len(cur) {
			col = len(cur) + 1
		}
		for len(cur) < col {
			cur = append(cur, ' ')
		}
		cur = append(cur, []rune(t.Text)...)
	}
	if cur != nil {
		lines = append(lines, strings.TrimRight(string(cur), " "))
	}
	return lines
}
