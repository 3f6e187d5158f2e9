// Package document is the ordered block model a report is assembled into,
// plus the renderers that serialize it.
//
// A Document is a flat list of blocks. Paragraph text may break across
// pages; Flow drawables and KeepTogether groups move to the next page whole
// when they do not fit the space left. Headings stay with the block after
// them.
package document

import "github.com/seenimoa/crmreport/internal/visual"

// ════════════════════════════════════════════════════════════════════
// Document model
// ════════════════════════════════════════════════════════════════════

// Document is a titled sequence of blocks.
type Document struct {
	Title  string
	Author string
	Blocks []Block
}

// Add appends blocks and returns the document for chaining.
func (d *Document) Add(blocks ...Block) *Document {
	d.Blocks = append(d.Blocks, blocks...)
	return d
}

// Block is one element of a document.
type Block interface{ isBlock() }

// Align is a paragraph's horizontal alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignJustify
)

// ParagraphStyle controls the typography of a paragraph.
type ParagraphStyle struct {
	Font        visual.Font
	Color       visual.Color
	Leading     float64 // line height; 1.2 × font size when zero
	SpaceBefore float64
	SpaceAfter  float64
	Indent      float64
	Align       Align
	// LeftRule draws a vertical bar along the paragraph's left edge.
	LeftRule      float64
	LeftRuleColor visual.Color
}

func (s ParagraphStyle) leading() float64 {
	if s.Leading > 0 {
		return s.Leading
	}
	return s.Font.Size * 1.2
}

// Run is a span of text with optional overrides of the paragraph style.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Color  *visual.Color
}

// Text returns an unstyled run.
func Text(s string) Run { return Run{Text: s} }

// Bold returns a bold run.
func Bold(s string) Run { return Run{Text: s, Bold: true} }

// Italic returns an italic run.
func Italic(s string) Run { return Run{Text: s, Italic: true} }

// Colored returns a run in color c.
func Colored(s string, c visual.Color, bold bool) Run {
	return Run{Text: s, Bold: bold, Color: &c}
}

// Paragraph is wrapped text made of styled runs.
type Paragraph struct {
	Runs  []Run
	Style ParagraphStyle
}

// NewParagraph builds a single-run paragraph.
func NewParagraph(text string, style ParagraphStyle) Paragraph {
	return Paragraph{Runs: []Run{Text(text)}, Style: style}
}

// PlainText joins the runs' text.
func (p Paragraph) PlainText() string {
	s := ""
	for _, r := range p.Runs {
		s += r.Text
	}
	return s
}

// Heading is a paragraph that is never separated from the block after it.
type Heading struct {
	Text  string
	Level int
	Style ParagraphStyle
}

// Spacer is vertical blank space.
type Spacer struct{ Height float64 }

// Divider is a horizontal rule across the frame.
type Divider struct {
	Width float64 // line thickness
	Color visual.Color
	SpaceBefore,
	SpaceAfter float64
}

// Flow places a drawable at the frame's left edge.
type Flow struct{ Drawable visual.Drawable }

// KeepTogether keeps its blocks on one page when they fit on one.
type KeepTogether struct{ Blocks []Block }

// PageBreak starts a new page.
type PageBreak struct{}

func (Paragraph) isBlock()    {}
func (Heading) isBlock()      {}
func (Spacer) isBlock()       {}
func (Divider) isBlock()      {}
func (Flow) isBlock()         {}
func (KeepTogether) isBlock() {}
func (PageBreak) isBlock()    {}

// Renderer serializes a finished document.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	ContentType() string
}
