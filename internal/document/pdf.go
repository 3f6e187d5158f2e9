package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/seenimoa/crmreport/internal/visual"
)

// ════════════════════════════════════════════════════════════════════
// PDF renderer: go-pdf/fpdf, points, core fonts
// ════════════════════════════════════════════════════════════════════

// PDFRenderer lays a document out on fixed-size pages.
type PDFRenderer struct {
	PageSize    string  // fpdf size name, "Letter" when empty
	Margin      float64 // on all four sides, 72 when zero
	Compress    bool
	PageNumbers bool
	Creator     string
	CreatedAt   time.Time // fixes the document dates when set
}

// NewPDFRenderer returns a Letter renderer with one-inch margins.
func NewPDFRenderer(compress bool) *PDFRenderer {
	return &PDFRenderer{PageSize: "Letter", Margin: 72, Compress: compress, PageNumbers: true, Creator: "crmreport"}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render paginates the blocks and returns the finished PDF. Errors from fpdf
// are returned as is.
func (r *PDFRenderer) Render(doc *Document) ([]byte, error) {
	size, margin := r.PageSize, r.Margin
	if size == "" {
		size = "Letter"
	}
	if margin <= 0 {
		margin = 72
	}

	pdf := fpdf.New("P", "pt", size, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(r.Compress)
	pdf.SetTitle(doc.Title, true)
	if doc.Author != "" {
		pdf.SetAuthor(doc.Author, true)
	}
	if r.Creator != "" {
		pdf.SetCreator(r.Creator, true)
	}
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
		pdf.SetModificationDate(r.CreatedAt)
	}

	c := newPDFCanvas(pdf)
	w, h := pdf.GetPageSize()
	frame := Frame{X: margin, Y: margin, W: w - 2*margin, H: h - 2*margin}
	layout := Paginate(c, doc.Blocks, frame)

	page := -1
	for _, p := range layout.Placements {
		for page < p.Page {
			pdf.AddPage()
			page++
		}
		p.Draw(c)
	}
	for page < layout.Pages-1 {
		pdf.AddPage()
		page++
	}
	if r.PageNumbers {
		addPageNumbers(pdf, c, margin)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addPageNumbers writes "Page i of n" centered in every bottom margin.
func addPageNumbers(pdf *fpdf.Fpdf, c *pdfCanvas, margin float64) {
	total := pdf.PageCount()
	font := visual.Font{Family: visual.Times, Size: 8}
	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		w, h := pdf.GetPageSize()
		s := fmt.Sprintf("Page %d of %d", i, total)
		sw := c.StringWidth(s, font)
		c.Text((w-sw)/2, h-margin/2, s, font, visual.TextMuted)
	}
}

// ── fpdf canvas ──

// pdfCanvas adapts fpdf to visual.Canvas. Strings pass through the cp1252
// translator the core fonts need.
type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFCanvas(pdf *fpdf.Fpdf) *pdfCanvas {
	return &pdfCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *pdfCanvas) setFont(f visual.Font) {
	family := f.Family
	if family == "" {
		family = visual.Times
	}
	c.pdf.SetFont(family, f.Style(), f.Size)
}

func (c *pdfCanvas) StringWidth(s string, f visual.Font) float64 {
	c.setFont(f)
	return c.pdf.GetStringWidth(c.tr(s))
}

func (c *pdfCanvas) FillRect(x, y, w, h float64, col visual.Color) {
	c.pdf.SetFillColor(int(col.R), int(col.G), int(col.B))
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *pdfCanvas) StrokeRect(x, y, w, h, lineWidth float64, col visual.Color) {
	c.pdf.SetDrawColor(int(col.R), int(col.G), int(col.B))
	c.pdf.SetLineWidth(lineWidth)
	c.pdf.Rect(x, y, w, h, "D")
}

func (c *pdfCanvas) Line(x1, y1, x2, y2, lineWidth float64, col visual.Color) {
	c.pdf.SetDrawColor(int(col.R), int(col.G), int(col.B))
	c.pdf.SetLineWidth(lineWidth)
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *pdfCanvas) Text(x, y float64, s string, f visual.Font, col visual.Color) {
	c.setFont(f)
	c.pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
	c.pdf.Text(x, y, c.tr(s))
}
