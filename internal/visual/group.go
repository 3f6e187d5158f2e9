package visual

import "math"

// BorderedGroup stacks drawables vertically inside one border.
type BorderedGroup struct {
	Items     []Drawable
	Width     float64
	Padding   float64
	Spacing   float64
	LineWidth float64 // defaults to 1
}

// Measure reports the width and the height of all children plus the gaps
// between them and the padding above and below.
func (g BorderedGroup) Measure() (float64, float64) {
	h := 2 * g.Padding
	for i, it := range g.Items {
		_, ih := it.Measure()
		h += ih
		if i > 0 {
			h += g.Spacing
		}
	}
	return g.Width, h
}

// Layout returns the box of every child.
func (g BorderedGroup) Layout(box Box) []Box {
	boxes := make([]Box, len(g.Items))
	y := box.Y + g.Padding
	for i, it := range g.Items {
		w, h := it.Measure()
		boxes[i] = Box{X: box.X + g.Padding, Y: y, W: w, H: h}
		y += h + g.Spacing
	}
	return boxes
}

func (g BorderedGroup) Draw(c Canvas, box Box) {
	_, h := g.Measure()
	lw := g.LineWidth
	if lw <= 0 {
		lw = 1
	}
	c.StrokeRect(box.X, box.Y, g.Width, h, lw, Border)
	for i, b := range g.Layout(box) {
		g.Items[i].Draw(c, b)
	}
}

// Row lays drawables side by side, bottom-aligned, centered in the box.
type Row struct {
	Items []Drawable
}

func (r Row) Measure() (float64, float64) {
	w, h := 0.0, 0.0
	for _, it := range r.Items {
		iw, ih := it.Measure()
		w += iw
		h = math.Max(h, ih)
	}
	return w, h
}

// Layout returns the box of every child.
func (r Row) Layout(box Box) []Box {
	w, h := r.Measure()
	x := box.X + math.Max(0, (box.W-w)/2)
	boxes := make([]Box, len(r.Items))
	for i, it := range r.Items {
		iw, ih := it.Measure()
		boxes[i] = Box{X: x, Y: box.Y + h - ih, W: iw, H: ih}
		x += iw
	}
	return boxes
}

func (r Row) Draw(c Canvas, box Box) {
	for i, b := range r.Layout(box) {
		r.Items[i].Draw(c, b)
	}
}
