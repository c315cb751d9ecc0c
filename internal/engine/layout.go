package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Rect is an axis-aligned box in PDF user space (origin bottom-left).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{min(r.X0, o.X0), min(r.Y0, o.Y0), max(r.X1, o.X1), max(r.Y1, o.Y1)}
}

// String formats the box the way the XML output expects.
func (r Rect) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", r.X0, r.Y0, r.X1, r.Y1)
}

func (r Rect) hoverlap(o Rect) float64 {
	return max(0, min(r.X1, o.X1)-max(r.X0, o.X0))
}

func (r Rect) voverlap(o Rect) float64 {
	return max(0, min(r.Y1, o.Y1)-max(r.Y0, o.Y0))
}

func (r Rect) hdistance(o Rect) float64 {
	if r.hoverlap(o) > 0 {
		return 0
	}
	return min(math.Abs(r.X0-o.X1), math.Abs(r.X1-o.X0))
}

func (r Rect) vdistance(o Rect) float64 {
	if r.voverlap(o) > 0 {
		return 0
	}
	return min(math.Abs(r.Y0-o.Y1), math.Abs(r.Y1-o.Y0))
}

// Params controls layout analysis. A nil *Params disables it.
type Params struct {
	LineOverlap    float64
	CharMargin     float64
	WordMargin     float64
	LineMargin     float64
	BoxesFlow      *float64 // nil orders boxes top-down, left-right
	DetectVertical bool
	AllTexts       bool
}

// DefaultParams returns the usual layout parameters.
func DefaultParams() *Params {
	flow := 0.5
	return &Params{
		LineOverlap: 0.5,
		CharMargin:  2.0,
		WordMargin:  0.1,
		LineMargin:  0.5,
		BoxesFlow:   &flow,
	}
}

// Item is anything placed on a page.
type Item interface {
	Box() Rect
}

// Char is one rendered glyph.
type Char struct {
	Text    string
	Font    string
	Size    float64
	BBox    Rect
	Upright bool
}

// Image is a placed image XObject. Stream is nil for inline images.
type Image struct {
	Name   string
	BBox   Rect
	Stream *Object
}

// Figure is a form XObject with its own content.
type Figure struct {
	Name  string
	BBox  Rect
	Items []Item
	Boxes []*TextBox // filled when AllTexts is set
}

// Word is a run of characters not separated by whitespace.
type Word struct {
	Text string
	BBox Rect
}

// Span is an element of a text line: a glyph, or a synthesized space or
// newline when Char is nil.
type Span struct {
	Char *Char
	Text string
}

// TextLine is a run of characters on the same baseline (or column when
// Vertical is set).
type TextLine struct {
	BBox     Rect
	Vertical bool
	Spans    []Span
}

// TextBox groups neighbouring lines.
type TextBox struct {
	ID       int
	BBox     Rect
	Vertical bool
	Lines    []*TextLine
}

// LayoutPage is the result of interpreting and analyzing one page.
type LayoutPage struct {
	ID     int
	BBox   Rect
	Rotate int
	Boxes  []*TextBox
	Items  []Item // figures, images, and chars outside boxes
	Marks  []Mark
}

func (c *Char) Box() Rect     { return c.BBox }
func (i *Image) Box() Rect    { return i.BBox }
func (f *Figure) Box() Rect   { return f.BBox }
func (l *TextLine) Box() Rect { return l.BBox }
func (b *TextBox) Box() Rect  { return b.BBox }

// Text returns the line text including synthesized spaces and the
// trailing newline.
func (l *TextLine) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Text concatenates the text of all lines.
func (b *TextBox) Text() string {
	var sb strings.Builder
	for _, l := range b.Lines {
		sb.WriteString(l.Text())
	}
	return sb.String()
}

// analyze groups the chars of a page into lines and boxes. Non-char
// items are returned unchanged.
func analyze(items []Item, p *Params) ([]*TextBox, []Item) {
	var chars []*Char
	var rest []Item
	for _, it := range items {
		switch v := it.(type) {
		case *Char:
			chars = append(chars, v)
		case *Figure:
			if p.AllTexts {
				v.Boxes, v.Items = analyze(v.Items, p)
			}
			rest = append(rest, v)
		default:
			rest = append(rest, v)
		}
	}
	lines := groupChars(chars, p)
	boxes := groupLines(lines, p)
	orderBoxes(boxes, p)
	return boxes, rest
}

// groupChars joins consecutive chars into lines when they overlap
// vertically (or horizontally for vertical writing) and are close enough.
func groupChars(chars []*Char, p *Params) []*TextLine {
	if len(chars) == 0 {
		return nil
	}
	var lines []*TextLine
	var line *TextLine
	for i := 1; i < len(chars); i++ {
		c0, c1 := chars[i-1], chars[i]
		b0, b1 := c0.BBox, c1.BBox
		halign := c0.Upright == c1.Upright &&
			b0.voverlap(b1) > 0 &&
			min(b0.Height(), b1.Height())*p.LineOverlap < b0.voverlap(b1) &&
			b0.hdistance(b1) < max(b0.Width(), b1.Width())*p.CharMargin
		valign := p.DetectVertical && c0.Upright == c1.Upright &&
			b0.hoverlap(b1) > 0 &&
			min(b0.Width(), b1.Width())*p.LineOverlap < b0.hoverlap(b1) &&
			b0.vdistance(b1) < max(b0.Height(), b1.Height())*p.CharMargin

		switch {
		case line != nil && ((halign && !line.Vertical) || (valign && line.Vertical)):
			line.add(c1, p.WordMargin)
		case line != nil:
			lines = append(lines, line.finish())
			line = nil
		case valign && !halign:
			line = newLine(c0, true)
			line.add(c1, p.WordMargin)
		case halign && !valign:
			line = newLine(c0, false)
			line.add(c1, p.WordMargin)
		default:
			lines = append(lines, newLine(c0, false).finish())
		}
	}
	if line == nil {
		line = newLine(chars[len(chars)-1], false)
	}
	return append(lines, line.finish())
}

func newLine(c *Char, vertical bool) *TextLine {
	return &TextLine{BBox: c.BBox, Vertical: vertical, Spans: []Span{{Char: c, Text: c.Text}}}
}

// add appends c, inserting a space when the gap to the previous glyph
// exceeds the word margin.
func (l *TextLine) add(c *Char, margin float64) {
	m := margin * max(c.BBox.Width(), c.BBox.Height())
	if l.Vertical {
		if c.BBox.Y1 < l.BBox.Y0-m {
			l.Spans = append(l.Spans, Span{Text: " "})
		}
	} else if c.BBox.X0 > l.BBox.X1+m {
		l.Spans = append(l.Spans, Span{Text: " "})
	}
	l.Spans = append(l.Spans, Span{Char: c, Text: c.Text})
	l.BBox = l.BBox.Union(c.BBox)
}

func (l *TextLine) finish() *TextLine {
	l.Spans = append(l.Spans, Span{Text: "\n"})
	return l
}

// neighbours reports whether b belongs in the same box as a: same
// orientation, similar thickness, within the line margin and aligned on
// one edge or the centre.
func neighbours(a, b *TextLine, margin float64) bool {
	if a.Vertical != b.Vertical {
		return false
	}
	ra, rb := a.BBox, b.BBox
	if a.Vertical {
		d := margin * ra.Width()
		reach := Rect{ra.X0 - d, ra.Y0, ra.X1 + d, ra.Y1}
		return intersects(reach, rb) &&
			math.Abs(rb.Width()-ra.Width()) < d &&
			(math.Abs(rb.Y0-ra.Y0) < d || math.Abs(rb.Y1-ra.Y1) < d ||
				math.Abs((rb.Y0+rb.Y1)/2-(ra.Y0+ra.Y1)/2) < d)
	}
	d := margin * ra.Height()
	reach := Rect{ra.X0, ra.Y0 - d, ra.X1, ra.Y1 + d}
	return intersects(reach, rb) &&
		math.Abs(rb.Height()-ra.Height()) < d &&
		(math.Abs(rb.X0-ra.X0) < d || math.Abs(rb.X1-ra.X1) < d ||
			math.Abs((rb.X0+rb.X1)/2-(ra.X0+ra.X1)/2) < d)
}

func intersects(a, b Rect) bool {
	return a.X0 <= b.X1 && b.X0 <= a.X1 && a.Y0 <= b.Y1 && b.Y0 <= a.Y1
}

// groupLines merges neighbouring lines into boxes (transitively). Boxes
// come out in order of their first line; lines within a box top-down.
func groupLines(lines []*TextLine, p *Params) []*TextBox {
	parent := make([]int, len(lines))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, a := range lines {
		for j := i + 1; j < len(lines); j++ {
			if neighbours(a, lines[j], p.LineMargin) || neighbours(lines[j], a, p.LineMargin) {
				if ri, rj := find(i), find(j); ri != rj {
					parent[rj] = ri
				}
			}
		}
	}
	byRoot := make(map[int]*TextBox)
	var boxes []*TextBox
	for i, l := range lines {
		r := find(i)
		b, ok := byRoot[r]
		if !ok {
			b = &TextBox{BBox: l.BBox, Vertical: l.Vertical}
			byRoot[r] = b
			boxes = append(boxes, b)
		}
		b.Lines = append(b.Lines, l)
		b.BBox = b.BBox.Union(l.BBox)
	}
	for _, b := range boxes {
		if b.Vertical {
			slices.SortStableFunc(b.Lines, func(x, y *TextLine) int { return cmpFloat(-x.BBox.X1, -y.BBox.X1) })
		} else {
			slices.SortStableFunc(b.Lines, func(x, y *TextLine) int { return cmpFloat(-x.BBox.Y1, -y.BBox.Y1) })
		}
	}
	return boxes
}

// orderBoxes sorts boxes into reading order and numbers them. With a
// boxes flow f the key is (1-f)*x0 - (1+f)*(y0+y1); without one, boxes
// go top-down then left-right.
func orderBoxes(boxes []*TextBox, p *Params) {
	if p.BoxesFlow != nil {
		f := *p.BoxesFlow
		key := func(b *TextBox) float64 { return (1-f)*b.BBox.X0 - (1+f)*(b.BBox.Y0+b.BBox.Y1) }
		slices.SortStableFunc(boxes, func(a, b *TextBox) int { return cmpFloat(key(a), key(b)) })
	} else {
		slices.SortStableFunc(boxes, func(a, b *TextBox) int {
			if a.Vertical != b.Vertical {
				if a.Vertical {
					return -1
				}
				return 1
			}
			if a.Vertical {
				if c := cmpFloat(-a.BBox.X1, -b.BBox.X1); c != 0 {
					return c
				}
				return cmpFloat(-a.BBox.Y0, -b.BBox.Y0)
			}
			if c := cmpFloat(-a.BBox.Y0, -b.BBox.Y0); c != 0 {
				return c
			}
			return cmpFloat(a.BBox.X0, b.BBox.X0)
		})
	}
	for i, b := range boxes {
		b.ID = i
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
