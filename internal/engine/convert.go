package engine

import (
	"bufio"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// converter renders analyzed pages to an output format.
type converter interface {
	begin() error
	page(p *LayoutPage) error
	end() error
	setDocument(doc *Document)
}

// base carries what every converter needs.
type base struct {
	w      *bufio.Writer
	doc    *Document // document of the page being rendered
	images *ImageWriter
	codec  string
}

func (b *base) setDocument(doc *Document) { b.doc = doc }

func (b *base) printf(format string, args ...any) {
	fmt.Fprintf(b.w, format, args...)
}

// export saves img when an image directory is configured.
func (b *base) export(img *Image) string {
	if b.images == nil || b.doc == nil {
		return ""
	}
	name, err := b.images.Export(b.doc, img)
	if err != nil {
		return ""
	}
	return name
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func esc(s string) string { return xmlEscaper.Replace(s) }

var controlChars = regexp.MustCompile("[\x00-\x08\x0b-\x0c\x0e-\x1f]")

// textConverter writes box text, a blank line after each box and a form
// feed after each page.
type textConverter struct {
	base
}

func (c *textConverter) begin() error { return nil }

func (c *textConverter) page(p *LayoutPage) error {
	for _, b := range p.Boxes {
		c.w.WriteString(b.Text())
		c.w.WriteString("\n")
	}
	c.items(p.Items)
	c.w.WriteString("\f")
	return nil
}

func (c *textConverter) items(items []Item) {
	for _, it := range items {
		switch v := it.(type) {
		case *Char:
			c.w.WriteString(v.Text)
		case *Figure:
			for _, b := range v.Boxes {
				c.w.WriteString(b.Text())
				c.w.WriteString("\n")
			}
			c.items(v.Items)
		case *Image:
			c.export(v)
		}
	}
}

func (c *textConverter) end() error { return c.w.Flush() }

// xmlConverter writes the pages/page/textbox/textline/text tree. Each
// word is followed by a word element carrying its text and box.
type xmlConverter struct {
	base
	stripControl bool
	wordMargin   float64
}

func (c *xmlConverter) begin() error {
	c.printf("<?xml version=\"1.0\" encoding=\"%s\" ?>\n<pages>\n", c.codec)
	return nil
}

func (c *xmlConverter) text(s string) {
	if c.stripControl {
		s = controlChars.ReplaceAllString(s, "")
	}
	c.w.WriteString(esc(s))
}

func (c *xmlConverter) page(p *LayoutPage) error {
	c.printf("<page id=\"%d\" bbox=\"%s\" rotate=\"%d\">\n", p.ID, p.BBox, p.Rotate)
	c.boxes(p.Boxes)
	c.items(p.Items)
	c.w.WriteString("</page>\n")
	return nil
}

func (c *xmlConverter) boxes(boxes []*TextBox) {
	for _, b := range boxes {
		c.printf("<textbox id=\"%d\" bbox=\"%s\">\n", b.ID, b.BBox)
		for _, l := range b.Lines {
			c.printf("<textline bbox=\"%s\">\n", l.BBox)
			var ws wordSplitter
			for _, s := range l.Spans {
				if s.Char == nil {
					c.word(ws.flush())
					c.anno(s.Text)
					continue
				}
				c.char(s.Char, &ws, 0)
			}
			c.word(ws.flush())
			c.w.WriteString("</textline>\n")
		}
		c.w.WriteString("</textbox>\n")
	}
}

// items writes unanalyzed content: loose chars, images and figures.
func (c *xmlConverter) items(items []Item) {
	var ws wordSplitter
	for _, it := range items {
		switch v := it.(type) {
		case *Char:
			c.char(v, &ws, c.wordMargin)
			continue
		case *Figure:
			c.word(ws.flush())
			c.printf("<figure name=\"%s\" bbox=\"%s\">\n", esc(v.Name), v.BBox)
			c.boxes(v.Boxes)
			c.items(v.Items)
			c.w.WriteString("</figure>\n")
		case *Image:
			c.word(ws.flush())
			c.image(v)
		}
	}
	c.word(ws.flush())
}

func (c *xmlConverter) char(ch *Char, ws *wordSplitter, margin float64) {
	if ws.breaks(ch, margin) {
		c.word(ws.flush())
	}
	c.printf("<text font=\"%s\" bbox=\"%s\" size=\"%.3f\">", esc(ch.Font), ch.BBox, ch.Size)
	c.text(ch.Text)
	c.w.WriteString("</text>\n")
	ws.add(ch)
}

func (c *xmlConverter) anno(s string) {
	c.w.WriteString("<text>")
	c.text(s)
	c.w.WriteString("</text>\n")
}

func (c *xmlConverter) word(w *Word) {
	if w == nil {
		return
	}
	c.printf("<word bbox=\"%s\">", w.BBox)
	c.text(w.Text)
	c.w.WriteString("</word>\n")
}

func (c *xmlConverter) image(img *Image) {
	var width, height int64
	if img.Stream != nil {
		width, _ = img.Stream.Dict.IntValue("Width")
		height, _ = img.Stream.Dict.IntValue("Height")
	}
	if src := c.export(img); src != "" {
		c.printf("<image src=\"%s\" width=\"%d\" height=\"%d\" />\n", esc(src), width, height)
		return
	}
	c.printf("<image width=\"%d\" height=\"%d\" />\n", width, height)
}

func (c *xmlConverter) end() error {
	c.w.WriteString("</pages>\n")
	return c.w.Flush()
}

// wordSplitter accumulates consecutive non-blank chars into a word.
type wordSplitter struct {
	cur  *Word
	last *Char
}

// breaks reports whether ch ends the current word: it is blank, or a
// positive margin is given and ch is off the line or too far right.
func (ws *wordSplitter) breaks(ch *Char, margin float64) bool {
	if strings.TrimSpace(ch.Text) == "" {
		return true
	}
	if margin <= 0 || ws.last == nil {
		return false
	}
	gap := ch.BBox.X0 - ws.last.BBox.X1
	return gap > margin*max(ch.BBox.Width(), ch.BBox.Height()) || ch.BBox.voverlap(ws.last.BBox) == 0
}

func (ws *wordSplitter) add(ch *Char) {
	ws.last = ch
	if strings.TrimSpace(ch.Text) == "" {
		return
	}
	if ws.cur == nil {
		ws.cur = &Word{BBox: ch.BBox}
	}
	ws.cur.Text += ch.Text
	ws.cur.BBox = ws.cur.BBox.Union(ch.BBox)
}

func (ws *wordSplitter) flush() *Word {
	w := ws.cur
	ws.cur = nil
	return w
}

// tagConverter writes the marked-content structure of each page.
type tagConverter struct {
	base
}

func (c *tagConverter) begin() error {
	c.printf("<?xml version=\"1.0\" encoding=\"%s\" ?>\n<pages>\n", c.codec)
	return nil
}

func (c *tagConverter) page(p *LayoutPage) error {
	c.printf("<page id=\"%d\" bbox=\"%s\" rotate=\"%d\">", p.ID, p.BBox, p.Rotate)
	for _, m := range p.Marks {
		switch m.Kind {
		case MarkBegin:
			c.printf("<%s%s>", esc(m.Tag), props(m.Props))
		case MarkText:
			c.w.WriteString(esc(controlChars.ReplaceAllString(m.Text, "")))
		case MarkEnd:
			c.printf("</%s>", esc(m.Tag))
		}
	}
	c.w.WriteString("</page>\n")
	return nil
}

// props formats marked-content properties as sorted attributes. Only
// scalar values are kept.
func props(d Dict) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		var v string
		switch o := d[k]; o.Kind {
		case KindInt:
			v = fmt.Sprint(o.Int)
		case KindReal:
			v = fmt.Sprint(o.Real)
		case KindName:
			v = o.Name
		case KindString:
			v = string(o.Str)
		case KindBool:
			v = fmt.Sprint(o.Bool)
		default:
			continue
		}
		fmt.Fprintf(&b, " %s=\"%s\"", esc(k), esc(controlChars.ReplaceAllString(v, "")))
	}
	return b.String()
}

func (c *tagConverter) end() error {
	c.w.WriteString("</pages>\n")
	return c.w.Flush()
}

// htmlConverter places boxes absolutely, pages stacked vertically.
type htmlConverter struct {
	base
	scale   float64
	mode    string
	yoffset float64
	pageIDs []int
}

const pageMargin = 50

func (c *htmlConverter) begin() error {
	c.w.WriteString("<html><head>\n")
	c.printf("<meta http-equiv=\"Content-Type\" content=\"text/html; charset=%s\">\n", c.codec)
	c.w.WriteString("</head><body>\n")
	c.yoffset = pageMargin
	return nil
}

func (c *htmlConverter) px(v float64) int { return int(v * c.scale) }

func (c *htmlConverter) page(p *LayoutPage) error {
	top := func(r Rect) int { return int(c.yoffset) + c.px(p.BBox.Y1-r.Y1) }
	c.printf("<span style=\"position:absolute; border: gray 1px solid; left:0px; top:%dpx; width:%dpx; height:%dpx;\"></span>\n",
		int(c.yoffset), c.px(p.BBox.Width()), c.px(p.BBox.Height()))
	c.printf("<div style=\"position:absolute; top:%dpx;\"><a name=\"%d\">Page %d</a></div>\n", int(c.yoffset), p.ID, p.ID)
	c.pageIDs = append(c.pageIDs, p.ID)

	for _, b := range p.Boxes {
		switch c.mode {
		case "exact":
			for _, l := range b.Lines {
				c.printf("<div style=\"position:absolute; left:%dpx; top:%dpx;\">", c.px(l.BBox.X0), top(l.BBox))
				c.spans(l.Spans, false)
				c.w.WriteString("</div>\n")
			}
		case "loose":
			c.box(b, top(b.BBox))
			c.w.WriteString("<span style=\"white-space:pre-wrap\">")
			c.w.WriteString(esc(b.Text()))
			c.w.WriteString("</span></div>\n")
		default:
			c.box(b, top(b.BBox))
			for _, l := range b.Lines {
				c.spans(l.Spans, true)
			}
			c.w.WriteString("</div>\n")
		}
	}
	c.images(p.Items, top)
	c.yoffset += p.BBox.Height()*c.scale + pageMargin
	return nil
}

func (c *htmlConverter) box(b *TextBox, top int) {
	mode := "lr-tb"
	if b.Vertical {
		mode = "tb-rl"
	}
	c.printf("<div style=\"position:absolute; writing-mode:%s; left:%dpx; top:%dpx; width:%dpx; height:%dpx;\">",
		mode, c.px(b.BBox.X0), top, c.px(b.BBox.Width()), c.px(b.BBox.Height()))
}

// spans writes runs of glyphs sharing a font and size as one span.
// Newlines become <br> when br is set.
func (c *htmlConverter) spans(spans []Span, br bool) {
	var font string
	var size float64
	open := false
	for _, s := range spans {
		if s.Text == "\n" {
			if open {
				c.w.WriteString("</span>")
				open = false
			}
			if br {
				c.w.WriteString("<br>")
			}
			continue
		}
		if s.Char != nil && (!open || s.Char.Font != font || s.Char.Size != size) {
			if open {
				c.w.WriteString("</span>")
			}
			font, size = s.Char.Font, s.Char.Size
			c.printf("<span style=\"font-family: %s; font-size:%dpx\">", esc(font), c.px(size))
			open = true
		}
		c.w.WriteString(esc(s.Text))
	}
	if open {
		c.w.WriteString("</span>")
	}
}

func (c *htmlConverter) images(items []Item, top func(Rect) int) {
	for _, it := range items {
		switch v := it.(type) {
		case *Figure:
			c.images(v.Items, top)
		case *Image:
			if src := c.export(v); src != "" {
				c.printf("<img src=\"%s\" border=\"1\" style=\"position:absolute; left:%dpx; top:%dpx;\" width=\"%d\" height=\"%d\">\n",
					esc(src), c.px(v.BBox.X0), top(v.BBox), c.px(v.BBox.Width()), c.px(v.BBox.Height()))
			}
		}
	}
}

func (c *htmlConverter) end() error {
	c.w.WriteString("<div style=\"position:absolute; top:0px;\">Page:")
	for i, id := range c.pageIDs {
		if i > 0 {
			c.w.WriteString(",")
		}
		c.printf(" <a href=\"#%d\">%d</a>", id, id)
	}
	c.w.WriteString("</div>\n</body></html>\n")
	return c.w.Flush()
}
