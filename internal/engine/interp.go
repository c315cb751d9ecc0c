package engine

import (
	"bytes"
	"math"
	"strings"
)

// matrix is an affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n (apply m first, then n).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// box transforms r and returns the bounding box of the result.
func (m matrix) box(r Rect) Rect {
	x0, y0 := m.apply(r.X0, r.Y0)
	out := Rect{x0, y0, x0, y0}
	for _, p := range [][2]float64{{r.X0, r.Y1}, {r.X1, r.Y0}, {r.X1, r.Y1}} {
		x, y := m.apply(p[0], p[1])
		out = out.Union(Rect{x, y, x, y})
	}
	return out
}

// MarkKind distinguishes marked-content events.
type MarkKind int

const (
	MarkBegin MarkKind = iota
	MarkEnd
	MarkText
)

// Mark is a marked-content event in content order, used by the tag
// output.
type Mark struct {
	Kind  MarkKind
	Tag   string
	Props Dict
	Text  string
}

type textState struct {
	font     *Font
	size     float64
	charSp   float64
	wordSp   float64
	hscale   float64
	leading  float64
	rise     float64
	tm, tlm  matrix
}

type gstate struct {
	ctm  matrix
	text textState
}

// interpreter executes a content stream and collects positioned items.
type interpreter struct {
	doc   *Document
	res   Dict
	fonts map[*Object]*Font
	gs    gstate
	stack []gstate
	items []Item
	marks *[]Mark
	tags  []string
	depth int
}

const maxFormDepth = 8

func newInterpreter(doc *Document, res Dict, ctm matrix, fonts map[*Object]*Font, marks *[]Mark) *interpreter {
	return &interpreter{
		doc:   doc,
		res:   res,
		fonts: fonts,
		gs:    gstate{ctm: ctm, text: textState{size: 12, hscale: 1, tm: identity, tlm: identity}},
		marks: marks,
	}
}

// run interprets data. Malformed operators are skipped.
func (in *interpreter) run(data []byte) {
	p := NewParser(data, 0)
	var args []*Object
	for {
		p.skipSpace()
		if p.EOF() {
			return
		}
		if startsObject(p.data[p.pos]) {
			obj, err := p.ParseObject()
			if err != nil {
				return
			}
			args = append(args, obj)
			continue
		}
		op := p.token()
		if op == "" {
			p.pos++
			args = args[:0]
			continue
		}
		switch op {
		case "true", "false", "null":
			args = append(args, keyword(op))
			continue
		case "BI":
			in.inlineImage(p)
		default:
			in.do(op, args)
		}
		args = args[:0]
	}
}

func keyword(op string) *Object {
	switch op {
	case "true":
		return &Object{Kind: KindBool, Bool: true}
	case "false":
		return &Object{Kind: KindBool}
	}
	return null
}

func num(args []*Object, i int) float64 {
	if i >= len(args) {
		return 0
	}
	v, _ := args[i].Number()
	return v
}

func nums(args []*Object, n int) (matrix, bool) {
	var m matrix
	if len(args) < n {
		return m, false
	}
	for i := range n {
		m[i] = num(args, len(args)-n+i)
	}
	return m, true
}

func (in *interpreter) do(op string, args []*Object) {
	ts := &in.gs.text
	switch op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			tm, tlm := ts.tm, ts.tlm
			in.gs = in.stack[n-1]
			ts.tm, ts.tlm = tm, tlm
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if m, ok := nums(args, 6); ok {
			in.gs.ctm = m.mul(in.gs.ctm)
		}

	case "BT":
		ts.tm, ts.tlm = identity, identity
	case "ET":

	case "Tf":
		if len(args) >= 2 {
			if args[0].Kind == KindName {
				ts.font = in.font(args[0].Name)
			}
			ts.size = num(args, 1)
		}
	case "Tc":
		ts.charSp = num(args, 0)
	case "Tw":
		ts.wordSp = num(args, 0)
	case "Tz":
		ts.hscale = num(args, 0) / 100
	case "TL":
		ts.leading = num(args, 0)
	case "Ts":
		ts.rise = num(args, 0)

	case "Td":
		in.moveLine(num(args, 0), num(args, 1))
	case "TD":
		ts.leading = -num(args, 1)
		in.moveLine(num(args, 0), num(args, 1))
	case "Tm":
		if m, ok := nums(args, 6); ok {
			ts.tm, ts.tlm = m, m
		}
	case "T*":
		in.moveLine(0, -ts.leading)

	case "Tj":
		if len(args) > 0 {
			in.show(args[len(args)-1].Str)
		}
	case "TJ":
		if len(args) > 0 && args[len(args)-1].Kind == KindArray {
			for _, e := range args[len(args)-1].Array {
				if e.Kind == KindString {
					in.show(e.Str)
				} else if v, ok := e.Number(); ok {
					ts.tm = matrix{1, 0, 0, 1, -v / 1000 * ts.size * ts.hscale, 0}.mul(ts.tm)
				}
			}
		}
	case "'":
		in.moveLine(0, -ts.leading)
		if len(args) > 0 {
			in.show(args[len(args)-1].Str)
		}
	case `"`:
		if len(args) >= 3 {
			ts.wordSp = num(args, 0)
			ts.charSp = num(args, 1)
		}
		in.moveLine(0, -ts.leading)
		if len(args) > 0 {
			in.show(args[len(args)-1].Str)
		}

	case "BMC":
		if len(args) > 0 {
			in.begin(args[0].Name, nil)
		}
	case "BDC":
		if len(args) >= 2 {
			in.begin(args[0].Name, in.properties(args[1]))
		}
	case "EMC":
		if n := len(in.tags); n > 0 {
			*in.marks = append(*in.marks, Mark{Kind: MarkEnd, Tag: in.tags[n-1]})
			in.tags = in.tags[:n-1]
		}

	case "Do":
		if len(args) > 0 && args[0].Kind == KindName {
			in.xobject(args[0].Name)
		}
	}
}

func (in *interpreter) moveLine(tx, ty float64) {
	ts := &in.gs.text
	ts.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(ts.tlm)
	ts.tm = ts.tlm
}

func (in *interpreter) font(name string) *Font {
	obj := in.doc.resource(in.res, "Font", name)
	if obj == nil || obj.Kind != KindDict {
		return defaultFont()
	}
	if f, ok := in.fonts[obj]; ok {
		return f
	}
	f := in.doc.loadFont(obj.Dict)
	in.fonts[obj] = f
	return f
}

// show renders a string operand glyph by glyph, advancing the text matrix.
func (in *interpreter) show(s []byte) {
	ts := &in.gs.text
	if ts.font == nil {
		ts.font = defaultFont()
	}
	var text strings.Builder
	for _, g := range ts.font.decode(s) {
		trm := ts.tm.mul(in.gs.ctm)
		adv := g.width / 1000 * ts.size * ts.hscale
		descent := ts.font.descent / 1000 * ts.size
		local := Rect{0, descent + ts.rise, adv, descent + ts.rise + ts.size}
		in.items = append(in.items, &Char{
			Text:    g.text,
			Font:    ts.font.Name,
			Size:    ts.size * max(math.Abs(trm[3]), math.Abs(trm[0])),
			BBox:    trm.box(local),
			Upright: trm[0]*trm[3]*ts.hscale > 0 && trm[1]*trm[2] <= 0,
		})
		text.WriteString(g.text)

		tx := adv + ts.charSp*ts.hscale
		if !ts.font.composite && g.code == 32 {
			tx += ts.wordSp * ts.hscale
		}
		ts.tm = matrix{1, 0, 0, 1, tx, 0}.mul(ts.tm)
	}
	if len(in.tags) > 0 && text.Len() > 0 {
		*in.marks = append(*in.marks, Mark{Kind: MarkText, Text: text.String()})
	}
}

func (in *interpreter) begin(tag string, props Dict) {
	in.tags = append(in.tags, tag)
	*in.marks = append(*in.marks, Mark{Kind: MarkBegin, Tag: tag, Props: props})
}

// properties resolves a BDC operand, either inline or a named
// /Properties resource.
func (in *interpreter) properties(obj *Object) Dict {
	switch obj.Kind {
	case KindDict:
		return obj.Dict
	case KindName:
		if r := in.doc.resource(in.res, "Properties", obj.Name); r != nil && r.Kind == KindDict {
			return r.Dict
		}
	}
	return nil
}

// xobject places an image or interprets a form, each as a figure.
func (in *interpreter) xobject(name string) {
	obj := in.doc.resource(in.res, "XObject", name)
	if obj == nil || obj.Kind != KindStream {
		return
	}
	unit := Rect{0, 0, 1, 1}
	switch st, _ := obj.Dict.NameValue("Subtype"); st {
	case "Image":
		box := in.gs.ctm.box(unit)
		img := &Image{Name: name, BBox: box, Stream: obj}
		in.items = append(in.items, &Figure{Name: name, BBox: box, Items: []Item{img}})
	case "Form":
		if in.depth >= maxFormDepth {
			return
		}
		m := identity
		if arr, err := in.doc.Resolve(obj.Dict["Matrix"]); err == nil && arr.Kind == KindArray {
			if v, ok := nums(arr.Array, 6); ok {
				m = v
			}
		}
		ctm := m.mul(in.gs.ctm)
		bbox, ok := in.doc.rect(obj.Dict["BBox"])
		if !ok {
			bbox = unit
		}
		res := in.doc.resolveDict(obj.Dict["Resources"])
		if res == nil {
			res = in.res
		}
		data, err := DecodeStream(obj.Dict, obj.Stream)
		if err != nil {
			return
		}
		sub := newInterpreter(in.doc, res, ctm, in.fonts, in.marks)
		sub.depth = in.depth + 1
		sub.run(data)
		in.items = append(in.items, &Figure{Name: name, BBox: ctm.box(bbox), Items: sub.items})
	}
}

// inlineImage skips a BI ... ID data EI sequence and records the image.
func (in *interpreter) inlineImage(p *Parser) {
	id := bytes.Index(p.data[p.pos:], []byte("ID"))
	if id < 0 {
		p.pos = len(p.data)
		return
	}
	p.pos += id + 2
	for rest := p.data[p.pos:]; ; {
		ei := bytes.Index(rest, []byte("EI"))
		if ei < 0 {
			p.pos = len(p.data)
			return
		}
		end := ei + 2
		if ei > 0 && isSpace(rest[ei-1]) && (end == len(rest) || isSpace(rest[end]) || isDelimiter(rest[end])) {
			p.pos += len(p.data[p.pos:]) - len(rest) + end
			break
		}
		rest = rest[end:]
	}
	in.items = append(in.items, &Image{Name: "inline", BBox: in.gs.ctm.box(Rect{0, 0, 1, 1})})
}
