package engine

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind identifies the kind of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

// Object holds any PDF object value. Only the field matching Kind is set.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte // raw, still filtered
	Ref    Ref
}

// Ref is an indirect object reference (N G R).
type Ref struct {
	Num int
	Gen int
}

// Dict is a PDF dictionary keyed by name without the leading slash.
type Dict map[string]*Object

var null = &Object{Kind: KindNull}

// Number returns the numeric value of o and whether o is a number.
func (o *Object) Number() (float64, bool) {
	if o == nil {
		return 0, false
	}
	switch o.Kind {
	case KindInt:
		return float64(o.Int), true
	case KindReal:
		return o.Real, true
	}
	return 0, false
}

// IntValue returns the integer stored under key. Reals are truncated.
func (d Dict) IntValue(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Kind {
	case KindInt:
		return obj.Int, true
	case KindReal:
		return int64(obj.Real), true
	}
	return 0, false
}

// NameValue returns the name stored under key. Strings are accepted too,
// since some producers write names as strings.
func (d Dict) NameValue(key string) (string, bool) {
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	switch obj.Kind {
	case KindName:
		return obj.Name, true
	case KindString:
		return string(obj.Str), true
	}
	return "", false
}

// ArrayValue returns the array stored under key. A single non-array
// object is returned as a one-element array.
func (d Dict) ArrayValue(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}

// DictValue returns the dictionary stored under key, including the
// dictionary of a stream.
func (d Dict) DictValue(key string) (Dict, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindDict || obj.Kind == KindStream {
		return obj.Dict, true
	}
	return nil, false
}

const maxDepth = 100

// Parser is a recursive-descent parser for PDF objects. It is used both on
// the file body and on decoded content streams.
type Parser struct {
	data  []byte
	pos   int
	depth int
}

// NewParser returns a parser positioned at pos within data.
func NewParser(data []byte, pos int) *Parser {
	return &Parser{data: data, pos: pos}
}

// Pos returns the current offset.
func (p *Parser) Pos() int { return p.pos }

// Seek moves the parser to an absolute offset.
func (p *Parser) Seek(pos int) { p.pos = pos }

// EOF reports whether all input was consumed.
func (p *Parser) EOF() bool { return p.pos >= len(p.data) }

// skipSpace skips whitespace and comments.
func (p *Parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		case isSpace(c):
			p.pos++
		default:
			return
		}
	}
}

// consume advances past s if the input continues with it.
func (p *Parser) consume(s string) bool {
	if bytes.HasPrefix(p.data[p.pos:], []byte(s)) {
		p.pos += len(s)
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// startsObject reports whether c can start an operand.
func startsObject(c byte) bool {
	return c == '(' || c == '<' || c == '/' || c == '[' ||
		c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

// ParseObject parses the object at the current offset.
func (p *Parser) ParseObject() (*Object, error) {
	if p.depth > maxDepth {
		return nil, fmt.Errorf("object nesting deeper than %d", maxDepth)
	}
	p.depth++
	defer func() { p.depth-- }()

	p.skipSpace()
	if p.EOF() {
		return null, nil
	}

	c := p.data[p.pos]
	switch {
	case c == 'n' && p.consume("null"):
		return null, nil
	case c == 't' && p.consume("true"):
		return &Object{Kind: KindBool, Bool: true}, nil
	case c == 'f' && p.consume("false"):
		return &Object{Kind: KindBool}, nil
	case c == '(':
		return p.literalString(), nil
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.dictOrStream()
	case c == '<':
		return p.hexString(), nil
	case c == '/':
		return p.name(), nil
	case c == '[':
		return p.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.numberOrRef(), nil
	}
	// Unknown token: step over it so callers make progress.
	p.pos++
	return null, nil
}

// literalString parses (...), handling escapes and balanced parentheses.
func (p *Parser) literalString() *Object {
	p.pos++
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: KindString, Str: buf.Bytes()}
			}
		case '\\':
			p.escape(&buf)
			continue
		}
		buf.WriteByte(c)
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

func (p *Parser) escape(buf *bytes.Buffer) {
	if p.EOF() {
		return
	}
	c := p.data[p.pos]
	p.pos++
	switch c {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		p.consume("\n")
	case '\n':
	default:
		if c < '0' || c > '7' {
			buf.WriteByte(c)
			return
		}
		v := int(c - '0')
		for i := 0; i < 2 && !p.EOF(); i++ {
			d := p.data[p.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v*8 + int(d-'0')
			p.pos++
		}
		buf.WriteByte(byte(v))
	}
}

// hexString parses <...>. An odd final digit is padded with zero.
func (p *Parser) hexString() *Object {
	p.pos++
	var buf bytes.Buffer
	var hi byte
	half := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		if !half {
			hi = hexDigit(c)
		} else {
			buf.WriteByte(hi<<4 | hexDigit(c))
		}
		half = !half
	}
	if half {
		buf.WriteByte(hi << 4)
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

func hexDigit(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// name parses /Name including #xx escapes.
func (p *Parser) name() *Object {
	p.pos++
	start := p.pos
	for p.pos < len(p.data) && !isSpace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return &Object{Kind: KindName, Name: unescapeName(p.data[start:p.pos])}
}

func unescapeName(raw []byte) string {
	if bytes.IndexByte(raw, '#') < 0 {
		return string(raw)
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			out = append(out, hexDigit(raw[i+1])<<4|hexDigit(raw[i+2]))
			i += 2
			continue
		}
		out = append(out, raw[i])
	}
	return string(out)
}

func (p *Parser) array() (*Object, error) {
	p.pos++
	arr := &Object{Kind: KindArray}
	for {
		p.skipSpace()
		if p.EOF() {
			return arr, nil
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr.Array = append(arr.Array, obj)
	}
}

// dictOrStream parses <<...>> and a trailing stream body if present.
func (p *Parser) dictOrStream() (*Object, error) {
	p.pos += 2
	d := make(Dict)
	for {
		p.skipSpace()
		if p.EOF() {
			break
		}
		if p.consume(">>") {
			break
		}
		if p.data[p.pos] != '/' {
			p.pos++
			continue
		}
		key := p.name()
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		d[key.Name] = val
	}

	save := p.pos
	p.skipSpace()
	if !p.consume("stream") {
		p.pos = save
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	p.consume("\r")
	p.consume("\n")

	start := p.pos
	n := -1
	if l, ok := d["Length"]; ok && l.Kind == KindInt {
		n = int(l.Int)
	}
	var body []byte
	if n >= 0 && start+n <= len(p.data) {
		body = p.data[start : start+n]
		p.pos = start + n
	} else {
		end := bytes.Index(p.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(p.data) - start
		}
		body = bytes.TrimRight(p.data[start:start+end], "\r\n")
		p.pos = start + end
	}
	p.skipSpace()
	p.consume("endstream")
	return &Object{Kind: KindStream, Dict: d, Stream: body}, nil
}

// numberOrRef parses a number, or an indirect reference "N G R".
func (p *Parser) numberOrRef() *Object {
	tok := p.token()
	n, intErr := strconv.ParseInt(tok, 10, 64)
	if intErr == nil {
		after := p.pos
		p.skipSpace()
		if g, err := strconv.ParseInt(p.token(), 10, 64); err == nil {
			p.skipSpace()
			if p.pos < len(p.data) && p.data[p.pos] == 'R' &&
				(p.pos+1 >= len(p.data) || isSpace(p.data[p.pos+1]) || isDelimiter(p.data[p.pos+1])) {
				p.pos++
				return &Object{Kind: KindRef, Ref: Ref{Num: int(n), Gen: int(g)}}
			}
		}
		p.pos = after
		return &Object{Kind: KindInt, Int: n}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return &Object{Kind: KindReal, Real: f}
	}
	return null
}

// token reads a run of regular characters.
func (p *Parser) token() string {
	start := p.pos
	for p.pos < len(p.data) && !isSpace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}
