package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrNotPDF is returned when the input lacks a %PDF- header.
	ErrNotPDF = errors.New("engine: not a PDF file")

	// ErrEncrypted is returned for documents with an /Encrypt dictionary.
	ErrEncrypted = errors.New("engine: encrypted documents are not supported")
)

// xrefEntry is one cross-reference entry. Objects stored in object streams
// (PDF 1.5+) record their container and index instead of an offset.
type xrefEntry struct {
	offset    int64
	gen       int
	inUse     bool
	packed    bool
	container int
	index     int
}

// Document is a loaded PDF file.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]*Object
	nocache bool
}

// LoadOption configures [Load].
type LoadOption func(*Document)

// WithoutCache disables memoisation of resolved indirect objects.
func WithoutCache() LoadOption {
	return func(d *Document) { d.nocache = true }
}

// Open reads and loads a PDF file from disk.
func Open(path string, opts ...LoadOption) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Load(data, opts...)
}

// Load parses the cross-reference data of a PDF held in memory.
func Load(data []byte, opts ...LoadOption) (*Document, error) {
	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]*Object),
	}
	for _, o := range opts {
		o(doc)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	start, err := doc.startXRef()
	if err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	if err := doc.readXRef(start, 0); err != nil {
		return nil, fmt.Errorf("loading xref: %w", err)
	}
	if doc.trailer == nil {
		return nil, fmt.Errorf("loading xref: no trailer")
	}
	return doc, nil
}

// Version returns the header version, e.g. "1.7".
func (doc *Document) Version() string {
	i := bytes.Index(doc.data, []byte("%PDF-"))
	if i < 0 {
		return "?"
	}
	v := doc.data[i+5:]
	end := bytes.IndexAny(v, "\r\n ")
	if end < 0 || end > 8 {
		end = min(len(v), 3)
	}
	return string(v[:end])
}

// Encrypted reports whether the trailer carries an /Encrypt entry.
func (doc *Document) Encrypted() bool {
	_, ok := doc.trailer["Encrypt"]
	return ok
}

// startXRef reads the offset after the last "startxref" keyword.
func (doc *Document) startXRef() (int64, error) {
	from := max(len(doc.data)-2048, 0)
	i := bytes.LastIndex(doc.data[from:], []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	p := NewParser(doc.data, from+i+len("startxref"))
	p.skipSpace()
	off, err := strconv.ParseInt(p.token(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref: %w", err)
	}
	return off, nil
}

// readXRef loads the section at offset and follows /Prev links. Entries
// already known take precedence, so newer sections win.
func (doc *Document) readXRef(offset int64, hops int) error {
	if hops > 64 {
		return fmt.Errorf("xref /Prev chain too long")
	}
	if offset < 0 || offset >= int64(len(doc.data)) {
		return fmt.Errorf("xref offset %d out of range", offset)
	}
	p := NewParser(doc.data, int(offset))
	p.skipSpace()

	var section Dict
	var err error
	if p.consume("xref") {
		section, err = doc.readXRefTable(p)
	} else {
		section, err = doc.readXRefStream(p)
	}
	if err != nil {
		return err
	}
	if doc.trailer == nil {
		doc.trailer = section
	}
	if prev, ok := section.IntValue("Prev"); ok && prev > 0 {
		return doc.readXRef(prev, hops+1)
	}
	return nil
}

func (doc *Document) readXRefTable(p *Parser) (Dict, error) {
	for {
		p.skipSpace()
		if p.EOF() {
			return nil, fmt.Errorf("xref table without trailer")
		}
		if p.consume("trailer") {
			break
		}
		first, err1 := strconv.Atoi(p.token())
		p.skipSpace()
		count, err2 := strconv.Atoi(p.token())
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("malformed xref subsection at %d", p.Pos())
		}
		for i := 0; i < count; i++ {
			p.skipSpace()
			off, _ := strconv.ParseInt(p.token(), 10, 64)
			p.skipSpace()
			gen, _ := strconv.Atoi(p.token())
			p.skipSpace()
			kind := p.token()
			if _, seen := doc.xref[first+i]; !seen {
				doc.xref[first+i] = xrefEntry{offset: off, gen: gen, inUse: kind == "n"}
			}
		}
	}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("parsing trailer: %w", err)
	}
	if obj.Kind != KindDict {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return obj.Dict, nil
}

func (doc *Document) readXRefStream(p *Parser) (Dict, error) {
	obj, err := doc.objectAt(p)
	if err != nil {
		return nil, err
	}
	if obj.Kind != KindStream {
		return nil, fmt.Errorf("xref stream expected at %d", p.Pos())
	}
	data, err := DecodeStream(obj.Dict, obj.Stream)
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}

	w, _ := obj.Dict.ArrayValue("W")
	if len(w) < 3 {
		return nil, fmt.Errorf("xref stream without /W")
	}
	var widths [3]int
	for i := range widths {
		widths[i] = int(w[i].Int)
	}
	size := widths[0] + widths[1] + widths[2]
	if size == 0 {
		return nil, fmt.Errorf("xref stream with empty entries")
	}

	var ranges [][2]int
	if idx, ok := obj.Dict.ArrayValue("Index"); ok {
		for i := 0; i+1 < len(idx); i += 2 {
			ranges = append(ranges, [2]int{int(idx[i].Int), int(idx[i+1].Int)})
		}
	} else {
		n, _ := obj.Dict.IntValue("Size")
		ranges = [][2]int{{0, int(n)}}
	}

	pos := 0
	for _, r := range ranges {
		for id := r[0]; id < r[0]+r[1] && pos+size <= len(data); id++ {
			f := [3]int{1, 0, 0}
			at := pos
			for i, n := range widths {
				if n > 0 {
					f[i] = bigEndian(data[at : at+n])
				}
				at += n
			}
			pos += size
			if _, seen := doc.xref[id]; seen {
				continue
			}
			switch f[0] {
			case 0:
				doc.xref[id] = xrefEntry{gen: f[2]}
			case 1:
				doc.xref[id] = xrefEntry{offset: int64(f[1]), gen: f[2], inUse: true}
			case 2:
				doc.xref[id] = xrefEntry{packed: true, container: f[1], index: f[2], inUse: true}
			}
		}
	}
	return obj.Dict, nil
}

func bigEndian(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// objectAt parses "N G obj <object>" at the parser position.
func (doc *Document) objectAt(p *Parser) (*Object, error) {
	start := p.Pos()
	p.skipSpace()
	p.token()
	p.skipSpace()
	p.token()
	p.skipSpace()
	if !p.consume("obj") {
		return nil, fmt.Errorf("expected obj keyword at %d", start)
	}
	// A stream with an indirect /Length is delimited by its endstream
	// keyword instead, see dictOrStream.
	return p.ParseObject()
}

// Get returns the object with the given number, or null when it is missing
// or unreadable.
func (doc *Document) Get(ref Ref) (*Object, error) {
	if obj, ok := doc.cache[ref.Num]; ok {
		return obj, nil
	}
	e, ok := doc.xref[ref.Num]
	if !ok || !e.inUse {
		return null, nil
	}
	var obj *Object
	var err error
	if e.packed {
		obj, err = doc.packedObject(e)
	} else if e.offset >= 0 && e.offset < int64(len(doc.data)) {
		obj, err = doc.objectAt(NewParser(doc.data, int(e.offset)))
	} else {
		err = fmt.Errorf("object %d offset out of range", ref.Num)
	}
	if err != nil {
		return null, nil
	}
	if !doc.nocache {
		doc.cache[ref.Num] = obj
	}
	return obj, nil
}

// packedObject reads an object out of an object stream.
func (doc *Document) packedObject(e xrefEntry) (*Object, error) {
	if e.container == 0 {
		return nil, fmt.Errorf("invalid object stream reference")
	}
	strm, err := doc.Get(Ref{Num: e.container})
	if err != nil {
		return nil, err
	}
	if strm.Kind != KindStream {
		return nil, fmt.Errorf("object stream %d is not a stream", e.container)
	}
	data, err := DecodeStream(strm.Dict, strm.Stream)
	if err != nil {
		return nil, err
	}
	n, _ := strm.Dict.IntValue("N")
	first, _ := strm.Dict.IntValue("First")
	if int64(e.index) >= n {
		return nil, fmt.Errorf("object stream index %d out of range", e.index)
	}

	p := NewParser(data, 0)
	off := 0
	for i := 0; i <= e.index; i++ {
		p.skipSpace()
		p.token()
		p.skipSpace()
		off, _ = strconv.Atoi(p.token())
	}
	at := int(first) + off
	if at < 0 || at > len(data) {
		return nil, fmt.Errorf("object stream offset out of range")
	}
	return NewParser(data, at).ParseObject()
}

// Resolve follows obj if it is a reference.
func (doc *Document) Resolve(obj *Object) (*Object, error) {
	if obj == nil {
		return null, nil
	}
	if obj.Kind != KindRef {
		return obj, nil
	}
	return doc.Get(obj.Ref)
}

// resolveDict resolves obj and returns its dictionary, or nil.
func (doc *Document) resolveDict(obj *Object) Dict {
	r, err := doc.Resolve(obj)
	if err != nil || r == nil {
		return nil
	}
	if r.Kind == KindDict || r.Kind == KindStream {
		return r.Dict
	}
	return nil
}

// Info returns the string entries of the document information dictionary
// as raw bytes. Names are returned by their spelling; other values are
// skipped. A document without /Info yields an empty map.
func (doc *Document) Info() map[string][]byte {
	info := make(map[string][]byte)
	d := doc.resolveDict(doc.trailer["Info"])
	for k, v := range d {
		r, err := doc.Resolve(v)
		if err != nil {
			continue
		}
		switch r.Kind {
		case KindString:
			info[k] = append([]byte(nil), r.Str...)
		case KindName:
			info[k] = []byte(r.Name)
		}
	}
	return info
}

// Catalog returns the document catalog.
func (doc *Document) Catalog() (Dict, error) {
	root, ok := doc.trailer["Root"]
	if !ok {
		return nil, fmt.Errorf("no /Root in trailer")
	}
	cat := doc.resolveDict(root)
	if cat == nil {
		return nil, fmt.Errorf("/Root is not a dictionary")
	}
	return cat, nil
}

// Page is a page dictionary with its inherited attributes already applied.
type Page struct {
	Dict      Dict
	Resources Dict
	MediaBox  Rect
	Rotate    int
}

// Pages returns all pages in document order.
func (doc *Document) Pages() ([]Page, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	root := doc.resolveDict(cat["Pages"])
	if root == nil {
		return nil, fmt.Errorf("no /Pages in catalog")
	}
	var pages []Page
	seen := make(map[*Object]bool)
	doc.walkPages(root, inherited{mediaBox: Rect{0, 0, 612, 792}}, &pages, seen, 0)
	return pages, nil
}

type inherited struct {
	resources Dict
	mediaBox  Rect
	rotate    int
}

func (doc *Document) walkPages(node Dict, inh inherited, pages *[]Page, seen map[*Object]bool, depth int) {
	if depth > maxDepth {
		return
	}
	if r := doc.resolveDict(node["Resources"]); r != nil {
		inh.resources = r
	}
	if mb, ok := doc.rect(node["MediaBox"]); ok {
		inh.mediaBox = mb
	}
	if rot, err := doc.Resolve(node["Rotate"]); err == nil && rot.Kind == KindInt {
		inh.rotate = int(rot.Int)
	}

	if t, _ := node.NameValue("Type"); t == "Page" || node["Kids"] == nil {
		*pages = append(*pages, Page{Dict: node, Resources: inh.resources, MediaBox: inh.mediaBox, Rotate: inh.rotate})
		return
	}
	kids, err := doc.Resolve(node["Kids"])
	if err != nil || kids.Kind != KindArray {
		return
	}
	for _, k := range kids.Array {
		kid, err := doc.Resolve(k)
		if err != nil || seen[kid] {
			continue
		}
		seen[kid] = true
		if kid.Kind == KindDict {
			doc.walkPages(kid.Dict, inh, pages, seen, depth+1)
		}
	}
}

// rect reads a four-number array into a normalized rectangle.
func (doc *Document) rect(obj *Object) (Rect, bool) {
	r, err := doc.Resolve(obj)
	if err != nil || r.Kind != KindArray || len(r.Array) < 4 {
		return Rect{}, false
	}
	var v [4]float64
	for i := range v {
		n, _ := doc.Resolve(r.Array[i])
		v[i], _ = n.Number()
	}
	return Rect{min(v[0], v[2]), min(v[1], v[3]), max(v[0], v[2]), max(v[1], v[3])}, true
}

// Contents returns the concatenated, decoded content streams of a page.
func (doc *Document) Contents(page Page) ([]byte, error) {
	c, err := doc.Resolve(page.Dict["Contents"])
	if err != nil {
		return nil, err
	}
	parts := []*Object{c}
	if c.Kind == KindArray {
		parts = c.Array
	}
	var out []byte
	for _, part := range parts {
		s, err := doc.Resolve(part)
		if err != nil || s.Kind != KindStream {
			continue
		}
		data, err := DecodeStream(s.Dict, s.Stream)
		if err != nil {
			continue
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}

// resource looks up name in the category (Font, XObject, ...) of res.
func (doc *Document) resource(res Dict, category, name string) *Object {
	cat := doc.resolveDict(res[category])
	if cat == nil {
		return nil
	}
	obj, err := doc.Resolve(cat[name])
	if err != nil || obj.Kind == KindNull {
		return nil
	}
	return obj
}

// String describes the document for debug logs.
func (doc *Document) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PDF-%s, %d xref entries", doc.Version(), len(doc.xref))
	if doc.Encrypted() {
		b.WriteString(", encrypted")
	}
	return b.String()
}
