package engine

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Font maps character codes of a PDF font to Unicode text and advance
// widths. Lookup priority: ToUnicode CMap, then /Encoding with
// /Differences, then the built-in base encoding.
type Font struct {
	Name      string
	composite bool
	base      [256]rune
	toUnicode map[uint32]string
	widths    map[uint32]float64
	dw        float64
	descent   float64
}

// glyph is one decoded character code.
type glyph struct {
	code  uint32
	text  string
	width float64 // glyph space, 1/1000 text space units
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// defaultFont stands in for fonts that are missing from the resources.
func defaultFont() *Font {
	f := &Font{Name: "unknown", dw: 500}
	f.applyEncoding("StandardEncoding")
	return f
}

// loadFont builds a Font from a font dictionary.
func (doc *Document) loadFont(d Dict) *Font {
	f := &Font{dw: 500}
	if d == nil {
		return defaultFont()
	}
	f.Name, _ = d.NameValue("BaseFont")
	subtype, _ := d.NameValue("Subtype")
	f.composite = subtype == "Type0"

	switch enc, _ := doc.Resolve(d["Encoding"]); enc.Kind {
	case KindName:
		f.applyEncoding(enc.Name)
	case KindDict:
		base, ok := enc.Dict.NameValue("BaseEncoding")
		if !ok {
			base = "StandardEncoding"
		}
		f.applyEncoding(base)
		if diffs, err := doc.Resolve(enc.Dict["Differences"]); err == nil && diffs.Kind == KindArray {
			f.applyDifferences(diffs.Array)
		}
	default:
		if subtype == "TrueType" {
			f.applyEncoding("WinAnsiEncoding")
		} else {
			f.applyEncoding("StandardEncoding")
		}
	}

	if tu, err := doc.Resolve(d["ToUnicode"]); err == nil && tu.Kind == KindStream {
		if data, err := DecodeStream(tu.Dict, tu.Stream); err == nil {
			f.toUnicode = parseToUnicode(data)
		}
	}

	desc := d
	if f.composite {
		if kids, err := doc.Resolve(d["DescendantFonts"]); err == nil && kids.Kind == KindArray && len(kids.Array) > 0 {
			desc = doc.resolveDict(kids.Array[0])
		}
		f.dw = 1000
		if desc != nil {
			if v, ok := desc.IntValue("DW"); ok {
				f.dw = float64(v)
			}
			f.widths = doc.cidWidths(desc["W"])
		}
	} else {
		f.widths = doc.simpleWidths(d)
	}
	if fd := doc.resolveDict(desc["FontDescriptor"]); fd != nil {
		if v, ok := fd["Descent"].Number(); ok {
			f.descent = v
		}
		if v, ok := fd["MissingWidth"].Number(); ok && !f.composite {
			f.dw = v
		}
	}
	return f
}

func (doc *Document) simpleWidths(d Dict) map[uint32]float64 {
	first, _ := d.IntValue("FirstChar")
	w, err := doc.Resolve(d["Widths"])
	if err != nil || w.Kind != KindArray {
		return nil
	}
	m := make(map[uint32]float64, len(w.Array))
	for i, o := range w.Array {
		o, _ = doc.Resolve(o)
		if v, ok := o.Number(); ok {
			m[uint32(first)+uint32(i)] = v
		}
	}
	return m
}

// cidWidths reads a /W array: "c [w1 w2 ...]" or "cFirst cLast w".
func (doc *Document) cidWidths(obj *Object) map[uint32]float64 {
	w, err := doc.Resolve(obj)
	if err != nil || w.Kind != KindArray {
		return nil
	}
	m := make(map[uint32]float64)
	a := w.Array
	for i := 0; i+1 < len(a); {
		c, _ := a[i].Number()
		next, _ := doc.Resolve(a[i+1])
		if next.Kind == KindArray {
			for j, o := range next.Array {
				if v, ok := o.Number(); ok {
					m[uint32(c)+uint32(j)] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(a) {
			break
		}
		last, _ := next.Number()
		v, _ := a[i+2].Number()
		for code := uint32(c); code <= uint32(last) && code-uint32(c) < 1<<16; code++ {
			m[code] = v
		}
		i += 3
	}
	return m
}

// applyEncoding loads a named base encoding. Unknown names are ignored.
func (f *Font) applyEncoding(name string) {
	var cm *charmap.Charmap
	switch name {
	case "WinAnsiEncoding":
		cm = charmap.Windows1252
	case "MacRomanEncoding":
		cm = charmap.Macintosh
	case "StandardEncoding":
		for i := range f.base {
			f.base[i] = rune(i)
		}
		f.base['\''] = 0x2019
		f.base['`'] = 0x2018
		for i := 0x80; i < 0x100; i++ {
			f.base[i] = standardHigh[byte(i)]
		}
		return
	case "PDFDocEncoding":
		for i := range f.base {
			f.base[i] = pdfDocRune(byte(i))
		}
		return
	default:
		return
	}
	for i := range f.base {
		f.base[i] = cm.DecodeByte(byte(i))
	}
}

// applyDifferences overrides codes from a /Differences array.
func (f *Font) applyDifferences(diffs []*Object) {
	code := 0
	for _, o := range diffs {
		switch o.Kind {
		case KindInt:
			code = int(o.Int)
		case KindName:
			if r, ok := glyphRune(o.Name); ok && code >= 0 && code < 256 {
				f.base[code] = r
			}
			code++
		}
	}
}

// decode splits a string operand into glyphs. Composite fonts use
// two-byte codes (Identity-H); simple fonts one byte per code.
func (f *Font) decode(s []byte) []glyph {
	step := 1
	if f.composite {
		step = 2
	}
	out := make([]glyph, 0, len(s)/step)
	for i := 0; i < len(s); i += step {
		var code uint32
		for j := i; j < i+step && j < len(s); j++ {
			code = code<<8 | uint32(s[j])
		}
		g := glyph{code: code, width: f.dw}
		if w, ok := f.widths[code]; ok {
			g.width = w
		}
		switch t, ok := f.toUnicode[code]; {
		case ok:
			g.text = t
		case !f.composite && f.base[code] != 0:
			g.text = string(f.base[code])
		default:
			g.text = fmt.Sprintf("(cid:%d)", code)
		}
		out = append(out, g)
	}
	return out
}

// parseToUnicode reads bfchar and bfrange sections of a ToUnicode CMap.
func parseToUnicode(data []byte) map[uint32]string {
	m := make(map[uint32]string)
	p := NewParser(data, 0)
	var args []*Object
	for {
		p.skipSpace()
		if p.EOF() {
			return m
		}
		if startsObject(p.data[p.pos]) {
			obj, err := p.ParseObject()
			if err != nil {
				return m
			}
			args = append(args, obj)
			continue
		}
		kw := p.token()
		if kw == "" {
			p.pos++
			continue
		}
		switch kw {
		case "endbfchar":
			for i := 0; i+1 < len(args); i += 2 {
				if args[i].Kind == KindString && args[i+1].Kind == KindString {
					m[codeOf(args[i].Str)] = decodeUTF16BE(args[i+1].Str)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(args); i += 3 {
				bfRange(m, args[i], args[i+1], args[i+2])
			}
		}
		args = args[:0]
	}
}

func bfRange(m map[uint32]string, lo, hi, dst *Object) {
	if lo.Kind != KindString || hi.Kind != KindString {
		return
	}
	from, to := codeOf(lo.Str), codeOf(hi.Str)
	if to < from || to-from > 1<<16 {
		return
	}
	switch dst.Kind {
	case KindArray:
		for i, o := range dst.Array {
			if code := from + uint32(i); code <= to && o.Kind == KindString {
				m[code] = decodeUTF16BE(o.Str)
			}
		}
	case KindString:
		if len(dst.Str) == 0 {
			return
		}
		for code := from; code <= to; code++ {
			b := append([]byte(nil), dst.Str...)
			b[len(b)-1] += byte(code - from)
			m[code] = decodeUTF16BE(b)
		}
	}
}

func codeOf(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func decodeUTF16BE(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	s, err := utf16be.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(s)
}

// glyphRune maps an Adobe glyph name to a rune, including the uniXXXX
// and uXXXX[XX] forms.
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if hex, ok := strings.CutPrefix(name, "uni"); ok && len(hex) >= 4 {
		if v, err := strconv.ParseUint(hex[:4], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if hex, ok := strings.CutPrefix(name, "u"); ok && len(hex) >= 4 && len(hex) <= 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return rune(v), true
		}
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	return 0, false
}

// pdfDocRune decodes one byte of PDFDocEncoding. It agrees with Latin-1
// except in 0x18-0x1F and 0x80-0xA0.
func pdfDocRune(b byte) rune {
	switch {
	case b >= 0x18 && b <= 0x1f:
		return pdfDocLow[b-0x18]
	case b >= 0x80 && b <= 0xa0:
		return pdfDocHigh[b-0x80]
	}
	return rune(b)
}

var pdfDocLow = [8]rune{0x02d8, 0x02c7, 0x02c6, 0x02d9, 0x02dd, 0x02db, 0x02da, 0x02dc}

var pdfDocHigh = [33]rune{
	0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
	0x2039, 0x203a, 0x2212, 0x2030, 0x201e, 0x201c, 0x201d, 0x2018,
	0x2019, 0x201a, 0x2122, 0xfb01, 0xfb02, 0x0141, 0x0152, 0x0160,
	0x0178, 0x017d, 0x0131, 0x0142, 0x0153, 0x0161, 0x017e, 0,
	0x20ac,
}

// standardHigh is the upper half of the PostScript StandardEncoding.
var standardHigh = map[byte]rune{
	0xa1: 0x00a1, 0xa2: 0x00a2, 0xa3: 0x00a3, 0xa4: 0x2044, 0xa5: 0x00a5,
	0xa6: 0x0192, 0xa7: 0x00a7, 0xa8: 0x00a4, 0xa9: 0x0027, 0xaa: 0x201c,
	0xab: 0x00ab, 0xac: 0x2039, 0xad: 0x203a, 0xae: 0xfb01, 0xaf: 0xfb02,
	0xb1: 0x2013, 0xb2: 0x2020, 0xb3: 0x2021, 0xb4: 0x00b7, 0xb6: 0x00b6,
	0xb7: 0x2022, 0xb8: 0x201a, 0xb9: 0x201e, 0xba: 0x201d, 0xbb: 0x00bb,
	0xbc: 0x2026, 0xbd: 0x2030, 0xbf: 0x00bf, 0xc1: 0x0060, 0xc2: 0x00b4,
	0xc3: 0x02c6, 0xc4: 0x02dc, 0xc5: 0x00af, 0xc6: 0x02d8, 0xc7: 0x02d9,
	0xc8: 0x00a8, 0xca: 0x02da, 0xcb: 0x00b8, 0xcd: 0x02dd, 0xce: 0x02db,
	0xcf: 0x02c7, 0xd0: 0x2014, 0xe1: 0x00c6, 0xe3: 0x00aa, 0xe8: 0x0141,
	0xe9: 0x00d8, 0xea: 0x0152, 0xeb: 0x00ba, 0xf1: 0x00e6, 0xf5: 0x0131,
	0xf8: 0x0142, 0xf9: 0x00f8, 0xfa: 0x0153, 0xfb: 0x00df,
}

// glyphNames covers the glyph names that appear in common /Differences
// arrays. Single-letter names resolve to themselves in glyphRune.
var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@',
	"bracketleft": '[', "backslash": '\\', "bracketright": ']',
	"asciicircum": '^', "underscore": '_', "grave": '`',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',

	"Agrave": 'À', "Aacute": 'Á', "Acircumflex": 'Â', "Atilde": 'Ã',
	"Adieresis": 'Ä', "Aring": 'Å', "AE": 'Æ', "Ccedilla": 'Ç',
	"Egrave": 'È', "Eacute": 'É', "Ecircumflex": 'Ê', "Edieresis": 'Ë',
	"Igrave": 'Ì', "Iacute": 'Í', "Icircumflex": 'Î', "Idieresis": 'Ï',
	"Eth": 'Ð', "Ntilde": 'Ñ', "Ograve": 'Ò', "Oacute": 'Ó',
	"Ocircumflex": 'Ô', "Otilde": 'Õ', "Odieresis": 'Ö', "multiply": '×',
	"Oslash": 'Ø', "Ugrave": 'Ù', "Uacute": 'Ú', "Ucircumflex": 'Û',
	"Udieresis": 'Ü', "Yacute": 'Ý', "Thorn": 'Þ', "germandbls": 'ß',
	"agrave": 'à', "aacute": 'á', "acircumflex": 'â', "atilde": 'ã',
	"adieresis": 'ä', "aring": 'å', "ae": 'æ', "ccedilla": 'ç',
	"egrave": 'è', "eacute": 'é', "ecircumflex": 'ê', "edieresis": 'ë',
	"igrave": 'ì', "iacute": 'í', "icircumflex": 'î', "idieresis": 'ï',
	"eth": 'ð', "ntilde": 'ñ', "ograve": 'ò', "oacute": 'ó',
	"ocircumflex": 'ô', "otilde": 'õ', "odieresis": 'ö', "divide": '÷',
	"oslash": 'ø', "ugrave": 'ù', "uacute": 'ú', "ucircumflex": 'û',
	"udieresis": 'ü', "yacute": 'ý', "thorn": 'þ', "ydieresis": 'ÿ',

	"endash": '–', "emdash": '—', "quoteleft": '‘', "quoteright": '’',
	"quotesinglbase": '‚', "quotedblleft": '“', "quotedblright": '”',
	"quotedblbase": '„', "dagger": '†', "daggerdbl": '‡', "bullet": '•',
	"ellipsis": '…', "perthousand": '‰', "guilsinglleft": '‹',
	"guilsinglright": '›', "guillemotleft": '«', "guillemotright": '»',
	"trademark": '™', "fi": 'ﬁ', "fl": 'ﬂ', "florin": 'ƒ', "fraction": '⁄',
	"Euro": '€', "currency": '¤', "cent": '¢', "sterling": '£', "yen": '¥',
	"section": '§', "copyright": '©', "registered": '®', "degree": '°',
	"plusminus": '±', "mu": 'µ', "paragraph": '¶', "periodcentered": '·',
	"cedilla": '¸', "ordmasculine": 'º', "ordfeminine": 'ª',
	"exclamdown": '¡', "questiondown": '¿', "logicalnot": '¬',
	"nbspace": 0xa0, "nobreakspace": 0xa0, "softhyphen": 0xad,
	"OE": 'Œ', "oe": 'œ', "Scaron": 'Š', "scaron": 'š', "Zcaron": 'Ž',
	"zcaron": 'ž', "Ydieresis": 'Ÿ', "Lslash": 'Ł', "lslash": 'ł',
	"dotlessi": 'ı', "circumflex": 'ˆ', "tilde": '˜', "macron": '¯',
	"breve": '˘', "dotaccent": '˙', "dieresis": '¨', "ring": '˚',
	"hungarumlaut": '˝', "ogonek": '˛', "caron": 'ˇ', "minus": '−',
}
