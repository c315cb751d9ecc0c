package engine

import (
	"testing"
)

func TestWinAnsiEncoding(t *testing.T) {
	f := &Font{}
	f.applyEncoding("WinAnsiEncoding")

	// Euro sign is at code 128 in WinAnsi.
	if r := f.base[128]; r != 0x20AC {
		t.Errorf("expected Euro sign (U+20AC) at code 128, got U+%04X", r)
	}
	if r := f.base[0xe9]; r != 'é' {
		t.Errorf("expected é at 0xE9, got U+%04X", r)
	}
}

func TestPDFDocEncoding(t *testing.T) {
	tests := map[byte]rune{'A': 'A', 0x80: 0x2022, 0x8d: 0x201c, 0xa0: 0x20ac, 0xe9: 'é'}
	for b, want := range tests {
		if got := pdfDocRune(b); got != want {
			t.Errorf("pdfDocRune(%#x) = U+%04X, want U+%04X", b, got, want)
		}
	}
}

func TestDifferences(t *testing.T) {
	f := &Font{}
	f.applyEncoding("StandardEncoding")
	f.applyDifferences([]*Object{
		{Kind: KindInt, Int: 65},
		{Kind: KindName, Name: "eacute"},
		{Kind: KindName, Name: "uni20AC"},
		{Kind: KindName, Name: "nosuchglyph"},
	})
	if f.base[65] != 'é' || f.base[66] != '€' {
		t.Errorf("differences not applied: %q %q", f.base[65], f.base[66])
	}
	if f.base[67] != 'C' {
		t.Errorf("unknown glyph names must keep the base mapping, got %q", f.base[67])
	}
	if f.base['\''] != '’' {
		t.Errorf("StandardEncoding quoteright, got %q", f.base['\''])
	}
}

func TestToUnicodeCMap(t *testing.T) {
	cmap := []byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange <0000> <FFFF> endcodespacerange
2 beginbfchar
<0003> <0020>
<0011> <D835DC00>
endbfchar
2 beginbfrange
<0024> <0026> <0041>
<0030> <0031> [<0066006C> <00E9>]
endbfrange
endcmap`)
	m := parseToUnicode(cmap)
	want := map[uint32]string{
		0x03: " ",
		0x11: "𝐀",
		0x24: "A", 0x25: "B", 0x26: "C",
		0x30: "fl", 0x31: "é",
	}
	for code, s := range want {
		if m[code] != s {
			t.Errorf("code %#x: got %q, want %q", code, m[code], s)
		}
	}
}

func TestCompositeFontDecode(t *testing.T) {
	f := &Font{
		composite: true,
		dw:        1000,
		toUnicode: map[uint32]string{0x0102: "x"},
		widths:    map[uint32]float64{0x0102: 250},
	}
	glyphs := f.decode([]byte{0x01, 0x02, 0x00, 0x07})
	if len(glyphs) != 2 {
		t.Fatalf("expected 2 glyphs, got %d", len(glyphs))
	}
	if glyphs[0].text != "x" || glyphs[0].width != 250 {
		t.Errorf("first glyph = %+v", glyphs[0])
	}
	if glyphs[1].text != "(cid:7)" || glyphs[1].width != 1000 {
		t.Errorf("unmapped glyph = %+v", glyphs[1])
	}
}

func TestSimpleWidths(t *testing.T) {
	doc := &Document{}
	d := Dict{
		"FirstChar": {Kind: KindInt, Int: 32},
		"Widths":    {Kind: KindArray, Array: []*Object{{Kind: KindInt, Int: 278}, {Kind: KindReal, Real: 333.5}}},
	}
	w := doc.simpleWidths(d)
	if w[32] != 278 || w[33] != 333.5 {
		t.Errorf("widths = %v", w)
	}
}
