package engine

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func TestDecodeASCIIHex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"48656c6c6f>", "Hello"},
		{"48 65 6c 6c 6f>", "Hello"},
		{"4865 6c6c 6f>", "Hello"},
		{"414>", "A@"},
	}
	for _, tt := range tests {
		if got := string(decodeASCIIHex([]byte(tt.input))); got != tt.expected {
			t.Errorf("decodeASCIIHex(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestDecodeRunLength(t *testing.T) {
	// Literal run: length byte 2 means copy next 3 bytes.
	result, err := decodeRunLength([]byte{2, 'A', 'B', 'C', 128})
	if err != nil {
		t.Fatalf("decodeRunLength: %v", err)
	}
	if string(result) != "ABC" {
		t.Errorf("expected 'ABC', got %q", result)
	}

	// Repeated run: 253 means repeat next byte 257-253 = 4 times.
	result, err = decodeRunLength([]byte{253, 'X', 128})
	if err != nil {
		t.Fatalf("decodeRunLength: %v", err)
	}
	if string(result) != "XXXX" {
		t.Errorf("expected 'XXXX', got %q", result)
	}
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFlateWithPNGPredictor(t *testing.T) {
	// Two rows of three bytes: row 1 uses Sub, row 2 uses Up.
	raw := []byte{
		1, 10, 5, 5,
		2, 1, 1, 1,
	}
	d := Dict{
		"Filter": {Kind: KindName, Name: "FlateDecode"},
		"DecodeParms": {Kind: KindDict, Dict: Dict{
			"Predictor": {Kind: KindInt, Int: 12},
			"Columns":   {Kind: KindInt, Int: 3},
		}},
	}
	out, err := DecodeStream(d, deflate(t, raw))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 15, 20, 11, 16, 21}
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestImageFiltersPassThrough(t *testing.T) {
	d := Dict{"Filter": {Kind: KindArray, Array: []*Object{
		{Kind: KindName, Name: "ASCIIHexDecode"},
		{Kind: KindName, Name: "DCTDecode"},
	}}}
	out, err := DecodeStream(d, []byte("FFD8FF>"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte{0xff, 0xd8, 0xff}) {
		t.Errorf("got % x", out)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	d := Dict{"Filter": {Kind: KindName, Name: "NoSuchDecode"}}
	if _, err := DecodeStream(d, []byte("x")); err == nil {
		t.Error("expected an error")
	}
}
