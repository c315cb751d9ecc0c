package engine

import (
	"errors"
	"testing"

	"github.com/porticus-lab/go-pdf2xml/internal/pdftest"
)

func TestParserBasicTypes(t *testing.T) {
	data := []byte("null true false 42 3.14 (hello) <48454C4C4F> /Name [1 2 3] 7 0 R")
	p := NewParser(data, 0)

	tests := []struct {
		name  string
		check func(*Object) bool
	}{
		{"null", func(o *Object) bool { return o.Kind == KindNull }},
		{"true", func(o *Object) bool { return o.Kind == KindBool && o.Bool }},
		{"false", func(o *Object) bool { return o.Kind == KindBool && !o.Bool }},
		{"int", func(o *Object) bool { return o.Kind == KindInt && o.Int == 42 }},
		{"real", func(o *Object) bool { return o.Kind == KindReal && o.Real == 3.14 }},
		{"literal string", func(o *Object) bool { return o.Kind == KindString && string(o.Str) == "hello" }},
		{"hex string", func(o *Object) bool { return o.Kind == KindString && string(o.Str) == "HELLO" }},
		{"name", func(o *Object) bool { return o.Kind == KindName && o.Name == "Name" }},
		{"array", func(o *Object) bool { return o.Kind == KindArray && len(o.Array) == 3 }},
		{"ref", func(o *Object) bool { return o.Kind == KindRef && o.Ref == Ref{Num: 7} }},
	}
	for _, tt := range tests {
		obj, err := p.ParseObject()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !tt.check(obj) {
			t.Errorf("%s: unexpected object %+v", tt.name, obj)
		}
	}
}

func TestLiteralStringEscapes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`(a\(b\)c)`, "a(b)c"},
		{`(nested (parens) ok)`, "nested (parens) ok"},
		{`(\223Title\224)`, "\x93Title\x94"},
		{"(line\\\ncontinued)", "linecontinued"},
		{`(tab\there)`, "tab\there"},
	}
	for _, tt := range tests {
		obj, err := NewParser([]byte(tt.in), 0).ParseObject()
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got := string(obj.Str); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameEscapes(t *testing.T) {
	if got := unescapeName([]byte("A#20B")); got != "A B" {
		t.Errorf("expected 'A B', got %q", got)
	}
	if got := unescapeName([]byte("NoEscapes")); got != "NoEscapes" {
		t.Errorf("expected 'NoEscapes', got %q", got)
	}
}

func TestDictWithStream(t *testing.T) {
	data := []byte("<< /Length 7 /Filter /ASCIIHexDecode >>\nstream\n414243>\nendstream")
	obj, err := NewParser(data, 0).ParseObject()
	if err != nil {
		t.Fatal(err)
	}
	if obj.Kind != KindStream {
		t.Fatalf("expected stream, got kind %d", obj.Kind)
	}
	out, err := DecodeStream(obj.Dict, obj.Stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "ABC" {
		t.Errorf("decoded stream = %q", out)
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	_, err := Load([]byte("hello world"))
	if !errors.Is(err, ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
}

func TestDocumentInfo(t *testing.T) {
	d := pdftest.NewDoc()
	d.Info(`/Title (\223Title\224) /Producer (Go) /Trapped /False /Pages 3`)
	doc, err := Load(d.Build("BT ET"))
	if err != nil {
		t.Fatal(err)
	}
	info := doc.Info()
	if got := string(info["Title"]); got != "\x93Title\x94" {
		t.Errorf("Title = %q", got)
	}
	if got := string(info["Producer"]); got != "Go" {
		t.Errorf("Producer = %q", got)
	}
	if got := string(info["Trapped"]); got != "False" {
		t.Errorf("Trapped = %q", got)
	}
	if _, ok := info["Pages"]; ok {
		t.Error("numeric entries should be skipped")
	}
}

func TestPages(t *testing.T) {
	doc, err := Load(pdftest.BuildPDF("BT ET", "BT ET"), WithoutCache())
	if err != nil {
		t.Fatal(err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if mb := pages[0].MediaBox; mb.Width() != 612 || mb.Height() != 792 {
		t.Errorf("expected 612x792, got %.0fx%.0f", mb.Width(), mb.Height())
	}
	if pages[0].Resources == nil {
		t.Error("page resources missing")
	}
}
