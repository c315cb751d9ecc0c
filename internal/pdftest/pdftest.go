// Package pdftest writes small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Builder assembles a PDF with a classic xref table. Objects are numbered
// in the order they are added, starting at 1.
type Builder struct {
	objs []string
	// Trailer holds extra trailer entries, e.g. " /Encrypt 9 0 R".
	Trailer string
}

// Add appends an object body and returns its number.
func (b *Builder) Add(body string) int {
	b.objs = append(b.objs, body)
	return len(b.objs)
}

// Set replaces the body of object num.
func (b *Builder) Set(num int, body string) {
	b.objs[num-1] = body
}

// Stream formats a stream object with the right /Length.
func Stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Build writes the file with root as the catalog.
func (b *Builder) Build(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R%s >>\n", len(b.objs)+1, root, b.Trailer)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Doc is a Builder for documents whose US Letter pages share a WinAnsi
// Helvetica font named F1.
type Doc struct {
	Builder
	// Font is the object number of F1.
	Font int
	// Resources is spliced into every page's /Resources dictionary.
	Resources string
}

// NewDoc returns an empty document.
func NewDoc() *Doc {
	d := &Doc{}
	d.Font = d.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	return d
}

// Info adds a document information dictionary with the given entries.
func (d *Doc) Info(entries string) {
	n := d.Add("<< " + entries + " >>")
	d.Trailer += fmt.Sprintf(" /Info %d 0 R", n)
}

// Build adds one page per content stream and returns the file.
func (d *Doc) Build(contents ...string) []byte {
	pages := d.Add("")
	var kids []string
	for _, c := range contents {
		cs := d.Add(Stream("", c))
		page := d.Add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> %s >> >>",
			pages, cs, d.Font, d.Resources))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	d.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	catalog := d.Add(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	return d.Builder.Build(catalog)
}

// BuildPDF creates a document with one page per content stream.
func BuildPDF(contents ...string) []byte {
	return NewDoc().Build(contents...)
}
