// Package pdf2xml extracts text and layout from PDF files and normalizes
// the XML the extraction produces.
//
// A run hands every input to an [Engine], which writes one text, HTML, XML
// or tag document:
//
//	err := pdf2xml.Run(ctx, pdf2xml.Config{
//	    Files:   []string{"report.pdf"},
//	    Outfile: "report.xml",
//	    Layout:  pdf2xml.DefaultLayoutParams(),
//	})
//
// The output type follows the outfile suffix (.htm, .html, .xml, .tag)
// unless one is given. XML and tag output is then parsed back, and
// [Normalize] adds a Document/DocInfo element built from the document
// information dictionary and moves word elements ahead of text elements
// in pages, page figures and the text lines of page text boxes. The tree
// is rewritten in place as UTF-8 with explicit end tags.
//
// Metadata strings are decoded by [Resolve], which tries UTF-8,
// UTF-8 with signature, UTF-16, Windows-1252 and ASCII in that order and
// accepts the first strict decode. A present field that none of them
// accepts fails the run with [ErrNotDecodable] before the output is
// touched.
//
// Inputs ending in .html or .htm are printed to PDF with headless Chrome
// before extraction; see [Pipeline.Renderer] to supply another [Renderer].
package pdf2xml
