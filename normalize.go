package pdf2xml

import (
	"fmt"

	"github.com/beevik/etree"
)

// Element names of the engine's XML output.
const (
	tagDocument = "Document"
	tagDocInfo  = "DocInfo"
	tagPage     = "page"
	tagFigure   = "figure"
	tagTextBox  = "textbox"
	tagTextLine = "textline"
	tagWord     = "word"
	tagText     = "text"
)

// Normalize inserts the metadata block into doc and moves word elements
// ahead of text elements in every page, every figure of a page and every
// text line of a page's text boxes. doc is modified in place and returned.
func Normalize(doc *etree.Document, info DocInfo) (*etree.Document, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrMalformedTree
	}
	if err := InsertDocInfo(doc, info); err != nil {
		return nil, err
	}
	for _, page := range root.SelectElements(tagPage) {
		Reorder(page)
		for _, fig := range page.SelectElements(tagFigure) {
			Reorder(fig)
		}
		for _, box := range page.SelectElements(tagTextBox) {
			for _, line := range box.SelectElements(tagTextLine) {
				Reorder(line)
			}
		}
	}
	return doc, nil
}

// InsertDocInfo builds
//
//	<Document>
//	<DocInfo>
//	<Title>...</Title>
//	...
//	</DocInfo>
//	</Document>
//
// and makes it the first element child of the root.
func InsertDocInfo(doc *etree.Document, info DocInfo) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("inserting metadata: %w", ErrMalformedTree)
	}
	document := etree.NewElement(tagDocument)
	document.SetText("\n")
	docInfo := document.CreateElement(tagDocInfo)
	docInfo.SetText("\n")
	for _, f := range info.Fields() {
		e := docInfo.CreateElement(f.Name)
		e.SetText(f.Value)
		docInfo.AddChild(etree.NewText("\n"))
	}
	document.AddChild(etree.NewText("\n"))

	at := len(root.Child)
	if first := root.ChildElements(); len(first) > 0 {
		at = first[0].Index()
	}
	root.InsertChildAt(at, document)
	root.InsertChildAt(at+1, etree.NewText("\n"))
	return nil
}

// Reorder moves all word children of e, then all text children, to the
// end of e, each group in its original order. Character data directly
// following a moved element moves with it. Other children keep their
// positions; e is unchanged when it has neither kind of child.
func Reorder(e *etree.Element) {
	var words, texts []etree.Token
	for i := 0; i < len(e.Child); {
		el, ok := e.Child[i].(*etree.Element)
		if !ok || (el.Tag != tagWord && el.Tag != tagText) {
			i++
			continue
		}
		moved := []etree.Token{e.RemoveChildAt(i)}
		if i < len(e.Child) {
			if _, ok := e.Child[i].(*etree.CharData); ok {
				moved = append(moved, e.RemoveChildAt(i))
			}
		}
		if el.Tag == tagWord {
			words = append(words, moved...)
		} else {
			texts = append(texts, moved...)
		}
	}
	for _, t := range append(words, texts...) {
		e.AddChild(t)
	}
}
