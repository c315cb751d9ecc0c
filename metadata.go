package pdf2xml

import (
	"fmt"
	"strings"
)

// RawInfo is the document information dictionary as reported by the
// engine: entry name to undecoded bytes. A key is present exactly when
// the document has that entry.
type RawInfo map[string][]byte

// DocInfo holds the four metadata fields written into the output tree.
type DocInfo struct {
	Title        string
	Producer     string
	Creator      string
	CreationDate string
}

// Field is a named DocInfo value.
type Field struct {
	Name  string
	Value string
}

// Fields returns the fields in output order.
func (d DocInfo) Fields() []Field {
	return []Field{
		{"Title", d.Title},
		{"Producer", d.Producer},
		{"Creator", d.Creator},
		{"CreationDate", d.CreationDate},
	}
}

// RenderMetadata decodes the fields of info with [Resolve]. Absent fields
// are empty; a present field that cannot be decoded fails the whole call.
func RenderMetadata(info RawInfo) (DocInfo, error) {
	var d DocInfo
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"Title", &d.Title},
		{"Producer", &d.Producer},
		{"Creator", &d.Creator},
		{"CreationDate", &d.CreationDate},
	} {
		raw, ok := info[f.name]
		if !ok {
			continue
		}
		text, _, err := Resolve(raw)
		if err != nil {
			return DocInfo{}, fmt.Errorf("metadata field %s: %w", f.name, err)
		}
		*f.dst = strings.ToValidUTF8(text, "�")
	}
	return d, nil
}
