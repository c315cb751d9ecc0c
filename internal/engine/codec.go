package engine

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrUnsupportedCodec is returned for output codecs without a known encoder.
var ErrUnsupportedCodec = errors.New("engine: unsupported codec")

// encodeWriter wraps w so that UTF-8 written to it comes out in codec.
// Characters the codec cannot represent become character references in
// markup outputs and a replacement byte otherwise. The returned name is
// the canonical codec name.
func encodeWriter(w io.Writer, codec string, markup bool) (io.WriteCloser, string, error) {
	enc, err := htmlindex.Get(codec)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, codec)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = codec
	}
	e := enc.NewEncoder()
	if markup {
		e = encoding.HTMLEscapeUnsupported(e)
	} else {
		e = encoding.ReplaceUnsupported(e)
	}
	return transform.NewWriter(w, e), name, nil
}
