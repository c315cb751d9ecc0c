package pdf2xml

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Candidate is one encoding tried by [Resolve].
type Candidate struct {
	Name   string
	decode func([]byte) (string, error)
}

// Decode decodes raw strictly: any invalid input is an error.
func (c Candidate) Decode(raw []byte) (string, error) {
	return c.decode(raw)
}

var candidates = []Candidate{
	{"utf-8", decodeUTF8},
	{"utf-8-sig", decodeUTF8Sig},
	{"utf-16", decodeUTF16},
	{"windows-1252", decodeWindows1252},
	{"ascii", decodeASCII},
}

// Candidates returns the encodings tried by [Resolve], in order. The
// result is a copy.
func Candidates() []Candidate {
	return slices.Clone(candidates)
}

var errInvalid = errors.New("invalid byte sequence")

// Resolve decodes raw with the first candidate that accepts it and returns
// the text together with the candidate's name. It fails with
// [ErrNotDecodable] when no candidate succeeds.
func Resolve(raw []byte) (text, encoding string, err error) {
	for _, c := range candidates {
		if s, err := c.decode(raw); err == nil {
			return s, c.Name, nil
		}
	}
	return "", "", fmt.Errorf("%w: % x", ErrNotDecodable, truncate(raw, 16))
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// decodeUTF8 keeps a leading byte order mark as U+FEFF.
func decodeUTF8(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", errInvalid
	}
	return string(raw), nil
}

func decodeUTF8Sig(raw []byte) (string, error) {
	if len(raw) >= 3 && raw[0] == 0xef && raw[1] == 0xbb && raw[2] == 0xbf {
		raw = raw[3:]
	}
	return decodeUTF8(raw)
}

// decodeUTF16 requires a byte order mark. Without it any even-length
// legacy string would pass as UTF-16. Odd lengths and unpaired surrogates
// are errors.
func decodeUTF16(raw []byte) (string, error) {
	if len(raw)%2 != 0 || len(raw) < 2 {
		return "", errInvalid
	}
	var order unicode.Endianness
	switch {
	case raw[0] == 0xff && raw[1] == 0xfe:
		order = unicode.LittleEndian
	case raw[0] == 0xfe && raw[1] == 0xff:
		order = unicode.BigEndian
	default:
		return "", errInvalid
	}
	if !validUTF16(raw, order == unicode.BigEndian) {
		return "", errInvalid
	}
	out, err := unicode.UTF16(order, unicode.ExpectBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func validUTF16(raw []byte, bigEndian bool) bool {
	unit := func(i int) uint16 {
		if bigEndian {
			return uint16(raw[i])<<8 | uint16(raw[i+1])
		}
		return uint16(raw[i+1])<<8 | uint16(raw[i])
	}
	for i := 0; i < len(raw); i += 2 {
		u := unit(i)
		switch {
		case u >= 0xdc00 && u <= 0xdfff:
			return false
		case u >= 0xd800 && u <= 0xdbff:
			if i+2 >= len(raw) {
				return false
			}
			if r := utf16.DecodeRune(rune(u), rune(unit(i+2))); r == utf8.RuneError {
				return false
			}
			i += 2
		}
	}
	return true
}

// decodeWindows1252 rejects the five bytes the code page leaves undefined.
func decodeWindows1252(raw []byte) (string, error) {
	for _, b := range raw {
		switch b {
		case 0x81, 0x8d, 0x8f, 0x90, 0x9d:
			return "", errInvalid
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeASCII(raw []byte) (string, error) {
	for _, b := range raw {
		if b >= 0x80 {
			return "", errInvalid
		}
	}
	return string(raw), nil
}
