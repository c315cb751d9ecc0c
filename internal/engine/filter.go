package engine

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// maxDecodedSize bounds the output of any single filter (256 MB).
const maxDecodedSize = 256 << 20

// imageFilters are left encoded; their bytes are only useful to image writers.
var imageFilters = map[string]bool{
	"DCTDecode": true, "DCT": true,
	"CCITTFaxDecode": true, "CCF": true,
	"JBIG2Decode": true,
	"JPXDecode":   true,
}

// filterChain returns the filters of a stream and their decode parameters,
// padded so both slices have the same length.
func filterChain(d Dict) ([]string, []Dict) {
	f, ok := d["Filter"]
	if !ok {
		return nil, nil
	}
	var names []string
	switch f.Kind {
	case KindName:
		names = []string{f.Name}
	case KindArray:
		for _, o := range f.Array {
			if o.Kind == KindName {
				names = append(names, o.Name)
			}
		}
	}
	parms := make([]Dict, len(names))
	if p, ok := d["DecodeParms"]; ok {
		switch p.Kind {
		case KindDict:
			if len(parms) > 0 {
				parms[0] = p.Dict
			}
		case KindArray:
			for i, o := range p.Array {
				if i < len(parms) && o.Kind == KindDict {
					parms[i] = o.Dict
				}
			}
		}
	}
	return names, parms
}

// DecodeStream applies the stream's filter chain. Decoding stops at the
// first image filter and returns the still-encoded bytes.
func DecodeStream(d Dict, data []byte) ([]byte, error) {
	names, parms := filterChain(d)
	out := data
	for i, name := range names {
		if imageFilters[name] {
			return out, nil
		}
		var err error
		out, err = applyFilter(name, parms[i], out)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return out, nil
}

func applyFilter(name string, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := readLimited(zlibReader(data))
		if err != nil {
			return nil, err
		}
		return unpredict(parms, out)
	case "LZWDecode", "LZW":
		r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer r.Close()
		out, err := readLimited(r, nil)
		if err != nil {
			return nil, err
		}
		return unpredict(parms, out)
	case "ASCII85Decode", "A85":
		if end := bytes.Index(data, []byte("~>")); end >= 0 {
			data = data[:end]
		}
		return readLimited(ascii85.NewDecoder(bytes.NewReader(data)), nil)
	case "ASCIIHexDecode", "AHx":
		return decodeASCIIHex(data), nil
	case "RunLengthDecode", "RL":
		return decodeRunLength(data)
	case "Crypt":
		return data, nil
	}
	return nil, fmt.Errorf("unsupported filter")
}

func zlibReader(data []byte) (io.Reader, error) {
	return zlib.NewReader(bytes.NewReader(data))
}

func readLimited(r io.Reader, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil && len(out) == 0 {
		return nil, err
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}

// predictorGeometry returns the row length in bytes and bytes per pixel.
func predictorGeometry(parms Dict) (row, bpp int) {
	colors, bits, columns := int64(1), int64(8), int64(1)
	if v, ok := parms.IntValue("Colors"); ok && v > 0 {
		colors = v
	}
	if v, ok := parms.IntValue("BitsPerComponent"); ok && v > 0 {
		bits = v
	}
	if v, ok := parms.IntValue("Columns"); ok && v > 0 {
		columns = v
	}
	bpp = int((colors*bits + 7) / 8)
	return int((columns*colors*bits + 7) / 8), bpp
}

func unpredict(parms Dict, data []byte) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	pred, _ := parms.IntValue("Predictor")
	switch {
	case pred == 2:
		return unpredictTIFF(parms, data), nil
	case pred >= 10:
		return unpredictPNG(parms, data), nil
	}
	return data, nil
}

func unpredictTIFF(parms Dict, data []byte) []byte {
	row, bpp := predictorGeometry(parms)
	out := append([]byte(nil), data...)
	for start := 0; start < len(out); start += row {
		end := min(start+row, len(out))
		for i := start + bpp; i < end; i++ {
			out[i] += out[i-bpp]
		}
	}
	return out
}

// unpredictPNG reverses the per-row PNG filters (None, Sub, Up, Average, Paeth).
func unpredictPNG(parms Dict, data []byte) []byte {
	row, bpp := predictorGeometry(parms)
	stride := row + 1
	rows := len(data) / stride
	out := make([]byte, rows*row)
	prev := make([]byte, row)
	for r := 0; r < rows; r++ {
		kind := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		dst := out[r*row : (r+1)*row]
		for i := range dst {
			var left, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				dst[i] = src[i]
			}
		}
		copy(prev, dst)
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// decodeASCIIHex decodes pairs of hex digits up to '>'; whitespace is ignored.
func decodeASCIIHex(data []byte) []byte {
	var out []byte
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		if half {
			out = append(out, hi<<4|hexDigit(c))
		} else {
			hi = hexDigit(c)
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

// decodeRunLength decodes PackBits data: 0-127 copies n+1 literal bytes,
// 129-255 repeats the next byte 257-n times, 128 ends the data.
func decodeRunLength(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return buf.Bytes(), nil
		case n < 128:
			end := min(i+n+1, len(data))
			buf.Write(data[i:end])
			i = end
		default:
			if i >= len(data) {
				return buf.Bytes(), nil
			}
			buf.Write(bytes.Repeat(data[i:i+1], 257-n))
			i++
		}
		if buf.Len() > maxDecodedSize {
			return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
		}
	}
	return buf.Bytes(), nil
}
