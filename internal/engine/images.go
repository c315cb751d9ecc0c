package engine

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
)

// ImageWriter saves image XObjects into a directory. JPEG streams are
// copied as-is; uncompressed 8-bit gray and RGB samples become BMP files.
// Other formats are skipped.
type ImageWriter struct {
	dir  string
	used map[string]bool
}

// NewImageWriter creates dir if needed.
func NewImageWriter(dir string) (*ImageWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &ImageWriter{dir: dir, used: make(map[string]bool)}, nil
}

// Export writes img and returns the file name, or "" when the image
// format is not supported.
func (w *ImageWriter) Export(doc *Document, img *Image) (string, error) {
	if img.Stream == nil {
		return "", nil
	}
	d := img.Stream.Dict
	names, _ := filterChain(d)
	if len(names) > 0 && (names[len(names)-1] == "DCTDecode" || names[len(names)-1] == "DCT") {
		data, err := DecodeStream(d, img.Stream.Stream)
		if err != nil {
			return "", err
		}
		return w.write(img.Name, ".jpg", func(f *os.File) error {
			_, err := f.Write(data)
			return err
		})
	}

	m, ok := doc.rasterImage(d, img.Stream.Stream)
	if !ok {
		return "", nil
	}
	return w.write(img.Name, ".bmp", func(f *os.File) error { return bmp.Encode(f, m) })
}

func (w *ImageWriter) write(name, ext string, body func(*os.File) error) (string, error) {
	file := name + ext
	for i := 1; w.used[file]; i++ {
		file = fmt.Sprintf("%s.%d%s", name, i, ext)
	}
	w.used[file] = true

	f, err := os.Create(filepath.Join(w.dir, file))
	if err != nil {
		return "", fmt.Errorf("creating image: %w", err)
	}
	if err := body(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing image %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing image %s: %w", file, err)
	}
	return file, nil
}

// rasterImage decodes 8-bit DeviceGray or DeviceRGB samples.
func (doc *Document) rasterImage(d Dict, raw []byte) (image.Image, bool) {
	width, _ := d.IntValue("Width")
	height, _ := d.IntValue("Height")
	bpc, _ := d.IntValue("BitsPerComponent")
	cs, _ := doc.Resolve(d["ColorSpace"])
	if width <= 0 || height <= 0 || bpc != 8 || cs.Kind != KindName {
		return nil, false
	}
	data, err := DecodeStream(d, raw)
	if err != nil {
		return nil, false
	}
	w, h := int(width), int(height)
	rect := image.Rect(0, 0, w, h)
	switch cs.Name {
	case "DeviceGray", "G":
		if len(data) < w*h {
			return nil, false
		}
		m := image.NewGray(rect)
		copy(m.Pix, data)
		return m, true
	case "DeviceRGB", "RGB":
		if len(data) < 3*w*h {
			return nil, false
		}
		m := image.NewRGBA(rect)
		for i := range w * h {
			m.Set(i%w, i/w, color.RGBA{data[3*i], data[3*i+1], data[3*i+2], 0xff})
		}
		return m, true
	}
	return nil, false
}
