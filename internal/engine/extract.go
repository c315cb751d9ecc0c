package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/porticus-lab/go-pdf2xml/internal/logger"
)

// Output types understood by Extract.
const (
	TypeText = "text"
	TypeHTML = "html"
	TypeXML  = "xml"
	TypeTag  = "tag"
)

// Input is one PDF to extract, already read into memory.
type Input struct {
	Name string
	Data []byte
}

// Options controls an extraction run.
type Options struct {
	OutputType   string
	Codec        string
	Params       *Params // nil disables layout analysis
	Pages        []int   // 0-based; nil selects all
	MaxPages     int     // per input; 0 means no limit
	Password     string
	Rotation     int
	Scale        float64
	LayoutMode   string
	OutputDir    string
	StripControl bool
	NoCache      bool
}

// Extract renders all inputs into one output document written to w. It
// returns the document information of the first input that has any.
func Extract(ctx context.Context, inputs []Input, w io.Writer, opts Options) (map[string][]byte, error) {
	ew, codec, err := encodeWriter(w, opts.Codec, opts.OutputType != TypeText)
	if err != nil {
		return nil, err
	}
	conv, err := newConverter(opts, bufio.NewWriter(ew), codec)
	if err != nil {
		return nil, err
	}

	if err := conv.begin(); err != nil {
		return nil, err
	}
	var info map[string][]byte
	pageID := 1
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Section("Extract " + in.Name)
		var loadOpts []LoadOption
		if opts.NoCache {
			loadOpts = append(loadOpts, WithoutCache())
		}
		doc, err := Load(in.Data, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
		logger.Debug("loaded %s", doc)
		if doc.Encrypted() {
			if opts.Password != "" {
				logger.Warn("a password was given but decryption is not supported")
			}
			return nil, fmt.Errorf("%s: %w", in.Name, ErrEncrypted)
		}
		if i := doc.Info(); len(info) == 0 && len(i) > 0 {
			info = i
		}
		n, err := extractDocument(ctx, doc, conv, opts, pageID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
		pageID += n
	}
	if err := conv.end(); err != nil {
		return nil, err
	}
	if err := ew.Close(); err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	if info == nil {
		info = map[string][]byte{}
	}
	return info, nil
}

func newConverter(opts Options, w *bufio.Writer, codec string) (converter, error) {
	b := base{w: w, codec: codec}
	if opts.OutputDir != "" {
		iw, err := NewImageWriter(opts.OutputDir)
		if err != nil {
			return nil, err
		}
		b.images = iw
	}
	margin := DefaultParams().WordMargin
	if opts.Params != nil {
		margin = opts.Params.WordMargin
	}
	switch opts.OutputType {
	case TypeText, "":
		return &textConverter{base: b}, nil
	case TypeXML:
		return &xmlConverter{base: b, stripControl: opts.StripControl, wordMargin: margin}, nil
	case TypeHTML:
		scale := opts.Scale
		if scale <= 0 {
			scale = 1
		}
		return &htmlConverter{base: b, scale: scale, mode: opts.LayoutMode}, nil
	case TypeTag:
		return &tagConverter{base: b}, nil
	}
	return nil, fmt.Errorf("unknown output type %q", opts.OutputType)
}

// extractDocument renders the selected pages of doc and returns how many
// were rendered.
func extractDocument(ctx context.Context, doc *Document, conv converter, opts Options, firstID int) (int, error) {
	pages, err := doc.Pages()
	if err != nil {
		return 0, err
	}
	conv.setDocument(doc)
	selected := make(map[int]bool, len(opts.Pages))
	for _, p := range opts.Pages {
		selected[p] = true
	}
	fonts := make(map[*Object]*Font)
	n := 0
	for i, page := range pages {
		if opts.Pages != nil && !selected[i] {
			continue
		}
		if opts.MaxPages > 0 && n >= opts.MaxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		lp, err := doc.layoutPage(page, firstID+n, opts.Rotation, opts.Params, fonts)
		if err != nil {
			return n, fmt.Errorf("page %d: %w", i+1, err)
		}
		logger.Debug("page %d: %d boxes, %d other items", i+1, len(lp.Boxes), len(lp.Items))
		if err := conv.page(lp); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// layoutPage interprets a page in a coordinate system rotated by the
// page's /Rotate plus rotation, with the origin at the bottom-left.
func (doc *Document) layoutPage(page Page, id, rotation int, params *Params, fonts map[*Object]*Font) (*LayoutPage, error) {
	rot := ((page.Rotate+rotation)%360 + 360) % 360
	mb := page.MediaBox
	var ctm matrix
	switch rot {
	case 90:
		ctm = matrix{0, -1, 1, 0, -mb.Y0, mb.X1}
	case 180:
		ctm = matrix{-1, 0, 0, -1, mb.X1, mb.Y1}
	case 270:
		ctm = matrix{0, 1, -1, 0, mb.Y1, -mb.X0}
	default:
		rot = 0
		ctm = matrix{1, 0, 0, 1, -mb.X0, -mb.Y0}
	}
	content, err := doc.Contents(page)
	if err != nil {
		return nil, err
	}
	var marks []Mark
	in := newInterpreter(doc, page.Resources, ctm, fonts, &marks)
	in.run(content)

	box := ctm.box(mb)
	lp := &LayoutPage{
		ID:     id,
		BBox:   Rect{0, 0, box.Width(), box.Height()},
		Rotate: rot,
		Marks:  marks,
	}
	if params != nil {
		lp.Boxes, lp.Items = analyze(in.items, params)
	} else {
		lp.Items = in.items
	}
	return lp, nil
}
