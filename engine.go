package pdf2xml

import (
	"context"
	"io"

	"github.com/porticus-lab/go-pdf2xml/internal/engine"
)

// Source is one input document handed to an [Engine].
type Source struct {
	Name string
	Data []byte
}

// LayoutParams tunes layout analysis. Distances are relative to the
// size of the characters involved.
type LayoutParams struct {
	LineOverlap    float64
	CharMargin     float64
	WordMargin     float64
	LineMargin     float64
	BoxesFlow      *float64 // nil disables flow ordering
	DetectVertical bool
	AllTexts       bool
}

// DefaultLayoutParams returns line overlap 0.5, char margin 2.0, word
// margin 0.1, line margin 0.5 and boxes flow 0.5.
func DefaultLayoutParams() *LayoutParams {
	p := engine.DefaultParams()
	return &LayoutParams{
		LineOverlap: p.LineOverlap,
		CharMargin:  p.CharMargin,
		WordMargin:  p.WordMargin,
		LineMargin:  p.LineMargin,
		BoxesFlow:   p.BoxesFlow,
	}
}

// ExtractOptions controls a single engine invocation.
type ExtractOptions struct {
	OutputType OutputType
	Codec      string
	Layout     *LayoutParams // nil disables layout analysis
	Pages      []int         // 0-based; nil selects every page
	MaxPages   int
	Password   string
	Rotation   int
	Scale      float64
	LayoutMode string
	OutputDir  string

	StripControl   bool
	DisableCaching bool
}

// Engine renders PDF inputs into one output document.
//
// Extract writes the output to w and returns the information dictionary
// of the first input that has a non-empty one.
type Engine interface {
	Extract(ctx context.Context, inputs []Source, w io.Writer, opts ExtractOptions) (RawInfo, error)
}

// DefaultEngine returns the built-in pure-Go extraction engine.
func DefaultEngine() Engine { return builtinEngine{} }

type builtinEngine struct{}

func (builtinEngine) Extract(ctx context.Context, inputs []Source, w io.Writer, opts ExtractOptions) (RawInfo, error) {
	in := make([]engine.Input, len(inputs))
	for i, s := range inputs {
		in[i] = engine.Input{Name: s.Name, Data: s.Data}
	}
	var params *engine.Params
	if l := opts.Layout; l != nil {
		params = &engine.Params{
			LineOverlap:    l.LineOverlap,
			CharMargin:     l.CharMargin,
			WordMargin:     l.WordMargin,
			LineMargin:     l.LineMargin,
			BoxesFlow:      l.BoxesFlow,
			DetectVertical: l.DetectVertical,
			AllTexts:       l.AllTexts,
		}
	}
	info, err := engine.Extract(ctx, in, w, engine.Options{
		OutputType:   string(opts.OutputType),
		Codec:        opts.Codec,
		Params:       params,
		Pages:        opts.Pages,
		MaxPages:     opts.MaxPages,
		Password:     opts.Password,
		Rotation:     opts.Rotation,
		Scale:        opts.Scale,
		LayoutMode:   opts.LayoutMode,
		OutputDir:    opts.OutputDir,
		StripControl: opts.StripControl,
		NoCache:      opts.DisableCaching,
	})
	if err != nil {
		return nil, err
	}
	return RawInfo(info), nil
}
