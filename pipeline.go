package pdf2xml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/porticus-lab/go-pdf2xml/internal/logger"
	"github.com/porticus-lab/go-pdf2xml/internal/render"
)

// Stdout is the output path that selects standard output.
const Stdout = "-"

// OutputType selects the format the engine writes.
type OutputType string

// Output types.
const (
	OutputText OutputType = "text"
	OutputHTML OutputType = "html"
	OutputXML  OutputType = "xml"
	OutputTag  OutputType = "tag"
)

func (t OutputType) valid() bool {
	switch t {
	case OutputText, OutputHTML, OutputXML, OutputTag:
		return true
	}
	return false
}

// tree reports whether output of this type is normalized.
func (t OutputType) tree() bool { return t == OutputXML || t == OutputTag }

var suffixTypes = []struct {
	suffix string
	typ    OutputType
}{
	{".htm", OutputHTML},
	{".html", OutputHTML},
	{".xml", OutputXML},
	{".tag", OutputTag},
}

// InferOutputType returns the type implied by the suffix of outfile when t
// is text or empty and the output is a file. Otherwise t is returned.
func InferOutputType(t OutputType, outfile string) OutputType {
	if t == "" {
		t = OutputText
	}
	if t != OutputText || outfile == "" || outfile == Stdout {
		return t
	}
	for _, s := range suffixTypes {
		if strings.HasSuffix(outfile, s.suffix) {
			return s.typ
		}
	}
	return t
}

// RenderOptions configures the headless browser used for HTML inputs.
type RenderOptions struct {
	ChromePath   string
	NoSandbox    bool
	AutoDownload bool
	Timeout      time.Duration
}

// Config describes one run of the tool.
type Config struct {
	Files      []string
	Outfile    string // Stdout or "" writes to standard output
	OutputType OutputType
	Codec      string
	Layout     *LayoutParams
	Pages      []int // 0-based
	MaxPages   int
	Password   string
	Rotation   int
	Scale      float64
	LayoutMode string
	OutputDir  string

	StripControl   bool
	DisableCaching bool

	Render RenderOptions
}

// Renderer prints an HTML file to PDF.
type Renderer interface {
	RenderFile(ctx context.Context, path string) ([]byte, error)
}

// Pipeline runs the engine and normalizes its tree output.
type Pipeline struct {
	// Engine defaults to DefaultEngine.
	Engine Engine
	// Renderer handles .html and .htm inputs. When nil a headless browser
	// is started on the first such input and stopped when Run returns.
	Renderer Renderer
	// Stdout receives output when the outfile is Stdout. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// Run executes cfg with a zero Pipeline.
func Run(ctx context.Context, cfg Config) error {
	var p Pipeline
	return p.Run(ctx, cfg)
}

// Run extracts cfg.Files into cfg.Outfile. For xml and tag output the
// written document is parsed, given a DocInfo block, reordered and
// rewritten as UTF-8. If metadata decoding or parsing fails the engine
// output is left as written.
func (p *Pipeline) Run(ctx context.Context, cfg Config) error {
	if len(cfg.Files) == 0 {
		return ErrNoInput
	}
	typ := InferOutputType(cfg.OutputType, cfg.Outfile)
	if !typ.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOutputType, typ)
	}
	outfile := cfg.Outfile
	if outfile == "" {
		outfile = Stdout
	}
	codec := cfg.Codec
	if codec == "" || outfile == Stdout {
		codec = "utf-8"
	}

	inputs, err := p.load(ctx, cfg)
	if err != nil {
		return err
	}
	eng := p.Engine
	if eng == nil {
		eng = DefaultEngine()
	}
	opts := ExtractOptions{
		OutputType:     typ,
		Codec:          codec,
		Layout:         cfg.Layout,
		Pages:          cfg.Pages,
		MaxPages:       cfg.MaxPages,
		Password:       cfg.Password,
		Rotation:       cfg.Rotation,
		Scale:          cfg.Scale,
		LayoutMode:     cfg.LayoutMode,
		OutputDir:      cfg.OutputDir,
		StripControl:   cfg.StripControl,
		DisableCaching: cfg.DisableCaching,
	}

	logger.Section("Extraction")
	logger.Debug("output type %s, codec %s, outfile %s", typ, codec, outfile)
	var (
		raw  []byte
		info RawInfo
	)
	if outfile == Stdout {
		var buf bytes.Buffer
		info, err = eng.Extract(ctx, inputs, &buf, opts)
		raw = buf.Bytes()
	} else {
		info, err = extractToFile(ctx, eng, inputs, outfile, opts)
	}
	if err != nil {
		return err
	}

	if !typ.tree() {
		if outfile == Stdout {
			_, err = p.stdout().Write(raw)
		}
		return err
	}

	logger.Section("Normalization")
	meta, err := RenderMetadata(info)
	if err != nil {
		return err
	}
	if outfile != Stdout {
		if raw, err = os.ReadFile(outfile); err != nil {
			return fmt.Errorf("reading engine output: %w", err)
		}
	}
	doc, err := ParseTree(raw)
	if err != nil {
		return err
	}
	if _, err := Normalize(doc, meta); err != nil {
		return err
	}
	setDeclaredEncoding(doc, "utf-8")
	doc.WriteSettings = etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	if outfile == Stdout {
		_, err = doc.WriteTo(p.stdout())
		return err
	}
	if err := doc.WriteToFile(outfile); err != nil {
		return fmt.Errorf("rewriting %s: %w", outfile, err)
	}
	logger.Info("wrote %s", outfile)
	return nil
}

func (p *Pipeline) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func extractToFile(ctx context.Context, eng Engine, inputs []Source, path string, opts ExtractOptions) (RawInfo, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	info, err := eng.Extract(ctx, inputs, f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	return info, err
}

// load reads every input, printing HTML files to PDF first.
func (p *Pipeline) load(ctx context.Context, cfg Config) ([]Source, error) {
	r := p.Renderer
	var browser *chromeRenderer
	defer func() {
		if browser != nil {
			browser.Close()
		}
	}()

	inputs := make([]Source, 0, len(cfg.Files))
	for _, name := range cfg.Files {
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".html" && ext != ".htm" {
			data, err := os.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("reading input: %w", err)
			}
			inputs = append(inputs, Source{Name: name, Data: data})
			continue
		}
		if r == nil {
			b, err := newChromeRenderer(cfg.Render)
			if err != nil {
				return nil, err
			}
			browser, r = b, b
		}
		logger.Debug("rendering %s to PDF", name)
		data, err := r.RenderFile(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		inputs = append(inputs, Source{Name: name, Data: data})
	}
	return inputs, nil
}

type chromeRenderer struct {
	conv *render.Converter
}

func newChromeRenderer(o RenderOptions) (*chromeRenderer, error) {
	var opts []render.Option
	if o.ChromePath != "" {
		opts = append(opts, render.WithChromePath(o.ChromePath))
	}
	if o.NoSandbox {
		opts = append(opts, render.WithNoSandbox())
	}
	if o.AutoDownload {
		opts = append(opts, render.WithAutoDownload())
	}
	if o.Timeout > 0 {
		opts = append(opts, render.WithTimeout(o.Timeout))
	}
	conv, err := render.NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	return &chromeRenderer{conv: conv}, nil
}

func (c *chromeRenderer) RenderFile(ctx context.Context, path string) ([]byte, error) {
	return c.conv.ConvertFile(ctx, path)
}

func (c *chromeRenderer) Close() error { return c.conv.Close() }

// ParseTree parses engine output in any codec known to the HTML encoding
// index. A document without a root element is malformed.
func ParseTree(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(label string, r io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(r), nil
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}
	if doc.Root() == nil {
		return nil, ErrMalformedTree
	}
	if err := checkTopLevel(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// checkTopLevel rejects a second root element and text outside the root.
func checkTopLevel(doc *etree.Document) error {
	roots := 0
	for _, t := range doc.Child {
		switch t := t.(type) {
		case *etree.Element:
			if roots++; roots > 1 {
				return fmt.Errorf("%w: junk after document element <%s>", ErrMalformedTree, t.Tag)
			}
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return fmt.Errorf("%w: text outside the document element", ErrMalformedTree)
			}
		}
	}
	return nil
}

var encodingDecl = regexp.MustCompile(`encoding=("[^"]*"|'[^']*')`)

// setDeclaredEncoding rewrites the encoding named by the XML declaration.
func setDeclaredEncoding(doc *etree.Document, name string) {
	for _, t := range doc.Child {
		pi, ok := t.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		if encodingDecl.MatchString(pi.Inst) {
			pi.Inst = encodingDecl.ReplaceAllString(pi.Inst, `encoding="`+name+`"`)
		}
		return
	}
}
