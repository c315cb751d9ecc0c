// Package cli implements the pdf2xml command line.
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	pdf2xml "github.com/porticus-lab/go-pdf2xml"
	"github.com/porticus-lab/go-pdf2xml/internal/config"
	"github.com/porticus-lab/go-pdf2xml/internal/logger"
)

// runPipeline is replaced in tests.
var runPipeline = pdf2xml.Run

type options struct {
	debug          bool
	disableCaching bool
	pageNumbers    []int
	pagenos        string
	maxPages       int
	password       string
	rotation       int

	noLayout       bool
	detectVertical bool
	charMargin     float64
	wordMargin     float64
	lineMargin     float64
	boxesFlow      string
	allTexts       bool

	outfile      string
	outputType   string
	codec        string
	outputDir    string
	layoutMode   string
	scale        float64
	stripControl bool

	configPath   string
	chromePath   string
	noSandbox    bool
	autoDownload bool
}

// NewRootCmd builds the pdf2xml command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "pdf2xml [flags] FILE...",
		Short: "Extract text and layout from PDF files",
		Long: `Extracts text from PDF files as plain text, HTML, XML or tagged XML.
XML and tag output gets a Document/DocInfo block with the document
metadata, and word elements are moved ahead of text elements.
Files ending in .html or .htm are printed to PDF with headless Chrome first.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetVerbose(o.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			cfg, err := o.build(cmd, file, args)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	cmd.PersistentFlags().BoolVarP(&o.debug, "debug", "d", false, "use debug logging level")
	f.BoolVarP(&o.disableCaching, "disable-caching", "C", false, "disable caching of resources such as fonts")

	f.IntSliceVar(&o.pageNumbers, "page-numbers", nil, "page numbers to extract, starting at 1 (comma separated or repeated)")
	f.StringVarP(&o.pagenos, "pagenos", "p", "", "comma separated list of page numbers to extract, starting at 1 (overrides --page-numbers)")
	f.IntVarP(&o.maxPages, "maxpages", "m", 0, "maximum number of pages to parse")
	f.StringVarP(&o.password, "password", "P", "", "decryption password for the PDF")
	f.IntVarP(&o.rotation, "rotation", "R", 0, "number of degrees to rotate the PDF before processing")

	f.BoolVarP(&o.noLayout, "no-laparams", "n", false, "skip layout analysis")
	f.BoolVarP(&o.detectVertical, "detect-vertical", "V", false, "consider vertical text during layout analysis")
	f.Float64VarP(&o.charMargin, "char-margin", "M", 2.0, "maximum distance between characters of the same line")
	f.Float64VarP(&o.wordMargin, "word-margin", "W", 0.1, "minimum gap between characters that separates words")
	f.Float64VarP(&o.lineMargin, "line-margin", "L", 0.5, "maximum distance between lines of the same text box")
	f.StringVarP(&o.boxesFlow, "boxes-flow", "F", "0.5", `weight of horizontal against vertical position when ordering text boxes, between -1.0 and 1.0, or "disabled"`)
	f.BoolVarP(&o.allTexts, "all-texts", "A", false, "run layout analysis on text inside figures too")

	f.StringVarP(&o.outfile, "outfile", "o", pdf2xml.Stdout, `output file, or "-" for stdout`)
	f.StringVarP(&o.outputType, "output_type", "t", "text", "type of output: text, html, xml or tag")
	f.StringVarP(&o.codec, "codec", "c", "utf-8", "text encoding of the output file")
	f.StringVarP(&o.outputDir, "output-dir", "O", "", "directory to extract images into")
	f.StringVarP(&o.layoutMode, "layoutmode", "Y", "normal", "HTML layout mode: normal, exact or loose")
	f.Float64VarP(&o.scale, "scale", "s", 1.0, "zoom factor for HTML output")
	f.BoolVarP(&o.stripControl, "strip-control", "S", false, "remove control characters from XML output")

	f.StringVar(&o.configPath, "config", "", "TOML file with default options (default ~/.config/pdf2xml/config.toml)")
	f.StringVar(&o.chromePath, "chrome-path", "", "Chrome or Chromium executable for HTML inputs")
	f.BoolVar(&o.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")
	f.BoolVar(&o.autoDownload, "auto-download-browser", false, "download Chromium when no browser is installed")

	cmd.AddCommand(newVersionCmd(), newInfoCmd())
	return cmd
}

// build merges flags over the config file over the built-in defaults.
func (o *options) build(cmd *cobra.Command, file *config.File, args []string) (pdf2xml.Config, error) {
	changed := cmd.Flags().Changed

	cfg := pdf2xml.Config{
		Files:          args,
		Outfile:        o.outfile,
		OutputType:     pdf2xml.OutputType(pick(changed("output_type"), o.outputType, file.Output.Type)),
		Codec:          pick(changed("codec"), o.codec, file.Output.Codec),
		MaxPages:       o.maxPages,
		Password:       o.password,
		Rotation:       o.rotation,
		Scale:          pickPtr(changed("scale"), o.scale, file.Output.Scale),
		LayoutMode:     pick(changed("layoutmode"), o.layoutMode, file.Output.LayoutMode),
		OutputDir:      o.outputDir,
		StripControl:   pickPtr(changed("strip-control"), o.stripControl, file.Output.StripControl),
		DisableCaching: o.disableCaching,
		Render: pdf2xml.RenderOptions{
			ChromePath:   pick(changed("chrome-path"), o.chromePath, file.Render.ChromePath),
			NoSandbox:    pickPtr(changed("no-sandbox"), o.noSandbox, file.Render.NoSandbox),
			AutoDownload: pickPtr(changed("auto-download-browser"), o.autoDownload, file.Render.AutoDownload),
			Timeout:      file.Render.Timeout.Duration,
		},
	}

	switch cfg.LayoutMode {
	case "normal", "exact", "loose":
	default:
		return cfg, fmt.Errorf("invalid layout mode %q", cfg.LayoutMode)
	}

	pages, err := selectPages(o.pageNumbers, o.pagenos)
	if err != nil {
		return cfg, err
	}
	cfg.Pages = pages

	if !o.noLayout {
		l := file.Layout
		params := &pdf2xml.LayoutParams{
			LineOverlap:    pdf2xml.DefaultLayoutParams().LineOverlap,
			CharMargin:     pickPtr(changed("char-margin"), o.charMargin, l.CharMargin),
			WordMargin:     pickPtr(changed("word-margin"), o.wordMargin, l.WordMargin),
			LineMargin:     pickPtr(changed("line-margin"), o.lineMargin, l.LineMargin),
			DetectVertical: pickPtr(changed("detect-vertical"), o.detectVertical, l.DetectVertical),
			AllTexts:       pickPtr(changed("all-texts"), o.allTexts, l.AllTexts),
		}
		flow, set, err := l.Flow()
		if err != nil {
			return cfg, err
		}
		if changed("boxes-flow") || !set {
			if flow, err = parseBoxesFlow(o.boxesFlow); err != nil {
				return cfg, err
			}
		}
		params.BoxesFlow = flow
		cfg.Layout = params
	}
	return cfg, nil
}

func parseBoxesFlow(s string) (*float64, error) {
	if s == "disabled" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < -1 || f > 1 {
		return nil, fmt.Errorf(`invalid boxes flow %q: want a number between -1.0 and 1.0 or "disabled"`, s)
	}
	return &f, nil
}

// pick returns the flag value when it was set or the config file has no
// value, and the config file value otherwise.
func pick(flagSet bool, flag, file string) string {
	if flagSet || file == "" {
		return flag
	}
	return file
}

func pickPtr[T any](flagSet bool, flag T, file *T) T {
	if flagSet || file == nil {
		return flag
	}
	return *file
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
