package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pdf2xml "github.com/porticus-lab/go-pdf2xml"
	"github.com/porticus-lab/go-pdf2xml/internal/engine"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show document metadata and page dimensions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0])
		},
	}
}

func runInfo(cmd *cobra.Command, path string) error {
	doc, err := engine.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	pages, err := doc.Pages()
	if err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}
	meta, err := pdf2xml.RenderMetadata(pdf2xml.RawInfo(doc.Info()))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File:         %s\n", path)
	fmt.Fprintf(w, "Version:      PDF-%s\n", doc.Version())
	fmt.Fprintf(w, "Encrypted:    %t\n", doc.Encrypted())
	for _, f := range meta.Fields() {
		fmt.Fprintf(w, "%-13s %s\n", f.Name+":", f.Value)
	}
	fmt.Fprintf(w, "Pages:        %d\n", len(pages))
	for i, p := range pages {
		fmt.Fprintf(w, "  Page %d: %.0f x %.0f pt", i+1, p.MediaBox.Width(), p.MediaBox.Height())
		if p.Rotate != 0 {
			fmt.Fprintf(w, " (rotated %d°)", p.Rotate)
		}
		fmt.Fprintln(w)
	}
	return nil
}
