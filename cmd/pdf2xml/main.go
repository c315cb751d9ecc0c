// pdf2xml extracts text and layout from PDF files.
//
// Usage:
//
//	pdf2xml [flags] FILE...
//	pdf2xml info FILE
//	pdf2xml version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/porticus-lab/go-pdf2xml/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
