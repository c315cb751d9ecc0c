package render

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser returns the path of a Chromium build managed by rod,
// downloading it into rod's cache directory on first use.
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("render: downloading browser: %w", err)
	}
	return path, nil
}
