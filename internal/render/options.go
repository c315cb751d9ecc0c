package render

import "time"

type config struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	autoDownload bool
	headless     string
	page         PageConfig
}

func defaultConfig() config {
	return config{
		timeout:  30 * time.Second,
		headless: "new",
		page:     DefaultPageConfig(),
	}
}

// Option configures a [Converter].
type Option func(*config)

// WithChromePath sets the Chrome or Chromium executable. Without it the
// standard install locations are searched.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithTimeout bounds a single conversion. The default is 30 seconds; zero
// or less disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox, which is needed when running
// as root.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload fetches a Chromium build when no executable path was
// given. It is ignored when [WithChromePath] is used.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithPage sets the paper used for printing.
func WithPage(p PageConfig) Option {
	return func(c *config) {
		c.page = p
	}
}
