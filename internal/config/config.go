// Package config loads default option values from a TOML file.
//
// The file is optional. Keys left out of it keep the built-in defaults,
// and command-line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// File is the on-disk layout.
type File struct {
	Layout Layout `toml:"layout"`
	Output Output `toml:"output"`
	Render Render `toml:"render"`
}

// Layout holds layout analysis defaults. BoxesFlow accepts a number or
// the string "disabled".
type Layout struct {
	CharMargin     *float64 `toml:"char_margin"`
	WordMargin     *float64 `toml:"word_margin"`
	LineMargin     *float64 `toml:"line_margin"`
	BoxesFlow      any      `toml:"boxes_flow"`
	DetectVertical *bool    `toml:"detect_vertical"`
	AllTexts       *bool    `toml:"all_texts"`
}

// Output holds output defaults.
type Output struct {
	Type         string   `toml:"type"`
	Codec        string   `toml:"codec"`
	LayoutMode   string   `toml:"layoutmode"`
	Scale        *float64 `toml:"scale"`
	StripControl *bool    `toml:"strip_control"`
}

// Render holds headless browser settings for HTML inputs.
type Render struct {
	ChromePath   string   `toml:"chrome_path"`
	NoSandbox    *bool    `toml:"no_sandbox"`
	AutoDownload *bool    `toml:"auto_download"`
	Timeout      Duration `toml:"timeout"`
}

// Duration reads strings such as "45s" or "2m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultPath returns ~/.config/pdf2xml/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdf2xml", "config.toml"), nil
}

// Load reads the file at path. An empty path means [DefaultPath], and a
// missing default file yields an empty File. A missing explicit path is
// an error.
func Load(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return &File{}, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML text. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, _, err := f.Layout.Flow(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Flow interprets boxes_flow. set is false when the key is absent; a nil
// flow means disabled.
func (l Layout) Flow() (flow *float64, set bool, err error) {
	var f float64
	switch v := l.BoxesFlow.(type) {
	case nil:
		return nil, false, nil
	case float64:
		f = v
	case int64:
		f = float64(v)
	case string:
		if v == "disabled" {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("config: boxes_flow must be a number or \"disabled\", got %q", v)
	default:
		return nil, false, fmt.Errorf("config: boxes_flow has unsupported type %T", v)
	}
	if f < -1 || f > 1 {
		return nil, false, fmt.Errorf("config: boxes_flow %v outside [-1, 1]", f)
	}
	return &f, true, nil
}
