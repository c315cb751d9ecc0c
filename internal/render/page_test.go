package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCmToInches(t *testing.T) {
	tests := []struct {
		cm   float64
		want float64
	}{
		{2.54, 1.0},
		{0, 0},
		{21.0, 8.2677},
		{29.7, 11.6929},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, cmToInches(tt.cm), 0.001, "cmToInches(%v)", tt.cm)
	}
}

func TestPageConfigResolved(t *testing.T) {
	assert.Equal(t, DefaultPageConfig(), PageConfig{PrintBackground: true}.resolved())

	custom := PageConfig{Size: Letter, Margin: UniformMargin(2), Scale: 1.5}
	assert.Equal(t, custom, custom.resolved())
}

func TestPaperInches(t *testing.T) {
	p := PageConfig{Size: A4}
	w, h := p.paperInches()
	assert.InDelta(t, 8.2677, w, 0.001)
	assert.InDelta(t, 11.6929, h, 0.001)

	p.Landscape = true
	w, h = p.paperInches()
	assert.InDelta(t, 11.6929, w, 0.001)
	assert.InDelta(t, 8.2677, h, 0.001)
}

func TestMarginInches(t *testing.T) {
	p := PageConfig{Margin: Margin{Top: 2.54, Right: 5.08, Bottom: 0, Left: 1.27}}
	top, right, bottom, left := p.marginInches()
	assert.InDelta(t, 1.0, top, 0.001)
	assert.InDelta(t, 2.0, right, 0.001)
	assert.InDelta(t, 0.0, bottom, 0.001)
	assert.InDelta(t, 0.5, left, 0.001)
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, o := range []Option{
		WithChromePath("/opt/chrome"),
		WithTimeout(0),
		WithNoSandbox(),
		WithAutoDownload(),
		WithPage(PageConfig{Size: Legal, Landscape: true}),
	} {
		o(&cfg)
	}
	assert.Equal(t, "/opt/chrome", cfg.chromePath)
	assert.Zero(t, cfg.timeout)
	assert.True(t, cfg.noSandbox)
	assert.True(t, cfg.autoDownload)
	assert.Equal(t, Legal, cfg.page.Size)
	assert.True(t, cfg.page.Landscape)
}
