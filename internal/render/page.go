package render

// PageSize is a paper size in centimeters.
type PageSize struct {
	Width  float64
	Height float64
}

// Paper sizes.
var (
	A4     = PageSize{Width: 21.0, Height: 29.7}
	Letter = PageSize{Width: 21.59, Height: 27.94}
	Legal  = PageSize{Width: 21.59, Height: 35.56}
)

// Margin holds page margins in centimeters.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// UniformMargin returns the same margin on every side.
func UniformMargin(cm float64) Margin {
	return Margin{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// PageConfig describes the paper an HTML document is printed on. Zero
// fields take the values of [DefaultPageConfig].
type PageConfig struct {
	Size            PageSize
	Landscape       bool
	Margin          Margin
	Scale           float64 // 0.1 to 2.0
	PrintBackground bool
}

// DefaultPageConfig is A4 portrait with 1 cm margins at scale 1 with
// backgrounds printed.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:            A4,
		Margin:          UniformMargin(1.0),
		Scale:           1.0,
		PrintBackground: true,
	}
}

func (p PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p.Size == (PageSize{}) {
		p.Size = d.Size
	}
	if p.Margin == (Margin{}) {
		p.Margin = d.Margin
	}
	if p.Scale <= 0 {
		p.Scale = d.Scale
	}
	return p
}

func cmToInches(cm float64) float64 { return cm / 2.54 }

// paperInches returns width and height in inches after orientation.
func (p PageConfig) paperInches() (width, height float64) {
	w, h := cmToInches(p.Size.Width), cmToInches(p.Size.Height)
	if p.Landscape {
		return h, w
	}
	return w, h
}

func (p PageConfig) marginInches() (top, right, bottom, left float64) {
	return cmToInches(p.Margin.Top),
		cmToInches(p.Margin.Right),
		cmToInches(p.Margin.Bottom),
		cmToInches(p.Margin.Left)
}
