package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/sample"
)

// MinTimeWindow is the narrowest time axis shown, in seconds.
const MinTimeWindow = 10.0

// Chart is a Fyne widget plotting weight (left axis) and motor speed
// (right axis) against run time.
type Chart struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu      sync.RWMutex
	display sample.Series // Downsampled, reused between updates

	// Auto-scaling
	xRange      sample.Range
	weightRange sample.Range
	speedRange  sample.Range

	maxDisplayPoints int
}

// NewChart creates an empty chart.
func NewChart(cfg config.PlotConfig) *Chart {
	points := cfg.MaxDisplayPoints
	if points <= 0 {
		points = config.Default().Plot.MaxDisplayPoints
	}
	c := &Chart{
		display: sample.Series{
			Time:   make([]float64, 0, points),
			Weight: make([]float64, 0, points),
			Speed:  make([]float64, 0, points),
		},
		maxDisplayPoints: points,
	}
	c.updateAutoScale()
	c.ExtendBaseWidget(c)
	return c
}

// Update replaces the plotted data. Must be called on the Fyne thread.
func (c *Chart) Update(s sample.Series) {
	c.mu.Lock()
	c.display = sample.Downsample(c.display, s, c.maxDisplayPoints)
	c.updateAutoScale()
	c.mu.Unlock()

	// Refresh outside the lock, the renderer takes it
	c.Refresh()
}

// Ranges returns the current axis ranges.
func (c *Chart) Ranges() (x, weight, speed sample.Range) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.xRange, c.weightRange, c.speedRange
}

// updateAutoScale recalculates the axis ranges with a 10% margin.
func (c *Chart) updateAutoScale() {
	if r, ok := sample.Extent(c.display.Weight); ok {
		c.weightRange = r.Pad(0.1)
	} else {
		c.weightRange = sample.Range{Min: 0, Max: 1}
	}

	if r, ok := sample.Extent(c.display.Speed); ok {
		c.speedRange = r.Pad(0.1)
	} else {
		c.speedRange = sample.Range{Min: 0, Max: 1}
	}

	if n := c.display.Len(); n > 0 {
		c.xRange = sample.Range{Min: c.display.Time[0], Max: c.display.Time[n-1]}.AtLeast(MinTimeWindow)
	} else {
		c.xRange = sample.Range{Min: 0, Max: MinTimeWindow}
	}
}

// CreateRenderer creates the widget renderer.
func (c *Chart) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &chartRenderer{
		chart:   c,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
