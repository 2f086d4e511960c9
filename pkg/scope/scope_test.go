package scope

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/sample"
	"github.com/stretchr/testify/assert"
)

func TestChart_AutoScale(t *testing.T) {
	test.NewTempApp(t)

	c := NewChart(config.PlotConfig{MaxDisplayPoints: 100})

	x, w, s := c.Ranges()
	assert.Equal(t, sample.Range{Min: 0, Max: MinTimeWindow}, x)
	assert.Equal(t, sample.Range{Min: 0, Max: 1}, w)
	assert.Equal(t, sample.Range{Min: 0, Max: 1}, s)

	c.Update(sample.Series{
		Time:   []float64{0, 20},
		Weight: []float64{-10, 10},
		Speed:  []float64{0, 100},
	})

	x, w, s = c.Ranges()
	assert.Equal(t, sample.Range{Min: 0, Max: 20}, x)
	assert.InDelta(t, -12, w.Min, 1e-9)
	assert.InDelta(t, 12, w.Max, 1e-9)
	assert.InDelta(t, -10, s.Min, 1e-9)
	assert.InDelta(t, 110, s.Max, 1e-9)
}

func TestChart_Downsamples(t *testing.T) {
	test.NewTempApp(t)

	c := NewChart(config.PlotConfig{MaxDisplayPoints: 50})
	c.Update(makeSeries(1000, func(i int) float64 { return float64(i) }))

	c.mu.RLock()
	n := c.display.Len()
	c.mu.RUnlock()
	assert.Equal(t, 50, n)
}

func TestChart_Renderer(t *testing.T) {
	test.NewTempApp(t)

	c := NewChart(config.PlotConfig{})
	c.Resize(fyne.NewSize(800, 400))
	r := test.WidgetRenderer(c)

	r.Refresh()
	empty := len(r.Objects())
	// Background, grid lines and labels
	assert.Greater(t, empty, 1)

	c.Update(makeSeries(100, func(i int) float64 { return float64(i) }))
	r.Refresh()
	// Two series of 99 segments each on top of the grid
	assert.Equal(t, empty+2*99, len(r.Objects()))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12", formatValue(12.3, 80))
	assert.Equal(t, "12.3", formatValue(12.3, 4))
	assert.Equal(t, "0.37", formatValue(0.37, 0.2))
	assert.Equal(t, "5", formatValue(5, 0))
}

func TestProjection_Clamps(t *testing.T) {
	p := projection{x: 10, y: 10, w: 100, h: 50, xr: sample.Range{Min: 0, Max: 10}, yr: sample.Range{Min: 0, Max: 1}}

	assert.Equal(t, fyne.NewPos(10, 60), p.pos(0, 0))
	assert.Equal(t, fyne.NewPos(110, 10), p.pos(10, 1))
	assert.Equal(t, fyne.NewPos(110, 60), p.pos(20, -5))
	assert.Equal(t, fyne.NewPos(60, 35), p.pos(5, 0.5))
}
