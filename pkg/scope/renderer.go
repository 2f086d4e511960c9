package scope

import (
	"image/color"
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
	"github.com/itohio/goushi/pkg/sample"
	"golang.org/x/image/colornames"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	weightColor = colornames.Red
	speedColor  = colornames.Dodgerblue
)

const (
	marginLeft   = float32(70)
	marginRight  = float32(70)
	marginTop    = float32(24)
	marginBottom = float32(40)

	numHLines = 8
	numVLines = 10
)

// chartRenderer renders the chart widget.
type chartRenderer struct {
	chart *Chart

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// projection maps data coordinates into the plot area.
type projection struct {
	x, y, w, h float32
	xr, yr     sample.Range
}

func (p projection) pos(x, y float64) fyne.Position {
	fx := unit(float32((x - p.xr.Min) / p.xr.Span()))
	fy := unit(float32((y - p.yr.Min) / p.yr.Span()))
	return fyne.NewPos(p.x+fx*p.w, p.y+p.h-fy*p.h)
}

// unit clamps v to [0, 1]; NaN maps to 0.
func unit(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}

// MinSize returns the minimum size of the widget.
func (r *chartRenderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 320)
}

// Layout arranges the widget components.
func (r *chartRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.chart.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *chartRenderer) Refresh() {
	r.chart.mu.RLock()
	data := r.chart.display
	xr, wr, sr := r.chart.xRange, r.chart.weightRange, r.chart.speedRange
	r.chart.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.bg}

	size := r.chart.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	plotW := size.Width - marginLeft - marginRight
	plotH := size.Height - marginTop - marginBottom
	if plotW <= 0 || plotH <= 0 {
		return
	}

	weight := projection{x: marginLeft, y: marginTop, w: plotW, h: plotH, xr: xr, yr: wr}
	speed := weight
	speed.yr = sr

	r.drawGrid(weight, sr)
	r.drawTitles(weight)
	r.drawSeries(weight, data.Time, data.Weight, weightColor)
	r.drawSeries(speed, data.Time, data.Speed, speedColor)
}

// drawGrid draws grid lines and the labels of all three axes.
func (r *chartRenderer) drawGrid(p projection, speedRange sample.Range) {
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/float32(numHLines)
		r.addLine(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		frac := float64(i) / numHLines
		left := p.yr.Max - frac*p.yr.Span()
		right := speedRange.Max - frac*speedRange.Span()

		r.addText(formatValue(left, p.yr.Span()), weightColor, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
		r.addText(formatValue(right, speedRange.Span()), speedColor, fyne.TextAlignLeading, fyne.NewPos(p.x+p.w+5, y-6))
	}

	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/float32(numVLines)
		r.addLine(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		t := p.xr.Min + float64(i)*p.xr.Span()/numVLines
		r.addText(formatSeconds(t), labelColor, fyne.TextAlignCenter, fyne.NewPos(x, p.y+p.h+5))
	}
}

func (r *chartRenderer) drawTitles(p projection) {
	r.addText("weight", weightColor, fyne.TextAlignLeading, fyne.NewPos(p.x, 4))
	r.addText("speed (rpm)", speedColor, fyne.TextAlignTrailing, fyne.NewPos(p.x+p.w, 4))
	r.addText("time (s)", labelColor, fyne.TextAlignCenter, fyne.NewPos(p.x+p.w/2, p.y+p.h+20))
}

// drawSeries draws ys against xs as connected segments.
func (r *chartRenderer) drawSeries(p projection, xs, ys []float64, c color.Color) {
	n := min(len(xs), len(ys))
	if n < 2 {
		return
	}

	prev := p.pos(xs[0], ys[0])
	for i := 1; i < n; i++ {
		cur := p.pos(xs[i], ys[i])
		r.addLine(c, 1.5, prev, cur)
		prev = cur
	}
}

func (r *chartRenderer) addLine(c color.Color, width float32, a, b fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = a
	line.Position2 = b
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *chartRenderer) addText(s string, c color.Color, align fyne.TextAlign, pos fyne.Position) {
	text := canvas.NewText(s, c)
	text.TextSize = 10
	text.Alignment = align
	text.Move(pos)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *chartRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *chartRenderer) Destroy() {
	// Cleanup handled by Fyne
}

// formatValue prints v with enough decimals to tell grid lines spaced
// span/numHLines apart.
func formatValue(v, span float64) string {
	step := span / numHLines
	decimals := 0
	if step > 0 && step < 1 {
		decimals = min(int(math.Ceil(-math.Log10(step))), 6)
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func formatSeconds(s float64) string {
	if s < 1 {
		return strconv.FormatFloat(s, 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(s, 'f', 1, 64) + "s"
}
