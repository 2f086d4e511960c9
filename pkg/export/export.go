// Package export renders the final plot of a run to an image file.
package export

import (
	"bufio"
	"fmt"
	"image/color"
	"os"

	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/logsink"
	"github.com/itohio/goushi/pkg/sample"
	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Options control the image size.
type Options struct {
	WidthIn  float64 // inches
	HeightIn float64 // inches
	DPI      int
}

// OptionsFromConfig takes the image settings of the plot configuration,
// falling back to defaults for zero values.
func OptionsFromConfig(cfg config.PlotConfig) Options {
	def := config.Default().Plot
	o := Options{WidthIn: cfg.ImageWidth, HeightIn: cfg.ImageHeight, DPI: cfg.ImageDPI}
	if o.WidthIn <= 0 {
		o.WidthIn = def.ImageWidth
	}
	if o.HeightIn <= 0 {
		o.HeightIn = def.ImageHeight
	}
	if o.DPI <= 0 {
		o.DPI = def.ImageDPI
	}
	return o
}

// SavePNG writes weight and speed against time as one chart. Weight uses
// the left axis, speed the right one.
func SavePNG(path string, s sample.Series, opts Options) error {
	opts = OptionsFromConfig(config.PlotConfig{ImageWidth: opts.WidthIn, ImageHeight: opts.HeightIn, ImageDPI: opts.DPI})

	xr := sample.Range{Min: 0, Max: 1}
	if r, ok := sample.Extent(s.Time); ok {
		xr = r.AtLeast(1)
	}

	weight, wline, err := newPlot(s.Time, s.Weight, xr, colornames.Red)
	if err != nil {
		return fmt.Errorf("weight plot: %w", err)
	}
	weight.Add(plotter.NewGrid())
	weight.Title.Text = "Weight and speed"
	weight.X.Label.Text = "time (s)"
	weight.Y.Label.Text = "weight"

	speed, sline, err := newPlot(s.Time, s.Speed, xr, colornames.Dodgerblue)
	if err != nil {
		return fmt.Errorf("speed plot: %w", err)
	}
	// The speed axis is drawn by hand on the right, hiding resets it
	axis := speed.Y
	speed.HideAxes()
	speed.BackgroundColor = color.Transparent

	if wline != nil && sline != nil {
		weight.Legend.Add("weight", wline)
		weight.Legend.Add("speed (rpm)", sline)
		weight.Legend.Top = true
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.WidthIn)*vg.Inch, vg.Length(opts.HeightIn)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
	)
	dc := draw.New(c)

	// Room on the right for the speed axis
	ticks := axis.Tick.Marker.Ticks(axis.Min, axis.Max)
	labelStyle := axis.Tick.Label
	labelStyle.Color = colornames.Dodgerblue
	labelStyle.XAlign = draw.XLeft
	labelStyle.YAlign = draw.YCenter
	margin := labelStyle.Width("rpm")
	for _, t := range ticks {
		margin = max(margin, labelStyle.Width(t.Label))
	}
	margin += axis.Tick.Length + 3*vg.Millimeter

	area := draw.Crop(dc, 0, -margin, 0, 0)
	weight.Draw(area)
	data := weight.DataCanvas(area)
	speed.Draw(data)
	drawRightAxis(&data, axis, ticks, labelStyle)

	f, err := os.Create(path)
	if err != nil {
		return &logsink.ResourceError{Path: path, Err: err}
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return f.Close()
}

// newPlot plots ys against xs with a 10% vertical margin. The line is nil
// when there is nothing to draw.
func newPlot(xs, ys []float64, xr sample.Range, c color.Color) (*plot.Plot, *plotter.Line, error) {
	p := plot.New()

	var line *plotter.Line
	yr := sample.Range{Min: 0, Max: 1}
	if n := min(len(xs), len(ys)); n > 0 {
		pts := make(plotter.XYs, n)
		for i := range pts {
			pts[i].X = xs[i]
			pts[i].Y = ys[i]
		}
		var err error
		if line, err = plotter.NewLine(pts); err != nil {
			return nil, nil, err
		}
		line.LineStyle.Color = c
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)

		r, _ := sample.Extent(ys[:n])
		yr = r.Pad(0.1)
	}

	p.X.Min, p.X.Max = xr.Min, xr.Max
	p.Y.Min, p.Y.Max = yr.Min, yr.Max
	return p, line, nil
}

// drawRightAxis draws axis along the right edge of the data area.
func drawRightAxis(data *draw.Canvas, axis plot.Axis, ticks []plot.Tick, labelStyle text.Style) {
	lineStyle := axis.LineStyle
	lineStyle.Color = colornames.Dodgerblue
	right := data.Max.X
	height := data.Max.Y - data.Min.Y
	data.StrokeLine2(lineStyle, right, data.Min.Y, right, data.Max.Y)

	span := axis.Max - axis.Min
	for _, t := range ticks {
		if t.Value < axis.Min || t.Value > axis.Max {
			continue
		}
		y := data.Min.Y + vg.Length((t.Value-axis.Min)/span)*height
		length := axis.Tick.Length
		if t.IsMinor() {
			length /= 2
		}
		data.StrokeLine2(lineStyle, right, y, right+length, y)
		if t.Label != "" {
			data.FillText(labelStyle, vg.Point{X: right + axis.Tick.Length + vg.Millimeter, Y: y}, t.Label)
		}
	}

	unitStyle := labelStyle
	unitStyle.YAlign = draw.YBottom
	data.FillText(unitStyle, vg.Point{X: right + vg.Millimeter, Y: data.Max.Y + vg.Millimeter}, "rpm")
}
