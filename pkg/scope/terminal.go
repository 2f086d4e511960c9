package scope

import (
	"fmt"
	"sync"

	"github.com/buger/goterm"
	"github.com/itohio/goushi/pkg/sample"
)

// Terminal draws the chart as text into the terminal.
type Terminal struct {
	width, height int
	title         string
	display       sample.Series

	once    sync.Once
	closed  chan struct{}
	cleared bool
}

// NewTerminal creates a terminal surface. Zero width or height follow the
// terminal size.
func NewTerminal(width, height int) *Terminal {
	if width <= 0 {
		width = goterm.Width()
	}
	if height <= 0 {
		height = goterm.Height() - 4
	}
	if width <= 20 {
		width = 100
	}
	if height <= 5 {
		height = 25
	}
	return &Terminal{
		width:  width,
		height: height,
		closed: make(chan struct{}),
	}
}

// Render redraws the whole screen.
func (t *Terminal) Render(s sample.Series) {
	select {
	case <-t.closed:
		return
	default:
	}

	if !t.cleared {
		goterm.Clear()
		t.cleared = true
	}
	goterm.MoveCursor(1, 1)
	if t.title != "" {
		goterm.Println(goterm.Bold(t.title))
	}
	goterm.Println(t.frame(s))
	goterm.Flush()
}

// SetTitle sets the line drawn above the chart. Call it from the goroutine that renders.
func (t *Terminal) SetTitle(title string) {
	t.title = title
}

// frame renders s into a string.
func (t *Terminal) frame(s sample.Series) string {
	n := s.Len()
	if n == 0 {
		return "waiting for data..."
	}

	status := fmt.Sprintf("t=%.1fs  weight=%.3f  speed=%.1f rpm  samples=%d",
		s.Time[n-1], s.Weight[n-1], s.Speed[n-1], n)
	if n < 2 {
		return status
	}

	// One column per character is all the chart can show
	t.display = sample.Downsample(t.display, s, t.width)
	if r, _ := sample.Extent(t.display.Time); r.Span() == 0 {
		return status
	}
	widen(t.display.Weight)
	widen(t.display.Speed)

	data := new(goterm.DataTable)
	data.AddColumn("Time")
	data.AddColumn("Weight")
	data.AddColumn("Speed")
	for i := range t.display.Len() {
		data.AddRow(t.display.Time[i], t.display.Weight[i], t.display.Speed[i])
	}

	chart := goterm.NewLineChart(t.width, t.height)
	chart.Flags = goterm.DRAW_INDEPENDENT | goterm.DRAW_RELATIVE

	return chart.Draw(data) + "\n" + status
}

// widen nudges the first value of a constant column. goterm scales every
// column by its span and cannot draw a flat line.
func widen(col []float64) {
	if r, ok := sample.Extent(col); ok && r.Span() == 0 {
		col[0] -= 1
	}
}

// Close stops further rendering.
func (t *Terminal) Close() {
	t.once.Do(func() { close(t.closed) })
}

// Closed is closed after Close.
func (t *Terminal) Closed() <-chan struct{} {
	return t.closed
}
