package scope

import (
	"sync"

	"fyne.io/fyne/v2"
	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/sample"
)

// Window is a Fyne window showing a Chart.
type Window struct {
	win   fyne.Window
	chart *Chart

	once   sync.Once
	closed chan struct{}
}

// NewWindow opens a chart window. It may be called from any goroutine
// other than the Fyne thread.
func NewWindow(a fyne.App, title string, cfg config.PlotConfig) *Window {
	w := &Window{closed: make(chan struct{})}

	fyne.DoAndWait(func() {
		w.chart = NewChart(cfg)
		w.win = a.NewWindow(title)
		w.win.Resize(fyne.NewSize(1000, 600))
		w.win.SetContent(w.chart)
		w.win.SetOnClosed(w.markClosed)
		w.win.Show()
	})

	return w
}

// Render schedules a redraw on the Fyne thread.
func (w *Window) Render(s sample.Series) {
	select {
	case <-w.closed:
		return
	default:
	}
	fyne.Do(func() {
		w.chart.Update(s)
	})
}

// Close closes the window unless the user already did.
func (w *Window) Close() {
	select {
	case <-w.closed:
		return
	default:
	}
	w.markClosed()
	fyne.Do(w.win.Close)
}

// Closed is closed when the window goes away.
func (w *Window) Closed() <-chan struct{} {
	return w.closed
}

// SetTitle updates the window title.
func (w *Window) SetTitle(title string) {
	fyne.Do(func() {
		w.win.SetTitle(title)
	})
}

func (w *Window) markClosed() {
	w.once.Do(func() { close(w.closed) })
}
