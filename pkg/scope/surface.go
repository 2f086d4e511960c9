// Package scope draws the live weight and speed plot while a run is in
// progress.
package scope

import (
	"time"

	"github.com/itohio/goushi/pkg/sample"
)

// DefaultRefreshInterval is the redraw period used when none is configured.
const DefaultRefreshInterval = 100 * time.Millisecond

// Surface is somewhere a series can be drawn.
type Surface interface {
	// Render draws the series. It must not block on the caller for long;
	// the series must be treated as read-only.
	Render(s sample.Series)
	// Close releases the surface. It is safe to call more than once.
	Close()
	// Closed is closed once the surface is gone, either through Close or
	// because the user dismissed it.
	Closed() <-chan struct{}
}

// Source provides the current contents of the time series.
type Source interface {
	Snapshot() sample.Series
}

// Titled is a Surface with a caption.
type Titled interface {
	SetTitle(title string)
}

// Captioner is a Source that also describes its progress.
type Captioner interface {
	Caption() string
}

// Refresh redraws surface from src every interval. It never waits for new
// data, each tick draws whatever the snapshot holds. If src is a Captioner
// and surface is Titled, the title follows the caption.
//
// When done is closed the final contents are drawn once more, the surface
// is closed and Refresh returns true. If the surface is closed first,
// Refresh returns false without touching it again.
func Refresh(surface Surface, src Source, interval time.Duration, done <-chan struct{}) bool {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	titled, _ := surface.(Titled)
	captioner, _ := src.(Captioner)
	var title string
	draw := func() {
		if titled != nil && captioner != nil {
			if c := captioner.Caption(); c != title {
				title = c
				titled.SetTitle(c)
			}
		}
		surface.Render(src.Snapshot())
	}

	draw()

	for {
		select {
		case <-done:
			draw()
			surface.Close()
			return true
		case <-surface.Closed():
			return false
		case <-ticker.C:
			draw()
		}
	}
}
