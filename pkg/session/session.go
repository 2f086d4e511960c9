// Package session runs a single acquisition from opening the logs to
// exporting the final plot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/itohio/goushi/pkg/acquire"
	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/export"
	"github.com/itohio/goushi/pkg/logsink"
	"github.com/itohio/goushi/pkg/ramp"
	"github.com/itohio/goushi/pkg/sample"
	"github.com/itohio/goushi/pkg/scope"
	"github.com/itohio/goushi/pkg/units"
)

// Opener connects to the controller. It is called once per run.
type Opener func() (device.Channel, error)

// SurfaceFactory creates the live plot for a run.
type SurfaceFactory func(title string) scope.Surface

// Options configure a Session.
type Options struct {
	Open    Opener
	Surface SurfaceFactory   // nil runs without a live plot
	Clock   func() time.Time // Names the run files, defaults to time.Now
	NoImage bool             // Skip the final PNG export
}

// Result describes a finished or aborted run.
type Result struct {
	Paths     logsink.Paths
	State     acquire.State // Phase the loop ended in
	Stats     acquire.Stats
	ExportErr error // Set if the image could not be written
}

// Session runs acquisitions one after another. It keeps no state between runs.
type Session struct {
	cfg  *config.Config
	conv *units.Converter
	opts Options

	openSinks func(logsink.Paths) (*logsink.Dual, error)
}

// New creates a session for cfg.
func New(cfg *config.Config, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Session{
		cfg:       cfg,
		conv:      units.New(cfg.LoadCell, cfg.Motor),
		opts:      opts,
		openSinks: logsink.Open,
	}
}

// progress is the live plot source. Its caption tracks the ramp step.
type progress struct {
	*sample.Buffer
	loop *acquire.Loop
	memo string
}

func (p progress) Caption() string {
	sched := p.loop.Schedule()
	i := p.loop.Step()
	return fmt.Sprintf("ushi %s - step %d/%d at %.0f rpm (%s)",
		p.memo, i+1, sched.Len(), sched.Step(i).TargetRPM, p.loop.State())
}

// Run performs one ramp run. Logs are created before the controller is
// opened, so a ResourceError means nothing was sent. Once the logs exist the
// returned Result is non-nil, even when err is not.
//
// The live plot, if any, is refreshed on the calling goroutine until the
// acquisition ends. Teardown then sends set_speed 0 if the run was cut
// short, sends stop_output, closes both logs and closes the channel,
// whatever the outcome.
func (s *Session) Run(ctx context.Context, rc ramp.RunConfig, memo string) (*Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if s.opts.Open == nil {
		return nil, errors.New("session has no controller opener")
	}

	sinks, err := s.openSinks(logsink.NewPaths(s.cfg.Logging.Directory, s.opts.Clock(), memo))
	if err != nil {
		return nil, err
	}
	res := &Result{Paths: sinks.Paths()}

	ch, err := s.opts.Open()
	if err != nil {
		if cerr := sinks.Close(); cerr != nil {
			log.Printf("Failed to close logs: %v", cerr)
		}
		return res, fmt.Errorf("open controller: %w", err)
	}

	buf := sample.NewBuffer(1024)
	loop := acquire.New(ch, rc, s.conv, buf, sinks, acquire.Options{
		PollTimeout: s.cfg.Serial.ReadTimeout,
		Echo:        s.cfg.Logging.EchoResponses,
	})

	errc := make(chan error, 1)
	go func() {
		errc <- loop.Run(ctx)
	}()

	if s.opts.Surface != nil {
		surface := s.opts.Surface("ushi " + memo)
		scope.Refresh(surface, progress{buf, loop, memo}, s.cfg.Plot.RefreshInterval, loop.Done())
	}
	runErr := <-errc

	res.State = loop.State()
	res.Stats = loop.Stats()

	if err := teardown(ch, sinks, res.State != acquire.Finished); err != nil {
		log.Printf("Teardown: %v", err)
	}

	if !s.opts.NoImage {
		res.ExportErr = export.SavePNG(res.Paths.Image, buf.Snapshot(), export.OptionsFromConfig(s.cfg.Plot))
		if res.ExportErr != nil {
			log.Printf("Failed to save graph image: %v", res.ExportErr)
		}
	}

	return res, runErr
}

// teardown stops the controller output and releases both logs and the
// channel. An aborted run also stops the motor first. Both commands are best
// effort, they fail on a dead link.
func teardown(ch device.Channel, sinks *logsink.Dual, aborted bool) error {
	if aborted {
		if err := ch.Send(device.SetSpeed(0)); err != nil {
			log.Printf("Failed to stop motor: %v", err)
		}
	}
	if err := ch.Send(device.CmdStopOutput); err != nil {
		log.Printf("Failed to stop output: %v", err)
	}
	return errors.Join(sinks.Close(), ch.Close())
}
