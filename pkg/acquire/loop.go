// Package acquire runs the speed ramp against the controller and records
// everything it sends back.
package acquire

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/ramp"
	"github.com/itohio/goushi/pkg/sample"
	"github.com/itohio/goushi/pkg/units"
)

// FinishedMessage is the last raw log row of a completed run.
const FinishedMessage = "Program finished successfully."

// EchoPrefix starts every echoed controller line.
const EchoPrefix = "Response from ESP32:"

// DefaultPollTimeout bounds a single wait for a controller line.
const DefaultPollTimeout = 100 * time.Millisecond

// Sink receives every controller line and every parsed sample.
type Sink interface {
	WriteRaw(hostTime float64, text string) error
	WriteSample(s sample.Sample) error
}

// Options tune the loop.
type Options struct {
	PollTimeout time.Duration
	Clock       func() time.Time // Defaults to time.Now
	Echo        bool             // Print every controller line
	EchoTo      io.Writer        // Defaults to os.Stdout
}

// Loop drives one ramp run. It is the only writer of the buffer and the sink.
type Loop struct {
	ch    device.Channel
	cfg   ramp.RunConfig
	sched *ramp.Schedule
	conv  *units.Converter
	buf   *sample.Buffer
	sink  Sink
	opts  Options

	start time.Time
	state atomic.Int32
	step  atomic.Int64

	lines     atomic.Uint64
	samples   atomic.Uint64
	malformed atomic.Uint64

	done chan struct{}
}

// New creates a loop for a validated run configuration.
func New(ch device.Channel, cfg ramp.RunConfig, conv *units.Converter, buf *sample.Buffer, sink Sink, opts Options) *Loop {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.EchoTo == nil {
		opts.EchoTo = os.Stdout
	}
	return &Loop{
		ch:    ch,
		cfg:   cfg,
		sched: ramp.NewSchedule(cfg, conv),
		conv:  conv,
		buf:   buf,
		sink:  sink,
		opts:  opts,
		done:  make(chan struct{}),
	}
}

// Run executes the whole ramp. It returns nil once the last step has
// drained, a *device.ChannelError if the link failed, the context error if
// ctx was cancelled, or a wrapped sink error. Run must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	l.start = l.opts.Clock()
	if err := l.starting(); err != nil {
		return err
	}

	for st := range l.sched.Steps() {
		l.step.Store(int64(st.Index))
		l.state.Store(int32(Stepping))
		if err := l.ch.Send(device.SetSpeed(st.Period)); err != nil {
			return err
		}

		l.state.Store(int32(Draining))
		if err := l.drain(ctx, st.Deadline); err != nil {
			return err
		}
	}

	if err := l.ch.Send(device.SetSpeed(0)); err != nil {
		return err
	}
	if err := l.sink.WriteRaw(l.elapsed().Seconds(), FinishedMessage); err != nil {
		return fmt.Errorf("raw log: %w", err)
	}
	l.state.Store(int32(Finished))
	return nil
}

// Done is closed when Run returns, whatever the outcome.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// State returns the current phase.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Step returns the index of the current ramp step.
func (l *Loop) Step() int {
	return int(l.step.Load())
}

// Schedule returns the ramp being executed.
func (l *Loop) Schedule() *ramp.Schedule {
	return l.sched
}

// Stats returns line counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Lines:     l.lines.Load(),
		Samples:   l.samples.Load(),
		Malformed: l.malformed.Load(),
	}
}

func (l *Loop) starting() error {
	l.state.Store(int32(Starting))

	for _, row := range l.cfg.Settings() {
		if err := l.sink.WriteRaw(0, row); err != nil {
			return fmt.Errorf("raw log: %w", err)
		}
	}

	if err := l.ch.Send(device.CmdStartOutput); err != nil {
		return err
	}
	return l.ch.Send(device.SetSpeed(0))
}

// drain processes lines until the run time passes deadline.
func (l *Loop) drain(ctx context.Context, deadline time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := deadline - l.elapsed()
		if remaining < 0 {
			return nil
		}

		line, err := l.ch.ReadLine(min(l.opts.PollTimeout, remaining+time.Millisecond))
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if err := l.handle(line); err != nil {
			return err
		}
	}
}

func (l *Loop) handle(line string) error {
	t := l.elapsed().Seconds()
	l.lines.Add(1)

	if l.opts.Echo {
		fmt.Fprintln(l.opts.EchoTo, EchoPrefix, line)
	}

	if err := l.sink.WriteRaw(t, line); err != nil {
		return fmt.Errorf("raw log: %w", err)
	}
	if !device.IsDataLine(line) {
		return nil
	}

	d, err := device.ParseDataLine(line)
	if err != nil {
		l.malformed.Add(1)
		log.Printf("Skipping sample: %v", err)
		return nil
	}

	s := sample.FromDataLine(t, d, l.conv)
	l.buf.Append(s)
	l.samples.Add(1)

	if err := l.sink.WriteSample(s); err != nil {
		return fmt.Errorf("data log: %w", err)
	}
	return nil
}

func (l *Loop) elapsed() time.Duration {
	return l.opts.Clock().Sub(l.start)
}
