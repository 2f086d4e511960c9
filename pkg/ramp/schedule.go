// Package ramp computes linear speed ramps split into timed steps.
package ramp

import (
	"iter"
	"math/bits"
	"time"

	"github.com/itohio/goushi/pkg/units"
)

// Step is one segment of the ramp.
type Step struct {
	Index     int
	TargetRPM float64
	Period    int64         // Motor command period, 0 means stopped
	Deadline  time.Duration // Elapsed run time at which the step ends
}

// Schedule derives ramp steps from a RunConfig. Steps are computed on
// demand from their index, so iterating twice yields the same sequence.
type Schedule struct {
	cfg       RunConfig
	conv      *units.Converter
	increment float64
}

// NewSchedule creates a Schedule for cfg.
func NewSchedule(cfg RunConfig, conv *units.Converter) *Schedule {
	s := &Schedule{cfg: cfg, conv: conv}
	if cfg.Steps != 0 {
		s.increment = float64(cfg.FinalRPM-cfg.InitialRPM) / float64(cfg.Steps)
	}
	return s
}

// Len returns the number of steps, Steps+1.
func (s *Schedule) Len() int {
	return s.cfg.Steps + 1
}

// StepDuration returns the constant duration of every step.
func (s *Schedule) StepDuration() time.Duration {
	return s.cfg.Duration / time.Duration(s.Len())
}

// Increment returns the rpm change between consecutive steps.
func (s *Schedule) Increment() float64 {
	return s.increment
}

// Step returns step i. It panics if i is out of range.
func (s *Schedule) Step(i int) Step {
	if i < 0 || i >= s.Len() {
		panic("ramp: step index out of range")
	}
	rpm := float64(s.cfg.InitialRPM) + s.increment*float64(i)
	return Step{
		Index:     i,
		TargetRPM: rpm,
		Period:    s.conv.RPMToPeriod(rpm),
		Deadline:  s.deadline(i),
	}
}

// Steps iterates over all steps in order.
func (s *Schedule) Steps() iter.Seq[Step] {
	return func(yield func(Step) bool) {
		for i := range s.Len() {
			if !yield(s.Step(i)) {
				return
			}
		}
	}
}

// deadline computes Duration*(i+1)/n so that the last step ends exactly at
// Duration. r*k can exceed 64 bits, but r*k/n < n always fits.
func (s *Schedule) deadline(i int) time.Duration {
	n := uint64(s.Len())
	k := uint64(i + 1)
	d := uint64(s.cfg.Duration)
	q, r := d/n, d%n
	hi, lo := bits.Mul64(r, k)
	frac, _ := bits.Div64(hi, lo, n)
	return time.Duration(q*k + frac)
}
