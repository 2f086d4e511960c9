package sample

import (
	"sync"

	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/units"
)

// Sample represents a processed measurement with physical values.
type Sample struct {
	HostTime   float64 // Seconds since the run started, host clock
	DeviceTime int64   // Controller clock
	Weight     float64
	Period     int64 // Motor command period reported by the controller
	SpeedRPM   float64
}

// FromDataLine converts a decoded controller line received at hostTime.
func FromDataLine(hostTime float64, d device.DataLine, conv *units.Converter) Sample {
	return Sample{
		HostTime:   hostTime,
		DeviceTime: d.DeviceTime,
		Weight:     conv.CountToWeight(d.RawCount),
		Period:     d.Period,
		SpeedRPM:   conv.PeriodToRPM(d.Period),
	}
}

// Series is a view of three parallel sequences of equal length.
type Series struct {
	Time   []float64
	Weight []float64
	Speed  []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.Time)
}

// Buffer is an append-only time series with one writer and any number of
// readers. Elements are never modified after Append, so a Snapshot can
// share the backing arrays with the writer.
type Buffer struct {
	mu     sync.RWMutex
	time   []float64
	weight []float64
	speed  []float64
}

// NewBuffer creates an empty buffer with room for capacity samples.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		time:   make([]float64, 0, capacity),
		weight: make([]float64, 0, capacity),
		speed:  make([]float64, 0, capacity),
	}
}

// Append publishes all three values of s at once.
func (b *Buffer) Append(s Sample) {
	b.mu.Lock()
	b.time = append(b.time, s.HostTime)
	b.weight = append(b.weight, s.Weight)
	b.speed = append(b.speed, s.SpeedRPM)
	b.mu.Unlock()
}

// Len returns the number of samples appended so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.time)
}

// Snapshot returns the current contents. The returned slices are capped at
// their length, so appending to them never touches the buffer.
func (b *Buffer) Snapshot() Series {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.time)
	return Series{
		Time:   b.time[:n:n],
		Weight: b.weight[:n:n],
		Speed:  b.speed[:n:n],
	}
}
