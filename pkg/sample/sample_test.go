package sample

import (
	"sync"
	"testing"

	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDataLine(t *testing.T) {
	cfg := config.Default()
	conv := units.New(cfg.LoadCell, cfg.Motor)

	s := FromDataLine(1.5, device.DataLine{DeviceTime: 1000, RawCount: 1000000, Period: 3000}, conv)

	assert.Equal(t, 1.5, s.HostTime)
	assert.Equal(t, int64(1000), s.DeviceTime)
	assert.Equal(t, int64(3000), s.Period)
	assert.InDelta(t, 100, s.SpeedRPM, 1e-9)
	assert.InDelta(t, conv.CountToWeight(1000000), s.Weight, 1e-12)
}

func TestBuffer_AppendSnapshot(t *testing.T) {
	b := NewBuffer(2)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Snapshot().Len())

	b.Append(Sample{HostTime: 0.1, Weight: 1, SpeedRPM: 10})
	b.Append(Sample{HostTime: 0.2, Weight: 2, SpeedRPM: 20})
	b.Append(Sample{HostTime: 0.3, Weight: 3, SpeedRPM: 30})

	snap := b.Snapshot()
	require.Equal(t, 3, b.Len())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, snap.Time)
	assert.Equal(t, []float64{1, 2, 3}, snap.Weight)
	assert.Equal(t, []float64{10, 20, 30}, snap.Speed)
}

func TestBuffer_SnapshotIsStable(t *testing.T) {
	b := NewBuffer(8)
	b.Append(Sample{HostTime: 1, Weight: 1, SpeedRPM: 1})

	snap := b.Snapshot()
	b.Append(Sample{HostTime: 2, Weight: 2, SpeedRPM: 2})

	// Earlier snapshot does not grow
	assert.Equal(t, 1, snap.Len())

	// Appending to a snapshot must not clobber the buffer
	_ = append(snap.Time, 42)
	assert.Equal(t, []float64{1, 2}, b.Snapshot().Time)
}

func TestBuffer_ConcurrentReaders(t *testing.T) {
	const n = 5000
	b := NewBuffer(0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range n {
			v := float64(i)
			b.Append(Sample{HostTime: v, Weight: 2 * v, SpeedRPM: 3 * v})
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for prev < n {
				snap := b.Snapshot()
				// All three series always have the same length and
				// every published sample is complete and in order.
				assert.Equal(t, len(snap.Time), len(snap.Weight))
				assert.Equal(t, len(snap.Time), len(snap.Speed))
				assert.GreaterOrEqual(t, snap.Len(), prev)
				for i := prev; i < snap.Len(); i++ {
					if snap.Time[i] != float64(i) || snap.Weight[i] != 2*float64(i) || snap.Speed[i] != 3*float64(i) {
						t.Errorf("sample %d is torn or out of order", i)
						return
					}
				}
				prev = snap.Len()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, n, b.Len())
}
