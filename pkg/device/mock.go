package device

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/units"
)

// mockBufferSize is the number of lines the simulated controller queues.
const mockBufferSize = 256

// Mock simulates the motor controller for testing and development.
// It answers commands the way the firmware does and, while output is
// enabled, streams data lines with a load that follows the motor speed.
type Mock struct {
	cfg  *config.MockConfig
	conv *units.Converter

	lines  chan string
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	// Simulation state
	startTime time.Time
	output    bool
	period    int64
	load      float64 // Simulated raw count
	emitted   int
	rng       *rand.Rand
}

// NewMock creates a simulated controller. It starts producing data lines
// after receiving start_output. A nil conv uses the default constants.
func NewMock(cfg *config.MockConfig, conv *units.Converter) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	if cfg.SampleRate <= 0 {
		c := *cfg
		c.SampleRate = config.Default().Mock.SampleRate
		cfg = &c
	}
	if conv == nil {
		def := config.Default()
		conv = units.New(def.LoadCell, def.Motor)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mock{
		cfg:       cfg,
		conv:      conv,
		lines:     make(chan string, mockBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
		load:      cfg.BaseCount,
		rng:       rand.New(rand.NewPCG(1, 2)),
	}

	m.push("ESP32 ready")

	m.wg.Add(1)
	go m.generate()

	return m
}

// Send handles a command.
func (m *Mock) Send(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &ChannelError{Op: "write", Err: errClosed}
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case CmdStartOutput:
		m.output = true
		m.push("output started")
	case CmdStopOutput:
		m.output = false
		m.push("output stopped")
	case CmdSetSpeed:
		if len(fields) != 2 {
			m.push("error: set_speed needs one argument")
			return nil
		}
		period, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || period < 0 {
			m.push("error: invalid speed " + fields[1])
			return nil
		}
		m.period = period
		m.push(fmt.Sprintf("speed set: %d", period))
	default:
		m.push("unknown command: " + cmd)
	}
	return nil
}

// ReadLine returns the next queued line or "" after timeout.
func (m *Mock) ReadLine(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-m.lines:
		return decodeLine([]byte(line)), nil
	case <-m.ctx.Done():
		return "", &ChannelError{Op: "read", Err: errClosed}
	case <-timer.C:
		return "", nil
	}
}

// Close stops the simulated controller.
func (m *Mock) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// generate produces data lines on a ticker while output is enabled.
func (m *Mock) generate() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.Lock()
			if m.output {
				m.push(m.nextLine(now))
			}
			m.mu.Unlock()
		}
	}
}

// nextLine advances the load model by one sample and formats it.
// Must be called with mu held.
func (m *Mock) nextLine(now time.Time) string {
	rpm := m.conv.PeriodToRPM(m.period)

	// First order lag towards the steady state load for this speed
	target := m.cfg.BaseCount + m.cfg.CountsPerRPM*rpm
	alpha := 1.0
	if m.cfg.ResponseLag > 0 {
		alpha = 1 - math.Exp(-m.cfg.SampleRate.Seconds()/m.cfg.ResponseLag.Seconds())
	}
	m.load += alpha * (target - m.load)

	noise := (m.rng.Float64()*2 - 1) * m.cfg.NoiseCounts
	count := int64(math.Round(m.load + noise))

	m.emitted++
	line := fmt.Sprintf("%s,%d,%d,%d", DataMarker, now.Sub(m.startTime).Milliseconds(), count, m.period)
	if m.cfg.NoiseLineEvery > 0 && m.emitted%m.cfg.NoiseLineEvery == 0 {
		// Corrupt the line the way a glitch on the wire would
		return line[:len(line)/2] + "\xff\xfe"
	}
	return line
}

// push queues a line, dropping it if the reader fell behind.
func (m *Mock) push(line string) {
	select {
	case m.lines <- line:
	default:
	}
}
