package session

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/itohio/goushi/pkg/acquire"
	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/logsink"
	"github.com/itohio/goushi/pkg/ramp"
	"github.com/itohio/goushi/pkg/sample"
	"github.com/itohio/goushi/pkg/scope"
	"github.com/itohio/goushi/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel answers nothing and fails its n-th read if failReadAt is set.
type fakeChannel struct {
	mu         sync.Mutex
	sent       []string
	reads      int
	failReadAt int
	closed     int
}

func (c *fakeChannel) Send(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return &device.ChannelError{Op: "write", Err: io.ErrClosedPipe}
	}
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *fakeChannel) ReadLine(timeout time.Duration) (string, error) {
	c.mu.Lock()
	c.reads++
	fail := c.failReadAt != 0 && c.reads >= c.failReadAt
	c.mu.Unlock()

	if fail {
		return "", &device.ChannelError{Op: "read", Err: io.ErrUnexpectedEOF}
	}
	time.Sleep(min(timeout, 5*time.Millisecond))
	return "", nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

type fakeSurface struct {
	mu       sync.Mutex
	title    string
	captions []string
	renders  int
	once    sync.Once
	closed  chan struct{}
}

func (f *fakeSurface) Render(sample.Series) {
	f.mu.Lock()
	f.renders++
	f.mu.Unlock()
}

func (f *fakeSurface) SetTitle(title string) {
	f.mu.Lock()
	f.captions = append(f.captions, title)
	f.mu.Unlock()
}

func (f *fakeSurface) Close()                  { f.once.Do(func() { close(f.closed) }) }
func (f *fakeSurface) Closed() <-chan struct{} { return f.closed }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Logging.Directory = filepath.Join(t.TempDir(), "data")
	cfg.Serial.ReadTimeout = 20 * time.Millisecond
	cfg.Plot.RefreshInterval = 10 * time.Millisecond
	cfg.Plot.ImageDPI = 30
	cfg.Mock.SampleRate = 10 * time.Millisecond
	cfg.Mock.NoiseLineEvery = 4
	cfg.Mock.ResponseLag = 50 * time.Millisecond
	return cfg
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 30, 0, 0, time.Local)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSession_RunWithMock(t *testing.T) {
	cfg := testConfig(t)

	var mock *device.Mock
	surface := &fakeSurface{closed: make(chan struct{})}
	s := New(cfg, Options{
		Open: func() (device.Channel, error) {
			mock = device.NewMock(&cfg.Mock, units.New(cfg.LoadCell, cfg.Motor))
			return mock, nil
		},
		Surface: func(title string) scope.Surface {
			surface.title = title
			return surface
		},
		Clock: fixedClock,
	})

	rc := ramp.RunConfig{InitialRPM: 0, FinalRPM: 100, Steps: 1, Duration: 400 * time.Millisecond}
	res, err := s.Run(context.Background(), rc, "belt")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, acquire.Finished, res.State)
	assert.NoError(t, res.ExportErr)
	assert.Greater(t, res.Stats.Samples, uint64(0))
	assert.Greater(t, res.Stats.Malformed, uint64(0))

	want := logsink.NewPaths(cfg.Logging.Directory, fixedClock(), "belt")
	assert.Equal(t, want, res.Paths)
	assert.FileExists(t, res.Paths.Image)

	raw := readRows(t, res.Paths.Raw)
	assert.Equal(t, logsink.RawHeader, raw[0])
	assert.Equal(t, "settings:", raw[1][1])
	assert.Equal(t, acquire.FinishedMessage, raw[len(raw)-1][1])

	data := readRows(t, res.Paths.Data)
	assert.Equal(t, logsink.DataHeader, data[0])
	assert.Equal(t, int(res.Stats.Samples), len(data)-1)

	// Surface was drawn and closed by the refresher
	assert.Equal(t, "ushi belt", surface.title)
	assert.Greater(t, surface.renders, 1)
	require.NotEmpty(t, surface.captions)
	assert.Equal(t, "ushi belt - step 2/2 at 100 rpm (finished)", surface.captions[len(surface.captions)-1])
	select {
	case <-surface.Closed():
	default:
		t.Fatal("surface not closed")
	}

	// Channel was closed in teardown
	assert.Error(t, mock.Send(device.CmdStartOutput))
}

func TestSession_ChannelErrorTearsDown(t *testing.T) {
	cfg := testConfig(t)
	ch := &fakeChannel{failReadAt: 5}

	var sinks *logsink.Dual
	s := New(cfg, Options{
		Open:  func() (device.Channel, error) { return ch, nil },
		Clock: fixedClock,
	})
	s.openSinks = func(p logsink.Paths) (*logsink.Dual, error) {
		d, err := logsink.Open(p)
		sinks = d
		return d, err
	}

	rc := ramp.RunConfig{InitialRPM: 10, FinalRPM: 20, Steps: 1, Duration: time.Minute}
	res, err := s.Run(context.Background(), rc, "fail")

	var cerr *device.ChannelError
	require.True(t, errors.As(err, &cerr), "want ChannelError, got %v", err)
	require.NotNil(t, res)
	assert.Equal(t, acquire.Draining, res.State)

	// Motor stopped, then stop_output, channel closed exactly once
	assert.Equal(t, []string{device.SetSpeed(0), device.CmdStopOutput}, ch.sent[len(ch.sent)-2:])
	assert.Equal(t, 1, ch.closed)

	// Both logs are closed
	require.NotNil(t, sinks)
	assert.Error(t, sinks.WriteRaw(0, "late"))
	assert.Error(t, sinks.WriteSample(sample.Sample{}))

	// Image is still exported from what was collected
	assert.FileExists(t, res.Paths.Image)

	raw := readRows(t, res.Paths.Raw)
	assert.NotEqual(t, acquire.FinishedMessage, raw[len(raw)-1][1])
}

func TestSession_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	ch := &fakeChannel{}
	s := New(cfg, Options{
		Open:    func() (device.Channel, error) { return ch, nil },
		Clock:   fixedClock,
		NoImage: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := s.Run(ctx, ramp.RunConfig{Duration: time.Hour}, "cancel")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, ch.closed)
	assert.Equal(t, []string{device.SetSpeed(0), device.CmdStopOutput}, ch.sent[len(ch.sent)-2:])
	assert.NoFileExists(t, res.Paths.Image)
}

func TestSession_CancelledMidRampStopsMotor(t *testing.T) {
	cfg := testConfig(t)
	ch := &fakeChannel{}
	s := New(cfg, Options{
		Open:    func() (device.Channel, error) { return ch, nil },
		Clock:   fixedClock,
		NoImage: true,
	})
	conv := units.New(cfg.LoadCell, cfg.Motor)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := s.Run(ctx, ramp.RunConfig{InitialRPM: 60, FinalRPM: 120, Steps: 1, Duration: time.Hour}, "spin")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{
		device.CmdStartOutput,
		device.SetSpeed(0),
		device.SetSpeed(conv.RPMToPeriod(60)),
		device.SetSpeed(0),
		device.CmdStopOutput,
	}, ch.sent)
}

func TestSession_FinishedRunStopsOnce(t *testing.T) {
	cfg := testConfig(t)
	ch := &fakeChannel{}
	s := New(cfg, Options{
		Open:    func() (device.Channel, error) { return ch, nil },
		Clock:   fixedClock,
		NoImage: true,
	})
	conv := units.New(cfg.LoadCell, cfg.Motor)

	res, err := s.Run(context.Background(), ramp.RunConfig{InitialRPM: 60, FinalRPM: 60}, "short")
	require.NoError(t, err)
	assert.Equal(t, acquire.Finished, res.State)
	assert.Equal(t, []string{
		device.CmdStartOutput,
		device.SetSpeed(0),
		device.SetSpeed(conv.RPMToPeriod(60)),
		device.SetSpeed(0),
		device.CmdStopOutput,
	}, ch.sent)
}

func TestSession_ResourceErrorBeforeOpen(t *testing.T) {
	cfg := testConfig(t)
	// A file where the log directory should be
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Logging.Directory), 0755))
	require.NoError(t, os.WriteFile(cfg.Logging.Directory, []byte("x"), 0644))

	opened := 0
	s := New(cfg, Options{
		Open: func() (device.Channel, error) {
			opened++
			return &fakeChannel{}, nil
		},
	})

	res, err := s.Run(context.Background(), ramp.RunConfig{Duration: time.Second}, "x")
	var rerr *logsink.ResourceError
	require.True(t, errors.As(err, &rerr))
	assert.Nil(t, res)
	assert.Equal(t, 0, opened)
}

func TestSession_OpenError(t *testing.T) {
	cfg := testConfig(t)

	var sinks *logsink.Dual
	s := New(cfg, Options{
		Open: func() (device.Channel, error) {
			return nil, errors.New("no such port")
		},
		Clock: fixedClock,
	})
	s.openSinks = func(p logsink.Paths) (*logsink.Dual, error) {
		d, err := logsink.Open(p)
		sinks = d
		return d, err
	}

	res, err := s.Run(context.Background(), ramp.RunConfig{Duration: time.Second}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such port")
	require.NotNil(t, res)
	assert.Error(t, sinks.WriteRaw(0, "late"))
}

func TestSession_InvalidConfig(t *testing.T) {
	s := New(testConfig(t), Options{
		Open: func() (device.Channel, error) { return &fakeChannel{}, nil },
	})

	_, err := s.Run(context.Background(), ramp.RunConfig{Steps: -1}, "x")
	var cerr *ramp.ConfigError
	assert.True(t, errors.As(err, &cerr))
}
