// Package logsink persists controller output as a verbatim raw log and a
// parsed data log.
package logsink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/goushi/pkg/sample"
)

// StampLayout formats the run timestamp used in file names.
const StampLayout = "2006-01-02_15-04-05"

// Column headers. The data header is read by the curve fitting tool by
// column name, do not rename.
var (
	RawHeader  = []string{"Timestamp", "log and response"}
	DataHeader = []string{"Timestamp(python)", "Timestamp(ESP32)", "weight", "speed(delay)", "speed(rpm)"}
)

// ResourceError reports a log or image file that could not be created.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("cannot create %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Paths are the files produced by one run.
type Paths struct {
	Raw   string
	Data  string
	Image string
}

// NewPaths names the run files in dir after the start time and memo.
func NewPaths(dir string, start time.Time, memo string) Paths {
	prefix := filepath.Join(dir, start.Format(StampLayout)+"_"+sanitize(memo))
	return Paths{
		Raw:   prefix + "_esp32_raw.csv",
		Data:  prefix + "_esp32_data.csv",
		Image: prefix + "_graph_image.png",
	}
}

// sanitize keeps the memo from escaping the log directory.
func sanitize(memo string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(memo))
}

// Dual is the pair of run logs.
type Dual struct {
	paths Paths
	raw   *CSVWriter
	data  *CSVWriter
}

// Open creates the log directory and both log files with their headers.
func Open(paths Paths) (*Dual, error) {
	if dir := filepath.Dir(paths.Raw); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ResourceError{Path: dir, Err: err}
		}
	}

	raw, err := NewCSVWriter(paths.Raw, RawHeader)
	if err != nil {
		return nil, err
	}
	data, err := NewCSVWriter(paths.Data, DataHeader)
	if err != nil {
		raw.Close()
		return nil, err
	}

	return &Dual{paths: paths, raw: raw, data: data}, nil
}

// Paths returns the files of this run.
func (d *Dual) Paths() Paths {
	return d.paths
}

// WriteRaw appends a line received at hostTime (or a log message) to the raw log.
func (d *Dual) WriteRaw(hostTime float64, text string) error {
	return d.raw.WriteRow([]string{formatFloat(hostTime), text})
}

// WriteSample appends a parsed sample to the data log.
func (d *Dual) WriteSample(s sample.Sample) error {
	return d.data.WriteRow([]string{
		formatFloat(s.HostTime),
		strconv.FormatInt(s.DeviceTime, 10),
		formatFloat(s.Weight),
		strconv.FormatInt(s.Period, 10),
		formatFloat(s.SpeedRPM),
	})
}

// RawRows returns the number of raw log rows written.
func (d *Dual) RawRows() uint64 {
	return d.raw.Rows()
}

// DataRows returns the number of data log rows written.
func (d *Dual) DataRows() uint64 {
	return d.data.Rows()
}

// Close closes both logs. It is safe to call more than once.
func (d *Dual) Close() error {
	return errors.Join(d.raw.Close(), d.data.Close())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
