package logsink

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// CSVWriter is an append-only CSV file that flushes every row to the OS,
// so a crash loses at most the row being written.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	buf    *bufio.Writer
	csv    *csv.Writer
	rows   uint64
	closed bool
}

// NewCSVWriter creates the file at path and writes the header row.
func NewCSVWriter(path string, header []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}

	bw := bufio.NewWriter(f)
	w := &CSVWriter{
		path: path,
		file: f,
		buf:  bw,
		csv:  csv.NewWriter(bw),
	}

	if len(header) > 0 {
		if err := w.write(header); err != nil {
			f.Close()
			return nil, &ResourceError{Path: path, Err: err}
		}
	}

	return w, nil
}

// WriteRow appends a single row and flushes it.
func (w *CSVWriter) WriteRow(row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("csv %s: write after close", w.path)
	}
	if err := w.write(row); err != nil {
		return fmt.Errorf("csv %s: %w", w.path, err)
	}
	w.rows++
	return nil
}

func (w *CSVWriter) write(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes remaining data and closes the file. Subsequent calls return nil.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	ferr := w.buf.Flush()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("csv %s: %w", w.path, err)
	}
	if ferr != nil {
		return fmt.Errorf("csv %s: %w", w.path, ferr)
	}
	return nil
}

// Rows returns the number of data rows written (excludes header).
func (w *CSVWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}
