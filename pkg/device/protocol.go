package device

import (
	"fmt"
	"strconv"
	"strings"
)

// Commands understood by the controller firmware.
const (
	CmdStartOutput = "start_output"
	CmdStopOutput  = "stop_output"
	CmdSetSpeed    = "set_speed"
)

// DataMarker tags controller lines that carry a measurement.
const DataMarker = "[data]"

// SetSpeed builds the command that sets the step delay period. Zero stops the motor.
func SetSpeed(period int64) string {
	return fmt.Sprintf("%s %d", CmdSetSpeed, period)
}

// DataLine is a decoded measurement line.
type DataLine struct {
	DeviceTime int64 // Controller clock
	RawCount   int64 // HX711 reading
	Period     int64 // Step delay period the motor is running at
}

// ParseError reports a data line that could not be decoded.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid data line %q: %s", e.Line, e.Reason)
}

// IsDataLine reports whether a controller line carries a measurement.
func IsDataLine(line string) bool {
	return strings.Contains(line, DataMarker)
}

// ParseDataLine decodes a line of the form [data],device_time,raw_count,period.
func ParseDataLine(line string) (DataLine, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return DataLine{}, &ParseError{Line: line, Reason: fmt.Sprintf("expected 4 comma-separated values, got %d", len(parts))}
	}
	if !strings.Contains(parts[0], DataMarker) {
		return DataLine{}, &ParseError{Line: line, Reason: "missing " + DataMarker + " marker"}
	}

	var (
		d   DataLine
		err error
	)
	if d.DeviceTime, err = parseField(parts[1]); err != nil {
		return DataLine{}, &ParseError{Line: line, Reason: "device time: " + err.Error()}
	}
	if d.RawCount, err = parseField(parts[2]); err != nil {
		return DataLine{}, &ParseError{Line: line, Reason: "raw count: " + err.Error()}
	}
	if d.Period, err = parseField(parts[3]); err != nil {
		return DataLine{}, &ParseError{Line: line, Reason: "period: " + err.Error()}
	}
	return d, nil
}

func parseField(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}
