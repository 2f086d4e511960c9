package ramp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RunConfig holds the parameters of a single ramp run.
type RunConfig struct {
	InitialRPM int           // Speed of the first step
	FinalRPM   int           // Speed of the last step
	Steps      int           // Number of speed changes during the run
	Duration   time.Duration // Total run time
}

// ConfigError reports an invalid run parameter.
type ConfigError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Reason)
}

// Field names used in ConfigError and in the raw log settings header.
const (
	FieldInitialRPM = "initial_rpm"
	FieldFinalRPM   = "final_rpm"
	FieldSteps      = "planned_steps"
	FieldDuration   = "operation_during"
)

// ParseCount parses a non-negative integer typed by the operator.
func ParseCount(field, input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, &ConfigError{Field: field, Reason: "value is required"}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ConfigError{Field: field, Input: input, Reason: "not an integer"}
	}
	if v < 0 {
		return 0, &ConfigError{Field: field, Input: input, Reason: "negative values are not allowed"}
	}
	return v, nil
}

// Parse builds a RunConfig from raw operator input. The duration is in whole seconds.
func Parse(initial, final, steps, duration string) (RunConfig, error) {
	var (
		cfg RunConfig
		err error
		sec int
	)
	if cfg.InitialRPM, err = ParseCount(FieldInitialRPM, initial); err != nil {
		return RunConfig{}, err
	}
	if cfg.FinalRPM, err = ParseCount(FieldFinalRPM, final); err != nil {
		return RunConfig{}, err
	}
	if cfg.Steps, err = ParseCount(FieldSteps, steps); err != nil {
		return RunConfig{}, err
	}
	if sec, err = ParseCount(FieldDuration, duration); err != nil {
		return RunConfig{}, err
	}
	if int64(sec) > math.MaxInt64/int64(time.Second) {
		return RunConfig{}, &ConfigError{Field: FieldDuration, Input: duration, Reason: "too large"}
	}
	cfg.Duration = time.Duration(sec) * time.Second
	return cfg, cfg.Validate()
}

// Validate checks the invariants of a RunConfig built in code.
func (c RunConfig) Validate() error {
	switch {
	case c.InitialRPM < 0:
		return &ConfigError{Field: FieldInitialRPM, Input: strconv.Itoa(c.InitialRPM), Reason: "negative values are not allowed"}
	case c.FinalRPM < 0:
		return &ConfigError{Field: FieldFinalRPM, Input: strconv.Itoa(c.FinalRPM), Reason: "negative values are not allowed"}
	case c.Steps < 0:
		return &ConfigError{Field: FieldSteps, Input: strconv.Itoa(c.Steps), Reason: "negative values are not allowed"}
	case c.Steps == math.MaxInt:
		return &ConfigError{Field: FieldSteps, Input: strconv.Itoa(c.Steps), Reason: "too large"}
	case c.Duration < 0:
		return &ConfigError{Field: FieldDuration, Input: c.Duration.String(), Reason: "negative values are not allowed"}
	}
	return nil
}

// Settings returns the run parameters as "name: value" lines, in the order
// they are recorded at the top of the raw log.
func (c RunConfig) Settings() []string {
	return []string{
		"settings:",
		fmt.Sprintf("%s: %d", FieldInitialRPM, c.InitialRPM),
		fmt.Sprintf("%s: %d", FieldFinalRPM, c.FinalRPM),
		fmt.Sprintf("%s: %d", FieldSteps, c.Steps),
		fmt.Sprintf("%s: %d", FieldDuration, int64(c.Duration/time.Second)),
	}
}
