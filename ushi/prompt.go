package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/ramp"
)

// errInputClosed is returned when stdin reaches EOF.
var errInputClosed = errors.New("input closed")

// prompter asks the operator for run parameters on a line-oriented terminal.
// Reads give up when the context is cancelled.
type prompter struct {
	out   io.Writer
	lines chan string
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{out: out, lines: make(chan string)}
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
	}()
	return p
}

func (p *prompter) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", errInputClosed
		}
		return line, nil
	}
}

// askCount asks until the operator types a non-negative integer.
func (p *prompter) askCount(ctx context.Context, field, prompt string) (string, error) {
	for {
		line, err := p.readLine(ctx, prompt)
		if err != nil {
			return "", err
		}
		if _, err := ramp.ParseCount(field, line); err != nil {
			fmt.Fprintln(p.out, err)
			fmt.Fprintln(p.out, "Please enter a non-negative integer.")
			continue
		}
		return strings.TrimSpace(line), nil
	}
}

// runParams are the raw operator inputs of a run. Empty fields are asked for.
type runParams struct {
	Initial  string
	Final    string
	Steps    string
	Duration string
	Memo     string
}

func (r runParams) complete() bool {
	return r.Initial != "" && r.Final != "" && r.Steps != "" && r.Duration != ""
}

// askRun fills the missing parameters of preset and validates them.
func (p *prompter) askRun(ctx context.Context, preset runParams) (ramp.RunConfig, error) {
	params := preset
	questions := []struct {
		field  string
		prompt string
		value  *string
	}{
		{ramp.FieldInitialRPM, "Initial rpm: ", &params.Initial},
		{ramp.FieldFinalRPM, "Final rpm: ", &params.Final},
		{ramp.FieldSteps, "How many times should the speed change? ", &params.Steps},
		{ramp.FieldDuration, "Run time in seconds: ", &params.Duration},
	}

	for {
		for _, q := range questions {
			if *q.value != "" {
				continue
			}
			v, err := p.askCount(ctx, q.field, q.prompt)
			if err != nil {
				return ramp.RunConfig{}, err
			}
			*q.value = v
		}

		rc, err := ramp.Parse(params.Initial, params.Final, params.Steps, params.Duration)
		if err == nil {
			return rc, nil
		}

		// A bad preset is asked for again
		var cerr *ramp.ConfigError
		if !errors.As(err, &cerr) {
			return ramp.RunConfig{}, err
		}
		fmt.Fprintln(p.out, err)
		for _, q := range questions {
			if q.field == cerr.Field {
				*q.value = ""
			}
		}
	}
}

// askMemo asks for a memo used in the file names. A blank memo gets a short
// random id.
func (p *prompter) askMemo(ctx context.Context) (string, error) {
	line, err := p.readLine(ctx, "Memo for this run (may be blank): ")
	if err != nil {
		return "", err
	}
	return memoOrID(line), nil
}

func memoOrID(memo string) string {
	memo = strings.TrimSpace(memo)
	if memo == "" {
		return uuid.NewString()[:8]
	}
	return memo
}

// confirm shows the settings and waits for Enter.
func (p *prompter) confirm(ctx context.Context, rc ramp.RunConfig, memo string) error {
	fmt.Fprintln(p.out, "Entered values:")
	fmt.Fprintln(p.out, "  initial rpm:  ", rc.InitialRPM)
	fmt.Fprintln(p.out, "  final rpm:    ", rc.FinalRPM)
	fmt.Fprintln(p.out, "  speed changes:", rc.Steps)
	fmt.Fprintln(p.out, "  run time:     ", rc.Duration)
	fmt.Fprintln(p.out, "  memo:         ", memo)
	_, err := p.readLine(ctx, "Press Enter to start.")
	return err
}

// choosePort lists the serial ports and asks for one by number.
func (p *prompter) choosePort(ctx context.Context, ports []device.Port) (string, error) {
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}

	fmt.Fprintln(p.out, "Available serial ports:")
	for i, port := range ports {
		fmt.Fprintf(p.out, "%d: %s - %s\n", i+1, port.Name, port.Description)
	}

	for {
		line, err := p.readLine(ctx, "Select a port number: ")
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(ports) {
			fmt.Fprintln(p.out, "Invalid choice, try again.")
			continue
		}
		return ports[n-1].Name, nil
	}
}
