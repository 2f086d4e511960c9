package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/ramp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(input string) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return newPrompter(strings.NewReader(input), out), out
}

func TestPrompter_AskRun(t *testing.T) {
	p, out := newTestPrompter("abc\n-5\n0\n100\n\n1\n2\n")

	rc, err := p.askRun(context.Background(), runParams{})
	require.NoError(t, err)
	assert.Equal(t, ramp.RunConfig{InitialRPM: 0, FinalRPM: 100, Steps: 1, Duration: 2 * time.Second}, rc)

	// Two bad inputs and one blank one were rejected
	assert.Equal(t, 3, strings.Count(out.String(), "Please enter a non-negative integer."))
	assert.Contains(t, out.String(), "not an integer")
	assert.Contains(t, out.String(), "negative values are not allowed")
}

func TestPrompter_AskRunPreset(t *testing.T) {
	p, out := newTestPrompter("30\n")

	rc, err := p.askRun(context.Background(), runParams{Initial: "10", Final: "-1", Steps: "3", Duration: "60"})
	require.NoError(t, err)
	assert.Equal(t, 30, rc.FinalRPM)
	assert.Equal(t, 10, rc.InitialRPM)
	assert.Contains(t, out.String(), "invalid final_rpm")
	// Only the bad preset is asked again
	assert.Equal(t, 1, strings.Count(out.String(), "rpm: "))
}

func TestPrompter_InputClosed(t *testing.T) {
	p, _ := newTestPrompter("10\n")

	_, err := p.askRun(context.Background(), runParams{})
	assert.ErrorIs(t, err, errInputClosed)
}

func TestPrompter_Cancelled(t *testing.T) {
	// Reader that never returns
	r, w := io.Pipe()
	defer w.Close()
	p := newPrompter(r, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.askMemo(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPrompter_Memo(t *testing.T) {
	p, _ := newTestPrompter(" belt-a \n\n")

	memo, err := p.askMemo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "belt-a", memo)

	memo, err = p.askMemo(context.Background())
	require.NoError(t, err)
	assert.Len(t, memo, 8)
}

func TestPrompter_Confirm(t *testing.T) {
	p, out := newTestPrompter("\n")

	err := p.confirm(context.Background(), ramp.RunConfig{InitialRPM: 5, FinalRPM: 50, Steps: 2, Duration: time.Minute}, "memo")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1m0s")
	assert.Contains(t, out.String(), "Press Enter to start.")
}

func TestPrompter_ChoosePort(t *testing.T) {
	ports := []device.Port{{Name: "/dev/ttyUSB0", Description: "CP2102"}, {Name: "/dev/ttyACM0"}}
	p, out := newTestPrompter("x\n3\n2\n")

	name, err := p.choosePort(context.Background(), ports)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", name)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))

	_, err = p.choosePort(context.Background(), nil)
	assert.Error(t, err)
}
