package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMock_GracefulShutdown tests that a blocked ReadLine is released with a
// ChannelError when the simulated controller is closed.
func TestMock_GracefulShutdown(t *testing.T) {
	m := NewMock(testMockConfig(), testConverter(200))

	// Consume the greeting so the next read blocks
	_, err := m.ReadLine(50 * time.Millisecond)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := m.ReadLine(5 * time.Second)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case err := <-errc:
		var cerr *ChannelError
		assert.True(t, errors.As(err, &cerr), "want ChannelError, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after Close")
	}

	// Close is idempotent and commands fail afterwards
	assert.NoError(t, m.Close())
	assert.Error(t, m.Send(CmdStopOutput))
}
