package device

import (
	"fmt"
	"time"
)

// Channel is the line-oriented command link to the controller (real or simulated).
type Channel interface {
	// Send writes one newline-terminated command without waiting for a reply.
	Send(cmd string) error
	// ReadLine waits up to timeout for a line. It returns "" and a nil error
	// if no complete line arrived in time.
	ReadLine(timeout time.Duration) (string, error)
	Close() error
}

// ChannelError reports a failure of the underlying connection.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Ensure Serial implements Channel.
var _ Channel = (*Serial)(nil)

// Ensure Mock implements Channel.
var _ Channel = (*Mock)(nil)
