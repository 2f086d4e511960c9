package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/logsink"
	"github.com/itohio/goushi/pkg/ramp"
	"github.com/itohio/goushi/pkg/scope"
	"github.com/itohio/goushi/pkg/session"
)

// supervisor repeats runs until the operator stops, each with fresh
// parameters, a fresh connection and fresh logs.
type supervisor struct {
	cfg     *config.Config
	prompt  *prompter
	open    session.Opener
	surface session.SurfaceFactory
	preset  runParams
	once    bool
	yes     bool

	// status receives progress messages, may be nil
	status func(string)

	mu        sync.Mutex
	cancelRun context.CancelFunc
}

func (s *supervisor) runHeadless(ctx context.Context) error {
	s.surface = func(string) scope.Surface {
		return scope.NewTerminal(0, 0)
	}
	return s.run(ctx)
}

// run loops until ctx is cancelled, input ends, or after the first run with once set.
func (s *supervisor) run(ctx context.Context) error {
	sess := session.New(s.cfg, session.Options{
		Open:    s.open,
		Surface: s.surface,
	})

	for {
		rc, memo, err := s.next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, errInputClosed) {
				return nil
			}
			return err
		}

		s.setStatus(fmt.Sprintf("Running %s: %d to %d rpm in %d steps over %s",
			memo, rc.InitialRPM, rc.FinalRPM, rc.Steps, rc.Duration))

		runCtx, cancel := context.WithCancel(ctx)
		s.setCancel(cancel)
		res, err := sess.Run(runCtx, rc, memo)
		s.setCancel(nil)
		cancel()

		report(res, err)

		var rerr *logsink.ResourceError
		switch {
		case ctx.Err() != nil:
			s.setStatus("Stopped")
			return nil
		case errors.As(err, &rerr):
			// Nothing can be recorded, retrying would fail the same way
			return err
		case err != nil && !errors.Is(err, context.Canceled):
			log.Printf("Run failed: %v", err)
			s.setStatus("Run failed: " + err.Error())
		default:
			s.setStatus("Idle")
		}

		if s.once {
			return err
		}
	}
}

// next collects the parameters of the following run.
func (s *supervisor) next(ctx context.Context) (ramp.RunConfig, string, error) {
	rc, err := s.prompt.askRun(ctx, s.preset)
	if err != nil {
		return ramp.RunConfig{}, "", err
	}

	memo := memoOrID(s.preset.Memo)
	if s.preset.Memo == "" {
		if memo, err = s.prompt.askMemo(ctx); err != nil {
			return ramp.RunConfig{}, "", err
		}
	}

	if !s.yes {
		if err := s.prompt.confirm(ctx, rc, memo); err != nil {
			return ramp.RunConfig{}, "", err
		}
	}
	return rc, memo, nil
}

// stopRun aborts the current run, if any. The supervisor carries on with the next one.
func (s *supervisor) stopRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
}

func (s *supervisor) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
}

func (s *supervisor) setStatus(msg string) {
	if s.status != nil {
		s.status(msg)
	}
}

// report prints where the run was saved.
func report(res *session.Result, err error) {
	if res == nil {
		if err != nil {
			fmt.Println("Run did not start:", err)
		}
		return
	}

	if err != nil {
		fmt.Printf("Run ended in %s: %v\n", res.State, err)
	} else {
		fmt.Println("Run finished successfully.")
	}
	fmt.Printf("Samples: %d, lines: %d, malformed: %d\n", res.Stats.Samples, res.Stats.Lines, res.Stats.Malformed)
	fmt.Println("Raw log saved:", res.Paths.Raw)
	fmt.Println("Data log saved:", res.Paths.Data)
	if res.ExportErr == nil {
		fmt.Println("Graph image saved:", res.Paths.Image)
	}
}
