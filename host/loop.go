// Package host plays the part of the interactive host: it owns the timer that
// re-invokes the step controller and streams every output to subscribers.
package host

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwcarlsen/biorithm/step"
)

// Loop calls a step controller until it stops requesting ticks.  Only one
// tick is ever pending and ticks never overlap.
type Loop struct {
	Ctrl *step.Controller
	// Sink, if set, receives every output in order.
	Sink func(step.Output)
	Log  zerolog.Logger
}

// Run solves in and then serves tick requests until the controller stops
// asking for them, changes is closed with nothing pending, or ctx is done.
// Every value received on changes replaces the current inputs and is
// solved immediately; a pending tick survives a change unless the controller
// stops.
func (l *Loop) Run(ctx context.Context, in step.Input, changes <-chan step.Input) error {
	out, err := l.Ctrl.Solve(in)
	if err != nil {
		return err
	}
	l.emit(out)

	var timer *time.Timer
	var due <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		due = nil
	}
	defer stopTimer()

	for {
		if out.Next != nil && due == nil {
			l.Log.Debug().Dur("after", out.Next.After).Msg("tick scheduled")
			timer = time.NewTimer(out.Next.After)
			due = timer.C
		}
		if due == nil && changes == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			in = next
			if out, err = l.Ctrl.Solve(in); err != nil {
				return err
			}
			l.emit(out)
			if out.Next == nil {
				stopTimer()
			}
		case <-due:
			due = nil
			if out, err = l.Ctrl.Tick(in); err != nil {
				l.Log.Error().Err(err).Msg("tick failed")
				return err
			}
			l.emit(out)
		}
	}
}

func (l *Loop) emit(out step.Output) {
	if l.Sink != nil {
		l.Sink(out)
	}
}

// Run drives ctrl with fixed inputs until it stops or ctx is done.
func Run(ctx context.Context, ctrl *step.Controller, in step.Input, sink func(step.Output)) error {
	l := &Loop{Ctrl: ctrl, Sink: sink, Log: zerolog.Nop()}
	return l.Run(ctx, in, nil)
}
