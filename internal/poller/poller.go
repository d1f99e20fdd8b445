// Package poller implements the client reconciliation contract. Token
// redemption happens out-of-band, in a browser tab driven by the external
// verification service, so the tab that started the flow cannot receive a
// direct response. Instead it polls the access decision on a fixed
// interval until the grant appears or a maximum wait elapses.
package poller

import (
	"context"
	"errors"
	"time"
)

// ErrAwaitTimeout is returned when the maximum wait elapses without the
// check resolving. Callers surface a manual retry affordance at this
// point; the external flow may simply have been abandoned.
var ErrAwaitTimeout = errors.New("await: gave up before resolution")

// CheckFunc reports whether the awaited state change has happened.
// Returning an error aborts the wait immediately.
type CheckFunc func(ctx context.Context) (bool, error)

// Await polls check every interval until it reports true, the maximum
// wait elapses, or ctx is cancelled. The first check runs immediately so
// an already-resolved state returns without waiting a full interval. The
// ticker and the deadline timer are always released on every return path,
// so an abandoned flow leaks nothing.
func Await(ctx context.Context, interval, maxWait time.Duration, check CheckFunc) error {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}

	done, err := check(ctx)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrAwaitTimeout
		case <-ticker.C:
			done, err := check(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
