package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danieljhkim/trialgate/internal/clock"
	"github.com/danieljhkim/trialgate/internal/state"
)

// Countdown is the recurring expiry check of a running trial.
//
// Every check interval it reloads the trial record and recomputes the time
// left from the persisted start, so delayed or dropped ticks never skew
// it. It ends when the trial expires, on Stop, on context cancellation or
// on a store error. The display is cleared in every case.
type Countdown struct {
	e      *Engine
	fp     string
	ticker clock.Ticker

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	expired bool
	err     error
}

// StartCountdown shows remaining and starts the periodic check for fp.
func (e *Engine) StartCountdown(ctx context.Context, fp string, remaining time.Duration) *Countdown {
	c := &Countdown{
		e:      e,
		fp:     fp,
		ticker: e.clock.NewTicker(e.opts.CheckInterval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.display.Show(remaining)
	go c.loop(ctx)
	return c
}

func (c *Countdown) loop(ctx context.Context) {
	defer close(c.done)
	defer c.e.display.Clear()
	defer c.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.err = ctx.Err()
			return
		case <-c.stop:
			return
		case <-c.ticker.C():
			expired, err := c.check(ctx)
			if err != nil {
				c.err = err
				return
			}
			if expired {
				c.expired = true
				return
			}
		}
	}
}

// check runs one expiry check. A record already marked used by another
// context counts as expiry.
func (c *Countdown) check(ctx context.Context) (bool, error) {
	trial, err := c.e.records.Trial(c.fp)
	if errors.Is(err, state.ErrNotFound) {
		return false, fmt.Errorf("%w for %s", ErrTrialMissing, c.fp)
	}
	if err != nil {
		return false, err
	}
	if trial.Used {
		return true, nil
	}

	remaining := c.e.remaining(trial, c.e.clock.Now())
	if remaining <= 0 {
		if err := c.e.expire(ctx, c.fp, trial); err != nil {
			return false, err
		}
		return true, nil
	}

	c.e.display.Show(remaining)
	return false, nil
}

// Stop cancels the check. It is safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once the check has ended.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the check ends. expired reports whether it ended
// because the trial expired.
func (c *Countdown) Wait() (expired bool, err error) {
	<-c.done
	return c.expired, c.err
}
