package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/state"
)

// Decide resolves the gate state for fp. First match wins:
//  1. lock flag present: LOCKED
//  2. license token present and accepted: LICENSED
//  3. no trial record: a new trial is persisted, TRIAL_RUNNING
//  4. trial used: TRIAL_EXPIRED
//  5. trial elapsed: the trial is marked used, TRIAL_EXPIRED;
//     otherwise TRIAL_RUNNING with the time left
//
// A trial record that does not parse aborts the decision with
// state.ErrMalformed.
func (e *Engine) Decide(ctx context.Context, fp string) (*Decision, error) {
	return e.decide(ctx, fp, true)
}

// Preview computes the decision Decide would return without writing.
func (e *Engine) Preview(ctx context.Context, fp string) (*Decision, error) {
	return e.decide(ctx, fp, false)
}

func (e *Engine) decide(ctx context.Context, fp string, persist bool) (*Decision, error) {
	d := &Decision{Fingerprint: fp}

	locked, err := e.records.Locked(fp)
	if err != nil {
		return nil, err
	}
	if locked {
		d.State = StateLocked
		return d, nil
	}

	token, ok, err := e.records.License(fp)
	if err != nil {
		return nil, err
	}
	if ok {
		err := e.verifier.Verify(ctx, fp, token)
		switch {
		case err == nil:
			d.State = StateLicensed
			return d, nil
		case errors.Is(err, license.ErrRejected), errors.Is(err, license.ErrEmptyToken):
			e.logg.Warn(ctx, "stored license token not accepted")
		default:
			return nil, fmt.Errorf("failed to verify license: %w", err)
		}
	}

	now := e.clock.Now()
	trial, err := e.records.Trial(fp)
	if errors.Is(err, state.ErrNotFound) {
		trial = state.NewTrialRecord(now)
		if persist {
			if err := e.records.SaveTrial(fp, trial); err != nil {
				return nil, err
			}
			e.logg.Info(ctx, "trial started")
		}
		d.State = StateTrialRunning
		d.NewTrial = true
		d.Remaining = e.opts.TrialDuration
		d.TrialStart = trial.StartTime()
		return d, nil
	}
	if err != nil {
		return nil, err
	}

	d.TrialStart = trial.StartTime()
	if trial.Used {
		d.State = StateTrialExpired
		return d, nil
	}

	remaining := e.remaining(trial, now)
	if remaining <= 0 {
		if persist {
			if err := e.expire(ctx, fp, trial); err != nil {
				return nil, err
			}
		}
		d.State = StateTrialExpired
		d.Expired = true
		return d, nil
	}

	d.State = StateTrialRunning
	d.Remaining = remaining
	return d, nil
}

// remaining computes the trial time left at now from the persisted start.
// A start in the future (clock moved back) counts as one check interval
// elapsed.
func (e *Engine) remaining(trial *state.TrialRecord, now time.Time) time.Duration {
	elapsed := trial.Elapsed(now)
	if elapsed < 0 {
		elapsed = e.opts.CheckInterval
	}
	return e.opts.TrialDuration - elapsed
}

// expire marks trial used and persists it.
func (e *Engine) expire(ctx context.Context, fp string, trial *state.TrialRecord) error {
	trial.Used = true
	if err := e.records.SaveTrial(fp, trial); err != nil {
		return err
	}
	e.logg.Info(ctx, "trial expired")
	return nil
}
