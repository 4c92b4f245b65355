package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/danieljhkim/trialgate/internal/activation"
)

// Run performs one gate pass for the page in req.
//
// On a page other than the allowed one the gate warns and does nothing.
// Otherwise it derives the fingerprint and decides. LICENSED loads the
// payload. TRIAL_RUNNING starts the countdown before loading the payload,
// so expiry is checked even while a fetch hangs, then waits until the
// trial expires. LOCKED and TRIAL_EXPIRED show the activation panel; an
// accepted token reloads the decision from the top.
func (e *Engine) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString()}
	ctx = e.logg.WithRunID(ctx, result.RunID)

	if req.PageURL != e.opts.AllowedPage {
		pageCtx := e.logg.WithField(ctx, "page", req.PageURL)
		pageCtx = e.logg.WithField(pageCtx, "allowed_page", e.opts.AllowedPage)
		e.logg.Warn(pageCtx, "page address does not match, gate inactive")
		result.Skipped = true
		return result, nil
	}

	fp, err := e.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to derive fingerprint: %w", err)
	}
	ctx = e.logg.WithFingerprint(ctx, fp)
	result.Fingerprint = fp

	for {
		d, err := e.Decide(ctx, fp)
		if err != nil {
			return result, err
		}
		result.Decisions = append(result.Decisions, *d)
		result.State = d.State
		e.logg.Info(e.logg.WithField(ctx, "state", string(d.State)), "gate decided")

		switch d.State {
		case StateLicensed:
			e.load(ctx, result)
			return result, nil

		case StateTrialRunning:
			countdown := e.StartCountdown(ctx, fp, d.Remaining)
			e.load(ctx, result)

			expired, err := countdown.Wait()
			if err != nil {
				return result, err
			}
			if !expired {
				return result, nil
			}
			result.State = StateTrialExpired
		}

		if !result.State.Blocked() {
			return result, fmt.Errorf("unexpected gate state %s", result.State)
		}
		activated, err := e.block(ctx, fp, result.State)
		if err != nil {
			return result, err
		}
		if !activated {
			result.Dismissed = true
			return result, nil
		}
		result.Activated = true
		e.logg.Info(ctx, "license activated, reloading")
	}
}

func (e *Engine) load(ctx context.Context, result *RunResult) {
	if e.loader.LoadAndRun(ctx) {
		result.Loads++
	} else {
		result.LoadFailures++
	}
}

// block shows the activation panel. It reports whether a token was
// accepted.
func (e *Engine) block(ctx context.Context, fp string, st State) (bool, error) {
	if e.panel == nil {
		return false, fmt.Errorf("%w: %s", ErrBlocked, st)
	}

	n := activation.Notice{
		Reason:      string(st),
		Fingerprint: fp,
		PaymentURL:  e.opts.PaymentURL,
	}
	err := e.panel.Show(ctx, n, func(token string) error {
		return e.Activate(ctx, fp, token)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, activation.ErrDismissed):
		e.logg.Info(ctx, "activation panel dismissed")
		return false, nil
	default:
		return false, err
	}
}
