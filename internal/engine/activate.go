package engine

import (
	"context"
	"fmt"
)

// Activate verifies token and stores it verbatim as the license of fp.
// An empty token returns license.ErrEmptyToken and changes nothing.
func (e *Engine) Activate(ctx context.Context, fp, token string) error {
	if err := e.verifier.Verify(ctx, fp, token); err != nil {
		return err
	}
	if err := e.records.SaveLicense(fp, token); err != nil {
		return fmt.Errorf("failed to save license: %w", err)
	}
	e.logg.Info(ctx, "license saved")
	return nil
}

// ActivateLicense stores a token outside of a gate run and returns the
// decision the next run will make.
func (e *Engine) ActivateLicense(ctx context.Context, req *ActivateRequest) (*ActivateResult, error) {
	fp, err := e.resolveFingerprint(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}
	ctx = e.logg.WithFingerprint(ctx, fp)

	if err := e.Activate(ctx, fp, req.Token); err != nil {
		return nil, err
	}

	decision, err := e.Preview(ctx, fp)
	if err != nil {
		return nil, err
	}

	return &ActivateResult{Fingerprint: fp, Decision: decision}, nil
}

// SetLock sets or clears the lock flag. This is the operator override;
// the gate flow itself never writes the lock.
func (e *Engine) SetLock(ctx context.Context, req *LockRequest) (*LockResult, error) {
	fp, err := e.resolveFingerprint(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}
	ctx = e.logg.WithFingerprint(ctx, fp)

	if req.Locked {
		err = e.records.SetLock(fp)
	} else {
		err = e.records.ClearLock(fp)
	}
	if err != nil {
		return nil, err
	}

	if req.Locked {
		e.logg.Warn(ctx, "fingerprint locked")
	} else {
		e.logg.Info(ctx, "fingerprint unlocked")
	}
	return &LockResult{Fingerprint: fp, Locked: req.Locked}, nil
}

func (e *Engine) resolveFingerprint(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	fp, err := e.Fingerprint(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to derive fingerprint: %w", err)
	}
	return fp, nil
}
