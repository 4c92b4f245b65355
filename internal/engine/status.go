package engine

import (
	"context"
)

// Status returns the persisted slots and the decision the next run would
// make. It does not write anything.
func (e *Engine) Status(ctx context.Context, req *StatusRequest) (*StatusResult, error) {
	fp, err := e.resolveFingerprint(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}

	slots, err := e.records.Snapshot(fp)
	if err != nil {
		return nil, err
	}

	decision, err := e.Preview(ctx, fp)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Fingerprint: fp,
		Slots:       slots,
		Decision:    decision,
	}, nil
}
