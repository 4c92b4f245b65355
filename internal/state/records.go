package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// lockValue is written to the lock slot. Only presence is checked.
const lockValue = "1"

// Records provides typed access to the per-fingerprint slots.
// It is the only component that reads or writes slot values.
type Records struct {
	store Store
}

// NewRecords creates Records on top of store.
func NewRecords(store Store) *Records {
	return &Records{store: store}
}

// Locked reports whether the lock slot holds any value.
func (r *Records) Locked(fingerprint string) (bool, error) {
	_, ok, err := r.store.Read(Key(SlotLock, fingerprint))
	if err != nil {
		return false, fmt.Errorf("failed to read lock: %w", err)
	}
	return ok, nil
}

// SetLock sets the lock flag. Nothing in the gate flow calls this; it is
// the operator's manual override.
func (r *Records) SetLock(fingerprint string) error {
	if err := r.store.Write(Key(SlotLock, fingerprint), lockValue); err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}
	return nil
}

// ClearLock removes the lock flag.
func (r *Records) ClearLock(fingerprint string) error {
	if err := r.store.Delete(Key(SlotLock, fingerprint)); err != nil {
		return fmt.Errorf("failed to clear lock: %w", err)
	}
	return nil
}

// License returns the stored license token. ok is false when no token is
// stored or the stored token is empty.
func (r *Records) License(fingerprint string) (token string, ok bool, err error) {
	token, ok, err = r.store.Read(Key(SlotLicense, fingerprint))
	if err != nil {
		return "", false, fmt.Errorf("failed to read license: %w", err)
	}
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// SaveLicense stores token verbatim.
func (r *Records) SaveLicense(fingerprint, token string) error {
	if err := r.store.Write(Key(SlotLicense, fingerprint), token); err != nil {
		return fmt.Errorf("failed to write license: %w", err)
	}
	return nil
}

// Trial loads the trial record. Returns ErrNotFound if absent and a
// wrapped ErrMalformed if the stored value does not parse.
func (r *Records) Trial(fingerprint string) (*TrialRecord, error) {
	raw, ok, err := r.store.Read(Key(SlotTrial, fingerprint))
	if err != nil {
		return nil, fmt.Errorf("failed to read trial: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	var rec TrialRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: trial for %s: %v", ErrMalformed, fingerprint, err)
	}

	return &rec, nil
}

// SaveTrial persists rec.
func (r *Records) SaveTrial(fingerprint string, rec *TrialRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trial: %w", err)
	}

	if err := r.store.Write(Key(SlotTrial, fingerprint), string(data)); err != nil {
		return fmt.Errorf("failed to write trial: %w", err)
	}

	return nil
}

// Snapshot is a read-only view of all slots of one fingerprint.
type Snapshot struct {
	Fingerprint string       `json:"fingerprint"`
	Locked      bool         `json:"locked"`
	Licensed    bool         `json:"licensed"`
	Trial       *TrialRecord `json:"trial,omitempty"`
}

// Snapshot reads every slot. A malformed trial record is reported as an
// error like any other read.
func (r *Records) Snapshot(fingerprint string) (*Snapshot, error) {
	locked, err := r.Locked(fingerprint)
	if err != nil {
		return nil, err
	}
	_, licensed, err := r.License(fingerprint)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Fingerprint: fingerprint, Locked: locked, Licensed: licensed}

	trial, err := r.Trial(fingerprint)
	switch {
	case err == nil:
		snap.Trial = trial
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	return snap, nil
}
