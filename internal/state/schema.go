package state

import "time"

// Slot names one of the per-fingerprint records.
type Slot string

const (
	// SlotLock holds the operator lock flag.
	SlotLock Slot = "lock"

	// SlotTrial holds the JSON-encoded TrialRecord.
	SlotTrial Slot = "trial"

	// SlotLicense holds the opaque license token.
	SlotLicense Slot = "license"
)

// KeyPrefix namespaces every key written by trialgate.
const KeyPrefix = "trialgate"

// Key returns the store key of slot for fingerprint.
// The fingerprint is always the suffix.
func Key(slot Slot, fingerprint string) string {
	return KeyPrefix + "_" + string(slot) + "_" + fingerprint
}

// TrialRecord is the persisted state of a fingerprint's trial.
type TrialRecord struct {
	// Start is when the trial began, in Unix milliseconds.
	Start int64 `json:"start"`

	// Used is set once the trial has run out. It never reverts.
	Used bool `json:"used"`
}

// NewTrialRecord creates an unused trial starting at t.
func NewTrialRecord(t time.Time) *TrialRecord {
	return &TrialRecord{Start: t.UnixMilli(), Used: false}
}

// StartTime returns Start as a time.Time.
func (r *TrialRecord) StartTime() time.Time {
	return time.UnixMilli(r.Start)
}

// Elapsed returns the time since Start at now. It may be negative when the
// wall clock moved backwards.
func (r *TrialRecord) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.StartTime())
}
