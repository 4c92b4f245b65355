package engine

import (
	"github.com/danieljhkim/trialgate/internal/state"
)

// RunResult represents the result of one gate pass.
type RunResult struct {
	// RunID identifies the run in logs
	RunID string `json:"runId"`

	// Skipped is set when the page address did not match
	Skipped bool `json:"skipped"`

	// Fingerprint is the derived fingerprint (empty when skipped)
	Fingerprint string `json:"fingerprint,omitempty"`

	// State is the last state the run was in
	State State `json:"state,omitempty"`

	// Decisions lists every decision, one per reload
	Decisions []Decision `json:"decisions,omitempty"`

	// Loads counts successful payload starts
	Loads int `json:"loads"`

	// LoadFailures counts failed payload loads
	LoadFailures int `json:"loadFailures"`

	// Activated is set when a license was saved through the panel
	Activated bool `json:"activated"`

	// Dismissed is set when the user closed the panel
	Dismissed bool `json:"dismissed"`
}

// ActivateResult represents the result of storing a license token.
type ActivateResult struct {
	Fingerprint string    `json:"fingerprint"`
	Decision    *Decision `json:"decision"`
}

// LockResult represents the result of changing the lock flag.
type LockResult struct {
	Fingerprint string `json:"fingerprint"`
	Locked      bool   `json:"locked"`
}

// StatusResult represents the current gate status.
type StatusResult struct {
	// Fingerprint is the fingerprint the status was computed for
	Fingerprint string `json:"fingerprint"`

	// Slots is the raw view of the persisted slots
	Slots *state.Snapshot `json:"slots"`

	// Decision is what the next run would decide. Computing it does not
	// write anything.
	Decision *Decision `json:"decision"`
}
