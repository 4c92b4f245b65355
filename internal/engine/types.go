package engine

import (
	"fmt"
	"time"
)

// State is a gate state.
type State string

const (
	// StateLocked means the lock flag is present. Nothing loads.
	StateLocked State = "LOCKED"

	// StateLicensed means a license token is stored. The payload loads
	// with no trial bookkeeping.
	StateLicensed State = "LICENSED"

	// StateTrialNew is the transient state of a fingerprint without a
	// trial record. It always resolves to StateTrialRunning.
	StateTrialNew State = "TRIAL_NEW"

	// StateTrialRunning means the trial has time left.
	StateTrialRunning State = "TRIAL_RUNNING"

	// StateTrialExpired means the trial is used up. Nothing loads.
	StateTrialExpired State = "TRIAL_EXPIRED"
)

// Blocked reports whether s shows the activation panel instead of loading.
func (s State) Blocked() bool {
	return s == StateLocked || s == StateTrialExpired
}

// Decision is the outcome of one pass over the gate slots.
type Decision struct {
	// Fingerprint is the partition the decision was made for.
	Fingerprint string `json:"fingerprint"`

	// State is the resolved state. Never StateTrialNew.
	State State `json:"state"`

	// NewTrial is set when this decision created the trial record.
	NewTrial bool `json:"newTrial,omitempty"`

	// Remaining is the trial time left when State is StateTrialRunning.
	Remaining time.Duration `json:"remaining,omitempty"`

	// TrialStart is the persisted trial start, zero without a trial.
	TrialStart time.Time `json:"trialStart,omitempty"`

	// Expired is set when this decision marked the trial used.
	Expired bool `json:"expired,omitempty"`
}

// Path returns the states the decision passed through.
func (d *Decision) Path() []State {
	if d.NewTrial {
		return []State{StateTrialNew, d.State}
	}
	return []State{d.State}
}

func (d *Decision) String() string {
	if d.State == StateTrialRunning {
		return fmt.Sprintf("%s (%s left)", d.State, d.Remaining.Round(time.Second))
	}
	return string(d.State)
}
