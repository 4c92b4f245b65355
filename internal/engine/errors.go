package engine

import "errors"

var (
	// ErrBlocked indicates the gate blocked the run and no panel was
	// available to activate a license.
	ErrBlocked = errors.New("gate blocked")

	// ErrEmptyFingerprint indicates the deriver produced no fingerprint.
	ErrEmptyFingerprint = errors.New("empty fingerprint")

	// ErrTrialMissing indicates the trial record disappeared while a
	// countdown was running.
	ErrTrialMissing = errors.New("trial record missing")
)
