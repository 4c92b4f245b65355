// Package engine provides the trial gate state machine and its orchestration.
//
// The engine package sits between the CLI and the lower-level components. It
// decides, per fingerprint, whether the payload may run, keeps the trial
// countdown and hands blocked runs to the activation panel.
//
// Key components:
//   - Engine: Main orchestrator, constructed with all collaborators injected
//   - Decide: First-match gate decision over the persisted slots
//   - Countdown: Periodic expiry check driven by the clock
//   - Run: One full gate pass (the equivalent of a page load)
//   - Activate: Persists a license token for a fingerprint
package engine

import (
	"context"
	"time"

	"github.com/danieljhkim/trialgate/internal/activation"
	"github.com/danieljhkim/trialgate/internal/clock"
	"github.com/danieljhkim/trialgate/internal/fingerprint"
	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/logger"
	"github.com/danieljhkim/trialgate/internal/state"
)

// PayloadLoader fetches and starts the payload. See loader.Loader.
type PayloadLoader interface {
	LoadAndRun(ctx context.Context) bool
}

// Display shows the remaining trial time while a countdown runs.
type Display interface {
	Show(remaining time.Duration)
	Clear()
}

// Options are the fixed gate settings. They apply to every fingerprint.
type Options struct {
	// AllowedPage is the only page address on which the gate activates.
	AllowedPage string

	// PaymentURL is shown on the activation panel.
	PaymentURL string

	// TrialDuration is the length of the one-time trial.
	TrialDuration time.Duration

	// CheckInterval is the period of the countdown expiry check.
	CheckInterval time.Duration
}

// Deps are the collaborators of an Engine. Panel and Display may be nil:
// without a panel a blocked run fails with ErrBlocked, without a display
// the countdown runs silently.
type Deps struct {
	Records  *state.Records
	Deriver  fingerprint.Deriver
	Verifier license.Verifier
	Loader   PayloadLoader
	Panel    activation.Panel
	Display  Display
	Clock    clock.Clock
	Logger   *logger.Logger
}

// Engine orchestrates all gate operations.
// It is the main API surface called by the CLI.
type Engine struct {
	records  *state.Records
	deriver  fingerprint.Deriver
	verifier license.Verifier
	loader   PayloadLoader
	panel    activation.Panel
	display  Display
	clock    clock.Clock
	logg     *logger.Logger
	opts     Options
}

// New creates a new Engine with the given dependencies.
func New(deps Deps, opts Options) *Engine {
	if deps.Verifier == nil {
		deps.Verifier = license.AcceptAny{}
	}
	if deps.Display == nil {
		deps.Display = nopDisplay{}
	}
	if deps.Clock == nil {
		deps.Clock = &clock.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Engine{
		records:  deps.Records,
		deriver:  deps.Deriver,
		verifier: deps.Verifier,
		loader:   deps.Loader,
		panel:    deps.Panel,
		display:  deps.Display,
		clock:    deps.Clock,
		logg:     deps.Logger,
		opts:     opts,
	}
}

// Options returns the gate settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Fingerprint derives the fingerprint of the current device context.
func (e *Engine) Fingerprint(ctx context.Context) (string, error) {
	fp, err := e.deriver.Derive(ctx)
	if err != nil {
		return "", err
	}
	if fp == "" {
		return "", ErrEmptyFingerprint
	}
	return fp, nil
}

type nopDisplay struct{}

func (nopDisplay) Show(time.Duration) {}
func (nopDisplay) Clear()             {}
