// Package loader fetches the remote payload and starts it in a separate
// process.
//
// A load is one uncached GET of a fixed URL followed by a detached start
// of the payload. Failures are reported to the user once; there is no
// retry and no fallback payload. Once started, the payload is not
// tracked.
package loader

import (
	"context"
	"fmt"

	"github.com/danieljhkim/trialgate/internal/logger"
)

// Fetcher retrieves the payload source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Executor starts a payload.
type Executor interface {
	Execute(ctx context.Context, code []byte) error
}

// Notifier surfaces a message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f.
func (f NotifierFunc) Notify(msg string) { f(msg) }

// Loader combines a Fetcher and an Executor.
type Loader struct {
	fetcher  Fetcher
	executor Executor
	notifier Notifier
	logg     *logger.Logger
}

// New creates a Loader. A nil notifier discards notices.
func New(fetcher Fetcher, executor Executor, notifier Notifier, logg *logger.Logger) *Loader {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Loader{
		fetcher:  fetcher,
		executor: executor,
		notifier: notifier,
		logg:     logg,
	}
}

// LoadAndRun fetches and starts the payload. It reports success and
// never retries.
func (l *Loader) LoadAndRun(ctx context.Context) bool {
	code, err := l.fetcher.Fetch(ctx)
	if err != nil {
		l.logg.Error(ctx, "payload load failed", err)
		l.notifier.Notify(fmt.Sprintf("Failed to load the payload: %v", err))
		return false
	}

	if err := l.executor.Execute(ctx, code); err != nil {
		l.logg.Error(ctx, "payload start failed", err)
		l.notifier.Notify(fmt.Sprintf("Failed to start the payload: %v", err))
		return false
	}

	l.logg.Info(ctx, "payload started")
	return true
}
