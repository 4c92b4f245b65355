package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danieljhkim/trialgate/internal/activation"
	"github.com/danieljhkim/trialgate/internal/clock"
	"github.com/danieljhkim/trialgate/internal/fingerprint"
	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/state"
)

const (
	testFP       = "5f2b9c0e7d1a4e38b6c9d0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5"
	testPage     = "https://app.example.test/dashboard"
	testDuration = 30 * time.Minute
	testInterval = 500 * time.Millisecond
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// countingStore wraps a MemoryStore and counts mutations.
type countingStore struct {
	*state.MemoryStore
	mu     sync.Mutex
	writes int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: state.NewMemoryStore()}
}

func (s *countingStore) Write(key, value string) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Write(key, value)
}

func (s *countingStore) Delete(key string) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Delete(key)
}

func (s *countingStore) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// fakeLoader counts payload loads. A non-nil hold stalls every load
// until it is closed.
type fakeLoader struct {
	mu    sync.Mutex
	calls int
	fail  bool
	hold  chan struct{}
}

func (l *fakeLoader) LoadAndRun(ctx context.Context) bool {
	l.mu.Lock()
	l.calls++
	hold, fail := l.hold, l.fail
	l.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return false
		}
	}
	return !fail
}

func (l *fakeLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// scriptedPanel submits the queued tokens in order and dismisses once
// they run out.
type scriptedPanel struct {
	mu       sync.Mutex
	tokens   []string
	notices  []activation.Notice
	rejected []error
}

func (p *scriptedPanel) Show(ctx context.Context, n activation.Notice, submit activation.SubmitFunc) error {
	p.mu.Lock()
	p.notices = append(p.notices, n)
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if len(p.tokens) == 0 {
			p.mu.Unlock()
			return activation.ErrDismissed
		}
		token := p.tokens[0]
		p.tokens = p.tokens[1:]
		p.mu.Unlock()

		err := submit(token)
		if err == nil {
			return nil
		}
		if !errors.Is(err, license.ErrEmptyToken) {
			return err
		}
		p.mu.Lock()
		p.rejected = append(p.rejected, err)
		p.mu.Unlock()
	}
}

func (p *scriptedPanel) shown() []activation.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]activation.Notice(nil), p.notices...)
}

// recordingDisplay records countdown updates.
type recordingDisplay struct {
	mu     sync.Mutex
	shown  []time.Duration
	clears int
}

func (d *recordingDisplay) Show(remaining time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, remaining)
}

func (d *recordingDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
}

func (d *recordingDisplay) updates() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.shown...)
}

func (d *recordingDisplay) cleared() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

type fixture struct {
	engine  *Engine
	store   *countingStore
	records *state.Records
	clock   *clock.FakeClock
	loader  *fakeLoader
	panel   *scriptedPanel
	display *recordingDisplay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   newCountingStore(),
		clock:   clock.NewFakeClock(testEpoch),
		loader:  &fakeLoader{},
		panel:   &scriptedPanel{},
		display: &recordingDisplay{},
	}
	f.records = state.NewRecords(f.store)
	f.engine = New(Deps{
		Records:  f.records,
		Deriver:  &fingerprint.FakeDeriver{Fingerprint: testFP},
		Verifier: license.AcceptAny{},
		Loader:   f.loader,
		Panel:    f.panel,
		Display:  f.display,
		Clock:    f.clock,
	}, Options{
		AllowedPage:   testPage,
		PaymentURL:    "https://pay.example.test/order",
		TrialDuration: testDuration,
		CheckInterval: testInterval,
	})
	return f
}

func (f *fixture) saveTrial(t *testing.T, start time.Time, used bool) {
	t.Helper()
	rec := state.NewTrialRecord(start)
	rec.Used = used
	if err := f.records.SaveTrial(testFP, rec); err != nil {
		t.Fatalf("SaveTrial() error = %v", err)
	}
}

func (f *fixture) trial(t *testing.T) *state.TrialRecord {
	t.Helper()
	rec, err := f.records.Trial(testFP)
	if err != nil {
		t.Fatalf("Trial() error = %v", err)
	}
	return rec
}
