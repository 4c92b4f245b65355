package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/trialgate/internal/fingerprint"
	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/state"
)

func TestRun_PageMismatchIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.engine.deriver = &fingerprint.FakeDeriver{Err: errors.New("must not derive")}

	res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage + "?x=1"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 0, f.loader.count())
	assert.Equal(t, 0, f.store.mutations())
	assert.Empty(t, f.panel.shown())
}

func TestRun_Licensed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.records.SaveLicense(testFP, "LIC"))

	res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	require.NoError(t, err)
	assert.Equal(t, StateLicensed, res.State)
	assert.Equal(t, testFP, res.Fingerprint)
	assert.Equal(t, 1, res.Loads)
	assert.Equal(t, 1, f.loader.count())
	assert.Empty(t, f.panel.shown())
}

func TestRun_LoadFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.loader.fail = true
	require.NoError(t, f.records.SaveLicense(testFP, "LIC"))

	res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Loads)
	assert.Equal(t, 1, res.LoadFailures)
	assert.Equal(t, 1, f.loader.count(), "no retry")
}

func TestRun_LockedDismissed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.records.SetLock(testFP))

	res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	require.NoError(t, err)
	assert.Equal(t, StateLocked, res.State)
	assert.True(t, res.Dismissed)
	assert.Equal(t, 0, f.loader.count())

	shown := f.panel.shown()
	require.Len(t, shown, 1)
	assert.Equal(t, "LOCKED", shown[0].Reason)
	assert.Equal(t, testFP, shown[0].Fingerprint)
	assert.Equal(t, "https://pay.example.test/order", shown[0].PaymentURL)
}

func TestRun_ExpiredActivationReloads(t *testing.T) {
	f := newFixture(t)
	f.saveTrial(t, testEpoch.Add(-time.Hour), true)
	f.panel.tokens = []string{"", "LIC-42"}

	res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	require.NoError(t, err)

	assert.True(t, res.Activated)
	assert.Equal(t, StateLicensed, res.State)
	require.Len(t, res.Decisions, 2)
	assert.Equal(t, StateTrialExpired, res.Decisions[0].State)
	assert.Equal(t, StateLicensed, res.Decisions[1].State)
	assert.Equal(t, 1, f.loader.count())

	require.Len(t, f.panel.rejected, 1, "empty token rejected locally")
	assert.ErrorIs(t, f.panel.rejected[0], license.ErrEmptyToken)

	token, ok, err := f.records.License(testFP)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "LIC-42", token)
}

func TestRun_TrialLoadsThenExpires(t *testing.T) {
	f := newFixture(t)

	type outcome struct {
		res *RunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
		done <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		return f.loader.count() == 1 && f.clock.Tickers() == 1
	}, time.Second, 5*time.Millisecond, "payload loads before the countdown runs")

	f.clock.Advance(testDuration)

	var out outcome
	select {
	case out = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not end after expiry")
	}
	require.NoError(t, out.err)

	assert.Equal(t, StateTrialExpired, out.res.State)
	assert.True(t, out.res.Dismissed)
	assert.Equal(t, 1, out.res.Loads)
	assert.True(t, out.res.Decisions[0].NewTrial)
	assert.True(t, f.trial(t).Used)
	assert.Equal(t, 1, f.display.cleared())

	shown := f.panel.shown()
	require.Len(t, shown, 1)
	assert.Equal(t, "TRIAL_EXPIRED", shown[0].Reason)
}

func TestRun_CountdownRunsWhileLoadStalls(t *testing.T) {
	f := newFixture(t)
	f.loader.hold = make(chan struct{})

	type outcome struct {
		res *RunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
		done <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		return f.loader.count() == 1 && f.clock.Tickers() == 1
	}, time.Second, 5*time.Millisecond, "countdown must start while the fetch is pending")

	f.clock.Advance(testDuration)

	require.Eventually(t, func() bool {
		rec, err := f.records.Trial(testFP)
		return err == nil && rec != nil && rec.Used
	}, 2*time.Second, 5*time.Millisecond, "trial must expire while the fetch is pending")

	select {
	case <-done:
		t.Fatal("run returned before the load finished")
	default:
	}

	close(f.loader.hold)

	var out outcome
	select {
	case out = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not end after the load finished")
	}
	require.NoError(t, out.err)
	assert.Equal(t, StateTrialExpired, out.res.State)
	assert.Equal(t, 1, out.res.Loads)
	assert.True(t, out.res.Dismissed)
}

func TestRun_MalformedStateAborts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Write(state.Key(state.SlotTrial, testFP), "not-json"))

	_, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	assert.ErrorIs(t, err, state.ErrMalformed)
	assert.Equal(t, 0, f.loader.count())
}

func TestRun_BlockedWithoutPanel(t *testing.T) {
	f := newFixture(t)
	f.engine.panel = nil
	require.NoError(t, f.records.SetLock(testFP))

	_, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestRun_DeriveFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("digest unavailable")
	f.engine.deriver = &fingerprint.FakeDeriver{Err: boom}

	_, err := f.engine.Run(context.Background(), &RunRequest{PageURL: testPage})
	assert.ErrorIs(t, err, boom)
}

func TestActivate(t *testing.T) {
	t.Run("empty token changes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.saveTrial(t, testEpoch, true)
		before := f.store.mutations()

		err := f.engine.Activate(context.Background(), testFP, "")
		assert.ErrorIs(t, err, license.ErrEmptyToken)
		assert.Equal(t, before, f.store.mutations())

		d, err := f.engine.Decide(context.Background(), testFP)
		require.NoError(t, err)
		assert.Equal(t, StateTrialExpired, d.State)
	})

	t.Run("token round trip", func(t *testing.T) {
		f := newFixture(t)
		f.saveTrial(t, testEpoch, true)

		require.NoError(t, f.engine.Activate(context.Background(), testFP, " raw token "))

		d, err := f.engine.Decide(context.Background(), testFP)
		require.NoError(t, err)
		assert.Equal(t, StateLicensed, d.State)

		token, _, err := f.records.License(testFP)
		require.NoError(t, err)
		assert.Equal(t, " raw token ", token)
	})
}

func TestActivateLicense(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.ActivateLicense(context.Background(), &ActivateRequest{Token: "LIC"})
	require.NoError(t, err)
	assert.Equal(t, testFP, res.Fingerprint)
	assert.Equal(t, StateLicensed, res.Decision.State)
}

func TestSetLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.SetLock(ctx, &LockRequest{Locked: true, Fingerprint: "other"})
	require.NoError(t, err)
	assert.Equal(t, "other", res.Fingerprint)

	locked, err := f.records.Locked("other")
	require.NoError(t, err)
	assert.True(t, locked)

	_, err = f.engine.SetLock(ctx, &LockRequest{Locked: false, Fingerprint: "other"})
	require.NoError(t, err)
	locked, err = f.records.Locked("other")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.saveTrial(t, testEpoch.Add(-10*time.Minute), false)
	before := f.store.mutations()

	res, err := f.engine.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, testFP, res.Fingerprint)
	assert.False(t, res.Slots.Locked)
	require.NotNil(t, res.Slots.Trial)
	assert.Equal(t, StateTrialRunning, res.Decision.State)
	assert.Equal(t, 20*time.Minute, res.Decision.Remaining)
	assert.Equal(t, before, f.store.mutations())
}
