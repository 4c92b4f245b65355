// Package activation presents the blocked notice and captures a license
// token from the user.
//
// A Panel shows the payment reference and an input. Each confirmed,
// non-empty input is handed to the SubmitFunc; the panel closes once a
// submission is accepted so the caller can re-run the gate decision.
// Showing a panel that is already open attaches to it instead of opening
// a second one.
package activation

import (
	"context"
	"errors"
	"sync"
)

// ErrDismissed is returned when the user closes the panel without
// activating.
var ErrDismissed = errors.New("activation panel dismissed")

// Notice is what the panel displays.
type Notice struct {
	// Reason is the gate state that blocked the run (LOCKED or TRIAL_EXPIRED).
	Reason      string `json:"reason"`
	Fingerprint string `json:"fingerprint"`
	PaymentURL  string `json:"paymentUrl"`
}

// Message returns the human readable explanation of the notice.
func (n Notice) Message() string {
	switch n.Reason {
	case "LOCKED":
		return "Access to this device has been locked."
	case "TRIAL_EXPIRED":
		return "Your free trial has ended. Purchase a license to continue."
	default:
		return "A license is required to continue."
	}
}

// SubmitFunc persists a token. It returns license.ErrEmptyToken for empty
// input and other errors when the token cannot be stored or is refused.
type SubmitFunc func(token string) error

// Panel displays a Notice and collects tokens.
type Panel interface {
	Show(ctx context.Context, n Notice, submit SubmitFunc) error
}

// session serializes Show calls so only one panel is ever open.
type session struct {
	mu      sync.Mutex
	open    bool
	waiters int
	done    chan struct{}
	result  error
}

// attach runs show unless a panel is already open, in which case it waits
// for the open panel to close and returns its result.
func (s *session) attach(ctx context.Context, show func() error) error {
	s.mu.Lock()
	if s.open {
		done := s.done
		s.waiters++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.waiters--
			s.mu.Unlock()
		}()
		select {
		case <-done:
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.result
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.open = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	err := show()

	s.mu.Lock()
	s.result = err
	s.open = false
	close(s.done)
	s.mu.Unlock()

	return err
}

// IsOpen reports whether a panel is currently displayed.
func (s *session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *session) attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters
}
