// SPDX-License-Identifier: MIT

package audiometry

import (
	"errors"
	"fmt"
	"sync"
)

// Session protocol errors. Handlers map these to client-facing
// responses, so each out-of-order condition has its own sentinel.
var (
	ErrInvalidProfile     = errors.New("invalid user profile")
	ErrSessionNotStarted  = errors.New("session not started")
	ErrSessionCompleted   = errors.New("session already completed")
	ErrDuplicateFrequency = errors.New("frequency already answered")
	ErrUnknownFrequency   = errors.New("frequency not in test protocol")
	ErrIncompleteSession  = errors.New("session incomplete")
)

// Profile is the subject's demographic information, recorded once at
// session start.
type Profile struct {
	Age    int
	Gender Gender
}

// Validate checks the profile against the classifier's training
// domain.
func (p Profile) Validate() error {
	if p.Age < 1 || p.Age > 120 {
		return fmt.Errorf("%w: age %d outside [1, 120]", ErrInvalidProfile, p.Age)
	}
	if p.Gender < Male || p.Gender > Other {
		return fmt.Errorf("%w: gender %d", ErrInvalidProfile, int(p.Gender))
	}
	return nil
}

type sessionState int

const (
	stateNotStarted sessionState = iota
	stateInProgress
	stateCompleted
)

// Session tracks one subject through the screening protocol. The state
// machine is NotStarted -> InProgress -> Completed; Completed is
// terminal. All methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	state     sessionState
	profile   Profile
	responses map[int]bool
}

// NewSession returns a session in the NotStarted state.
func NewSession() *Session {
	return &Session{responses: make(map[int]bool, len(testFrequencies))}
}

// Start validates the profile and moves the session to InProgress.
func (s *Session) Start(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateNotStarted {
		return fmt.Errorf("start: session already started")
	}
	s.profile = p
	s.state = stateInProgress
	return nil
}

// Record stores one heard/not-heard answer. The session completes
// automatically once every test frequency has an answer.
func (s *Session) Record(frequency int, heard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNotStarted:
		return fmt.Errorf("record %d Hz: %w", frequency, ErrSessionNotStarted)
	case stateCompleted:
		return fmt.Errorf("record %d Hz: %w", frequency, ErrSessionCompleted)
	}
	if !IsTestFrequency(frequency) {
		return fmt.Errorf("record %d Hz: %w", frequency, ErrUnknownFrequency)
	}
	if _, ok := s.responses[frequency]; ok {
		return fmt.Errorf("record %d Hz: %w", frequency, ErrDuplicateFrequency)
	}

	s.responses[frequency] = heard
	if len(s.responses) == len(testFrequencies) {
		s.state = stateCompleted
	}
	return nil
}

// Completed reports whether every test frequency has an answer.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateCompleted
}

// Remaining returns the unanswered frequencies in test order.
func (s *Session) Remaining() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []int
	for _, f := range testFrequencies {
		if _, ok := s.responses[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// NextFrequency returns the next unanswered frequency in test order,
// or 0 once the protocol is finished.
func (s *Session) NextFrequency() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range testFrequencies {
		if _, ok := s.responses[f]; !ok {
			return f
		}
	}
	return 0
}

// Results returns the frozen profile and response set of a completed
// session. It fails with ErrIncompleteSession (or ErrSessionNotStarted)
// until the protocol has finished.
func (s *Session) Results() (Profile, map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNotStarted:
		return Profile{}, nil, ErrSessionNotStarted
	case stateInProgress:
		return Profile{}, nil, fmt.Errorf("%w: %d of %d responses recorded",
			ErrIncompleteSession, len(s.responses), len(testFrequencies))
	}

	responses := make(map[int]bool, len(s.responses))
	for f, heard := range s.responses {
		responses[f] = heard
	}
	return s.profile, responses, nil
}
