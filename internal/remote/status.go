package remote

import (
	"fmt"
	"sync"
	"time"
)

// Status is the latest view of the sync loop for display.
type Status struct {
	Enabled bool
	ClubID  string

	LastPull    time.Time
	LastPush    time.Time
	LastApplied time.Time
	LastError   error

	ConsecutiveFailures int
}

// Connected reports whether the remote has answered recently. One failed
// attempt is tolerated; two in a row mean "not currently connected".
func (s Status) Connected() bool {
	return s.ConsecutiveFailures < 2
}

// statusStore guards Status for concurrent pulls, pushes and readers.
type statusStore struct {
	mu     sync.RWMutex
	status Status
}

func (s *statusStore) setSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Enabled = settings.Enabled
	s.status.ClubID = settings.ClubID
}

// recordPull notes a pull attempt. When err is non-nil the previous
// timestamps are kept and the failure is counted.
func (s *statusStore) recordPull(at time.Time, applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return
	}
	s.status.LastPull = at
	if applied {
		s.status.LastApplied = at
	}
	s.succeed()
}

func (s *statusStore) recordPush(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return
	}
	s.status.LastPush = at
	s.succeed()
}

func (s *statusStore) fail(err error) {
	s.status.LastError = err
	s.status.ConsecutiveFailures++
}

func (s *statusStore) succeed() {
	s.status.LastError = nil
	s.status.ConsecutiveFailures = 0
}

// snapshot returns a copy of the current status.
func (s *statusStore) snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.LastError != nil {
		st.LastError = fmt.Errorf("%w", st.LastError)
	}
	return st
}
