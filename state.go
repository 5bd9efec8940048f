package goOIDC

import (
	"sync"

	"github.com/MrEthical07/goOIDC/identity"
)

// flowState is the single shared record of flow progress. Writers pass the
// flow ID they were started with; a write from any other flow is dropped, so
// a snapshot can never combine fields of two flows.
type flowState struct {
	mu sync.RWMutex

	flowID  string
	phase   Phase
	failure string
	handle  *identity.AuthorizationHandle
	result  *identity.AuthBody

	polling   bool
	cancel    chan struct{}
	cancelled bool
}

func newFlowState() *flowState {
	return &flowState{
		phase:     PhaseRequesting,
		cancel:    make(chan struct{}),
		cancelled: true,
	}
}

// reset starts a fresh flow and returns the channel closed on its cancellation.
func (s *flowState) reset(flowID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flowID = flowID
	s.phase = PhaseRequesting
	s.failure = ""
	s.handle = nil
	s.result = nil
	s.polling = true
	s.cancel = make(chan struct{})
	s.cancelled = false
	return s.cancel
}

// setPhase sets the phase label and failure text. A non-empty failure also
// stops polling.
func (s *flowState) setPhase(flowID string, phase Phase, failure string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flowID != flowID {
		return false
	}
	s.phase = phase
	s.failure = failure
	if failure != "" {
		s.polling = false
	}
	return true
}

// failUnlessLoggedIn records failure while keeping the current phase label.
// A flow that already reached PhaseLoggedIn is left untouched.
func (s *flowState) failUnlessLoggedIn(flowID, failure string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flowID != flowID || s.phase == PhaseLoggedIn {
		return false
	}
	s.failure = failure
	s.polling = false
	return true
}

func (s *flowState) setWaiting(flowID string, handle identity.AuthorizationHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flowID != flowID {
		return false
	}
	s.phase = PhaseWaiting
	s.failure = ""
	s.handle = &handle
	return true
}

func (s *flowState) setLoggedIn(flowID string, body identity.AuthBody) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flowID != flowID {
		return false
	}
	b := body.Clone()
	s.phase = PhaseLoggedIn
	s.failure = ""
	s.result = &b
	s.polling = false
	return true
}

// requestCancel stops polling and wakes a sleeping driver. Safe to call any
// number of times.
func (s *flowState) requestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polling = false
	if !s.cancelled {
		close(s.cancel)
		s.cancelled = true
	}
}

func (s *flowState) keepPolling(flowID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flowID == flowID && s.polling
}

func (s *flowState) snapshot() FlowStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := FlowStatus{
		FlowID:         s.flowID,
		StateMessage:   s.phase,
		FailureMessage: s.failure,
	}
	if s.handle != nil {
		u := s.handle.URL
		out.AuthorizationURL = &u
	}
	if s.result != nil {
		b := s.result.Clone()
		out.Result = &b
	}
	return out
}
