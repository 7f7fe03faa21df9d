package discovery

import (
	"errors"
	"fmt"
	"time"
)

// Timing constants.
const (
	// TXTResolveTimeout bounds one out-of-band TXT resolution.
	TXTResolveTimeout = 2 * time.Second
)

// ErrAlreadyStarted is returned by Start on a running engine.
var ErrAlreadyStarted = errors.New("discovery already started")

// ResolveError indicates an out-of-band TXT resolution failed or was
// cancelled. The record stays usable with defaults.
type ResolveError struct {
	StableID string
	Err      error
}

// Error implements error.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve TXT for %s: %v", e.StableID, e.Err)
}

// Unwrap returns the underlying resolution error.
func (e *ResolveError) Unwrap() error { return e.Err }

// DomainState is the browse state of one domain.
type DomainState uint8

const (
	// DomainSetup - the browser has not started delivering results yet.
	DomainSetup DomainState = iota

	// DomainReady - the browser is running and searching.
	DomainReady

	// DomainWaiting - the browser is waiting for the network to become
	// usable (no multicast route yet).
	DomainWaiting

	// DomainFailed - the browser failed; the reason is kept alongside.
	DomainFailed
)

// String returns the state name.
func (s DomainState) String() string {
	switch s {
	case DomainSetup:
		return "SETUP"
	case DomainReady:
		return "READY"
	case DomainWaiting:
		return "WAITING"
	case DomainFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// DomainStatus is the externally observable state of one domain.
type DomainStatus struct {
	Domain string
	State  DomainState
	Err    error
}

// StatusText derives the engine's single status string from the union
// of all domains' states. Precedence is fixed: any failed state wins,
// else any waiting state, else ready, else setup, else idle. The
// function is stateless and deterministic given the input.
func StatusText(statuses []DomainStatus) string {
	var failed *DomainStatus
	hasWaiting := false
	hasReady := false
	hasSetup := false

	for i := range statuses {
		st := &statuses[i]
		switch st.State {
		case DomainFailed:
			if failed == nil {
				failed = st
			}
		case DomainWaiting:
			hasWaiting = true
		case DomainReady:
			hasReady = true
		case DomainSetup:
			hasSetup = true
		}
	}

	switch {
	case failed != nil:
		return fmt.Sprintf("Search failed: %v", failed.Err)
	case hasWaiting:
		return "Waiting for network…"
	case hasReady:
		return "Searching…"
	case hasSetup:
		return "Setup"
	default:
		return "Idle"
	}
}
