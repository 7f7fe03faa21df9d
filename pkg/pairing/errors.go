package pairing

import (
	"errors"
	"fmt"
)

// ErrPairingIncomplete indicates the stream ended before the bridge
// sent pair-ok or error.
var ErrPairingIncomplete = errors.New("pairing failed")

// ConnectError indicates the TCP connection could not be opened.
type ConnectError struct {
	Addr string
	Err  error
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying dial error.
func (e *ConnectError) Unwrap() error { return e.Err }

// ProtocolError indicates an unexpected message shape or type.
type ProtocolError struct {
	Reason string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Reason == "" {
		return "unexpected bridge response"
	}
	return e.Reason
}

// PairingRejected indicates a bridge-reported error code other than
// NOT_PAIRED or UNAUTHORIZED.
type PairingRejected struct {
	Code    string
	Message string
}

// Error implements error, using the "{code}: {message}" shape exposed
// to users.
func (e *PairingRejected) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
