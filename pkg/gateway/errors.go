package gateway

import "fmt"

// EndpointUnavailable is returned by RequireConfig when no ready state
// exists and recovery, if attempted, also failed.
type EndpointUnavailable struct {
	Mode   Mode
	Reason string
}

func (e *EndpointUnavailable) Error() string {
	return fmt.Sprintf("gateway endpoint unavailable (%s mode): %s", e.Mode, e.Reason)
}
