package gateway

import (
	"context"
	"errors"
)

// TunnelProvider establishes the control tunnel to a remote gateway.
// It is an external collaborator: the Resolver only asks whether a
// tunnel is running and, on demand, asks for one to be established.
type TunnelProvider interface {
	// Running reports the forwarded local port of an already
	// established tunnel, if any.
	Running() (port int, ok bool)

	// Ensure establishes the tunnel if needed and returns the
	// forwarded local port. Must be idempotent when a tunnel is
	// already running.
	Ensure(ctx context.Context) (port int, err error)
}

// ErrNoTunnelProvider is returned when remote mode is selected but no
// tunnel provider was configured.
var ErrNoTunnelProvider = errors.New("no tunnel provider configured")

// NoTunnel is a TunnelProvider for setups without remote access.
type NoTunnel struct{}

// Running always reports no tunnel.
func (NoTunnel) Running() (int, bool) { return 0, false }

// Ensure always fails.
func (NoTunnel) Ensure(context.Context) (int, error) { return 0, ErrNoTunnelProvider }

var _ TunnelProvider = NoTunnel{}
