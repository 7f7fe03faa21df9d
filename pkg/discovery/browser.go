package discovery

import (
	"context"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

// Entry is one raw browse result before merging.
type Entry struct {
	// Instance is the mDNS instance name (still escaped).
	Instance string

	// Service is the service type that was browsed.
	Service string

	// Domain is the domain that produced the entry.
	Domain string

	// Host is the advertised hostname.
	Host string

	// Port is the advertised port.
	Port int

	// Text holds raw "key=value" TXT strings, possibly empty when the
	// responder did not inline them with the browse result.
	Text []string

	// Addrs contains resolved IP addresses.
	Addrs []string
}

// Browser provides service browsing for one service type in one
// domain. Implementations deliver added/removed entries until the
// context is cancelled.
type Browser interface {
	// Browse streams results for serviceType in domain onto the added
	// and removed channels until ctx is cancelled. It returns once
	// browsing has been set up; delivery happens in the background.
	Browse(ctx context.Context, serviceType, domain string, added, removed chan<- *Entry) error
}

// TXTResolver resolves the TXT record of a single service instance out
// of band, for advertisements whose browse result omitted TXT data.
type TXTResolver interface {
	// LookupTXT returns the TXT records for one instance. It honors
	// ctx cancellation and must not deliver anything after returning.
	LookupTXT(ctx context.Context, instance, serviceType, domain string) (bridge.TXTRecordMap, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// endpointFromEntry builds the merged endpoint for one raw entry.
// Inline TXT data is applied over the defaults; the display name
// prefers the TXT value over the (unescaped, sanitized) instance name.
func endpointFromEntry(e *Entry) *bridge.Endpoint {
	txt := bridge.DecodeTXT(bridge.StringsToTXTRecords(e.Text))

	ep := &bridge.Endpoint{
		StableID:    bridge.StableIDFor(e.Instance, e.Service, e.Domain),
		ServiceName: bridge.DecodeInstanceName(e.Instance),
		Host:        e.Host,
		Port:        e.Port,
		SSHPort:     bridge.DefaultSSHPort,
	}
	ep.DisplayName = bridge.DisplayNameFrom(txt.DisplayName, e.Instance)
	ep.Merge(txt)

	return ep
}

// cloneEndpoint copies an endpoint so published lists never alias
// internal bookkeeping.
func cloneEndpoint(e *bridge.Endpoint) *bridge.Endpoint {
	c := *e
	return &c
}

// resolveDeadline returns the context bounding one TXT resolution.
func resolveDeadline(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, TXTResolveTimeout)
}
