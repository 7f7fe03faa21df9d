// Package discovery finds bridges over mDNS/DNS-SD.
//
// The engine browses the _openclaw._tcp service type independently
// across a small fixed set of domains (the local multicast domain plus
// an optional tailnet-style domain). Each domain has its own browser,
// state and result set; failures are independent per domain.
//
// Browse results are merged into bridge.Endpoint records. When an
// advertisement arrives without the TXT fields the UI needs (lanHost,
// tailnetDns), the engine resolves the service's TXT record out of
// band, with a 2-second timeout and at most one resolution in flight
// per stable id.
//
// The externally visible list is recomputed on every change as
// flatten -> identity-filter -> dedupe-by-stable-id -> sort, which is
// deterministic given the merged input: concurrent updates from
// different domains converge to the same list regardless of arrival
// order. Records matching the device's own identity are excluded from
// the visible list but kept in per-domain bookkeeping.
package discovery
