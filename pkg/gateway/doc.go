// Package gateway resolves the process-wide control endpoint.
//
// The Resolver is the single owner of the GatewayEndpointState: it
// combines the persisted connection mode, stored credentials and the
// tunnel provider into either a ready(url, token, password) state or
// an unavailable(reason) state, and publishes changes to subscribers
// over buffered-newest channels.
package gateway
