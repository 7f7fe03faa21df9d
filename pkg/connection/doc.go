// Package connection supervises the control link to the resolved
// gateway endpoint.
//
// The Link owns no sockets itself: each attempt asks the endpoint
// resolver for the current ready configuration and hands it to a
// caller-supplied dial function. On connection loss the Link retries
// with exponential backoff and jitter:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful connection
//
// Jitter spreads simultaneous reconnects of multiple nodes:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
