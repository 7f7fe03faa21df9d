// Package pairing implements the node<->bridge handshake.
//
// The protocol is newline-delimited UTF-8 JSON over TCP, one object per
// line, with a "type" discriminant:
//
//	hello         node->bridge  identity, capabilities, optional token
//	hello-ok      bridge->node  token (if any) was accepted
//	error         bridge->node  code + message
//	pair-request  node->bridge  identity, capabilities, never a token
//	pair-ok       bridge->node  freshly issued token
//
// A node first sends hello. If the bridge answers error with code
// NOT_PAIRED or UNAUTHORIZED, the node falls back to pair-request and
// waits for pair-ok. Any other error code, malformed reply, or early
// end of stream fails the attempt. The connection is never reused
// across attempts.
package pairing
