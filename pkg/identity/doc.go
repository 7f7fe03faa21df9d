// Package identity tracks what this device calls itself on the network.
//
// The token set is used by discovery to exclude a device's own bridge
// from its visible results. It is filtering data only and never decides
// ownership of a connection.
//
// Tokens are built in two passes: a fast synchronous pass from process
// information, and a slow asynchronous pass that performs full host
// resolution. The passes are merged when the slow one completes, so the
// first result list never waits on DNS.
package identity
