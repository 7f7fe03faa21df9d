// Package credstore persists per-endpoint pairing tokens and node
// identity across launches.
//
// Two historically separate stores may exist side by side (an older
// preferences file and the current state file). Reconcile runs once at
// startup and copies values between them, but only ever fills an empty
// slot from a non-empty one: when both stores carry a value for the
// same key, even different ones, neither is touched. A value the user
// already has is never silently discarded.
package credstore
