package credstore

import (
	"fmt"

	"github.com/tualatrix/openclaw/pkg/identity"
)

// BootstrapKeys is the fixed set of identity and preference keys
// reconciled between the legacy and current stores at startup.
var BootstrapKeys = []string{
	identity.KeyNodeID,
	KeyConnectionMode,
	KeyDeviceToken,
	KeyOnboardingSeen,
}

// Reconcile copies values between two stores for the given keys using
// the empty-fills-from-nonempty rule: if exactly one store has a value,
// it is copied into the other; if both have values (even differing
// ones) or neither has one, nothing changes.
func Reconcile(a, b Store, keys []string) error {
	for _, key := range keys {
		av, aok := a.Get(key)
		bv, bok := b.Get(key)
		aok = aok && av != ""
		bok = bok && bv != ""

		switch {
		case aok && !bok:
			if err := b.Set(key, av); err != nil {
				return fmt.Errorf("reconcile %s: %w", key, err)
			}
		case bok && !aok:
			if err := a.Set(key, bv); err != nil {
				return fmt.Errorf("reconcile %s: %w", key, err)
			}
		}
	}
	return nil
}

// Token returns the pairing token for an endpoint, falling back to the
// device-scoped token when no per-endpoint token is stored.
func Token(s Store, stableID string) string {
	if tok, ok := s.Get(TokenKey(stableID)); ok && tok != "" {
		return tok
	}
	tok, _ := s.Get(KeyDeviceToken)
	return tok
}
