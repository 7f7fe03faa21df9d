package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableIDFor derives the stable id for a discovered service.
//
// The id is the first 64 bits (16 hex chars) of SHA-256 over the
// normalized service endpoint key "<instance>.<type>.<domain>". It is
// computed from the service endpoint only, so TXT-level renames leave
// the id unchanged.
func StableIDFor(instance, serviceType, domain string) string {
	key := strings.ToLower(strings.TrimSuffix(instance, ".")) +
		"." + strings.ToLower(strings.Trim(serviceType, ".")) +
		"." + strings.ToLower(strings.Trim(domain, "."))
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:8])
}

// ValidateID checks if an ID string is a valid 64-bit fingerprint
// (16 hex chars).
func ValidateID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	return isHexString(id)
}

func isHexString(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
