package pairing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// tokenInfo is the HKDF info string binding derived tokens to this
// protocol.
const tokenInfo = "openclaw-pairing-token-v1"

// TokenLength is the byte length of a derived token before hex
// encoding.
const TokenLength = 32

// DeriveToken deterministically derives a per-node token from the
// bridge secret via HKDF-SHA256. A bridge that mints tokens this way
// can re-verify a presented token without storing it.
func DeriveToken(secret []byte, nodeID string) (string, error) {
	r := hkdf.New(sha256.New, secret, []byte(nodeID), []byte(tokenInfo))

	token := make([]byte, TokenLength)
	if _, err := io.ReadFull(r, token); err != nil {
		return "", fmt.Errorf("derive token: %w", err)
	}
	return hex.EncodeToString(token), nil
}
