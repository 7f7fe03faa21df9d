package identity

import (
	"github.com/google/uuid"
)

// KeyNodeID is the credential-store key holding the persistent node id.
const KeyNodeID = "node.id"

// KV is the narrow store surface used for node id persistence. The
// credstore package satisfies it.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// EnsureNodeID loads the persistent node id, minting and persisting a
// fresh UUID on first run. The id identifies this node to every bridge
// it pairs with; it never changes after creation.
func EnsureNodeID(store KV) (string, error) {
	if id, ok := store.Get(KeyNodeID); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	if err := store.Set(KeyNodeID, id); err != nil {
		return "", err
	}
	return id, nil
}
