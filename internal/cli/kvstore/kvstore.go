// Package kvstore persists the small amount of client state that survives
// between runs: the bearer token and the onboarding flag.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// Well-known keys
const (
	KeyToken          = "token"
	KeyIntroCompleted = "introCompleted"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("kvstore: key not found")

// Store is an opaque string key-value capability.
// Implementations must return ErrNotFound (possibly wrapped) for missing keys
// and treat Remove of a missing key as success.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by Open
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Open returns the store for the named backend
func Open(backend string) (Store, error) {
	switch backend {
	case BackendKeyring, "":
		return NewKeyringStore(DefaultKeyringService), nil
	case BackendFile:
		path, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (expected keyring, file or memory)", backend)
	}
}
