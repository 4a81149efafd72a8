// Package storage defines the string-keyed durable value store the diary
// persists into. It is the server-side analog of the browser's
// localStorage area: synchronous, whole-value reads and writes.
package storage

// Provider is the interface for key-value persistence.
type Provider interface {
	// Get returns the value stored under key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set durably writes value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
	// Keys returns every stored key.
	Keys() ([]string, error)
}
