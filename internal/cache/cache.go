// Package cache provides a minimal byte-oriented key-value store with
// per-entry TTL. Session records live here; both backends expire entries
// on their own, so nothing in the application sweeps stale keys.
package cache

import "time"

// Cache is a key-value store with per-entry expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
