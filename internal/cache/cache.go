// Package cache stores fetched policy documents so repeated analyses of the
// same site do not re-download identical pages.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTLs
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a document URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "policyscope:v1:" + hex.EncodeToString(hash[:])
}
