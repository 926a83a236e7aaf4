// Package cache provides the memoization layer used by the claim
// validator: excerpt-match outcomes are cached per citation identity so
// revalidating hundreds of citations against the same document stays
// cheap. Validation is pure, so memoizing it is always safe.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from an arbitrary identity string
func Key(identity string) string {
	hash := sha256.Sum256([]byte(identity))
	return "veridex:v1:" + hex.EncodeToString(hash[:])
}
