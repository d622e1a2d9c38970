package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyPrefix namespaces every key written by broadsheet
const KeyPrefix = "broadsheet:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a namespaced cache key from one or more parts
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// EmbeddingKey identifies one text's embedding for a provider/model pair
func EmbeddingKey(provider, model, text string) string {
	return CacheKey("embed", provider, model, text)
}

// FetchKey identifies a fetched remote document
func FetchKey(url string) string {
	return CacheKey("fetch", url)
}
