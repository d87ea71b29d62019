package redis

import "fmt"

// Durable key layout for the presence counter
const (
	KeyTotalVisitors = "totalVisitors" // lifetime unique-visitor count
	KeySeenMarker    = "seen:%s"       // seen:<visitorId>, existence is all that matters
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyTotal returns the key holding the lifetime unique-visitor total
func (kb *KeyBuilder) KeyTotal() string {
	return kb.BuildKey(KeyTotalVisitors)
}

// KeySeen returns the durable seen-marker key for a visitor id
func (kb *KeyBuilder) KeySeen(visitorID string) string {
	return kb.BuildKey(fmt.Sprintf(KeySeenMarker, visitorID))
}
