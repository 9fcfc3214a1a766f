// Package cache provides byte-level caching for pipeline stage results.
//
// The pipeline caches serialized trees, layouts, and match lists keyed
// by content hashes of their inputs, so repeated runs over the same tree
// text skip recomputation. Three backends are provided: a file cache for
// CLI use, a Redis cache for serve mode, and a null cache that disables
// caching entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the storage interface shared by all backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means the
	// entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TreeKeyOpts are the label-policy inputs that shape a parsed tree.
// Different policies produce different labels, hence different keys.
type TreeKeyOpts struct {
	Trim           bool
	KeepStructure  bool
	KeepDuplicates bool
	Separator      string
	Cutoff         float64
}

// LayoutKeyOpts are the frame inputs that shape a layout pass.
type LayoutKeyOpts struct {
	Width        float64
	Height       float64
	OffsetX      float64
	OffsetY      float64
	LabelReserve float64
	Flipped      bool
}

// MatchKeyOpts are the matching inputs that shape a comparison.
type MatchKeyOpts struct {
	MinLeaves int
	Mode      string
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// TreeKey generates a key for a parsed and labeled tree.
	TreeKey(textHash string, opts TreeKeyOpts) string

	// LayoutKey generates a key for computed coordinates.
	LayoutKey(treeHash string, opts LayoutKeyOpts) string

	// MatchKey generates a key for a two-tree comparison.
	MatchKey(sourceHash, targetHash string, opts MatchKeyOpts) string
}

// DefaultKeyer hashes the option structs into hierarchical keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// TreeKey generates a key for a parsed and labeled tree.
func (k *DefaultKeyer) TreeKey(textHash string, opts TreeKeyOpts) string {
	return hashKey("tree", textHash, opts)
}

// LayoutKey generates a key for computed coordinates.
func (k *DefaultKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", treeHash, opts)
}

// MatchKey generates a key for a two-tree comparison.
func (k *DefaultKeyer) MatchKey(sourceHash, targetHash string, opts MatchKeyOpts) string {
	return hashKey("match", sourceHash, targetHash, opts)
}

// hashKey builds a key of the form prefix:sha256(parts...). The full
// 64-hex-character digest is kept to rule out collisions.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes the SHA-256 hash of data as a 64-character hex string.
// The pipeline uses it to fingerprint tree text and serialized stages.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
