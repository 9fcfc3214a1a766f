package cache

// ScopedKeyer wraps a Keyer with a prefix, isolating cache namespaces.
// Serve mode uses one scope per scene so two loaded tree pairs never
// collide in a shared Redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
// A nil inner keyer falls back to the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// TreeKey generates a prefixed tree key.
func (k *ScopedKeyer) TreeKey(textHash string, opts TreeKeyOpts) string {
	return k.prefix + k.inner.TreeKey(textHash, opts)
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(treeHash, opts)
}

// MatchKey generates a prefixed match key.
func (k *ScopedKeyer) MatchKey(sourceHash, targetHash string, opts MatchKeyOpts) string {
	return k.prefix + k.inner.MatchKey(sourceHash, targetHash, opts)
}
