package cache

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey returns the key for a cached HTTP response.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer produces unprefixed keys of the form "http:<namespace>:<key>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ScopedKeyer prefixes every key so that two registries, for example
// crates.io and a private mirror, never share entries:
//
//	keyer := NewScopedKeyer(nil, "crates.io:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}
