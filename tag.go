package atomirx

// Taggable is anything that carries debug metadata: atoms, derived nodes,
// pools, and effects.
type Taggable interface {
	GetTag(tag any) (any, bool)
	SetTag(tag any, val any)
}

// Tag is a type-safe key for container metadata. Tags are a side channel for
// debugging and devtools correlation; the engine never reads them.
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key.
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging).
func (t Tag[T]) Key() string {
	return t.key
}

// Get retrieves the tag value from a container.
func (t Tag[T]) Get(src Taggable) (T, bool) {
	val, ok := src.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// MustGet retrieves the tag value or panics if not found.
func (t Tag[T]) MustGet(src Taggable) T {
	val, ok := t.Get(src)
	if !ok {
		panic("tag " + t.key + " not found")
	}
	return val
}

// GetOrDefault retrieves the tag value or returns a default.
func (t Tag[T]) GetOrDefault(src Taggable, defaultVal T) T {
	if val, ok := t.Get(src); ok {
		return val
	}
	return defaultVal
}

// Set stores the tag value on a container.
func (t Tag[T]) Set(src Taggable, val T) {
	src.SetTag(t, val)
}

// tagStore is the embedded map behind every Taggable container.
type tagStore struct {
	tags map[any]any
}

func newTagStore(initial map[any]any) tagStore {
	if initial == nil {
		initial = make(map[any]any)
	}
	return tagStore{tags: initial}
}

func (s *tagStore) GetTag(tag any) (any, bool) {
	val, ok := s.tags[tag]
	return val, ok
}

func (s *tagStore) SetTag(tag any, val any) {
	s.tags[tag] = val
}
