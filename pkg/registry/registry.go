package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arthur-debert/devplug/pkg/errors"
)

// Index maps names to values registered at init time, such as installer
// kinds. It is safe for concurrent use.
type Index[T any] struct {
	// noun names the indexed thing in error messages ("step kind").
	noun  string
	mu    sync.RWMutex
	items map[string]T
}

// NewIndex creates an empty Index.
func NewIndex[T any](noun string) *Index[T] {
	return &Index[T]{noun: noun, items: make(map[string]T)}
}

// Register adds item under name. Names are unique.
func (x *Index[T]) Register(name string, item T) error {
	if name == "" {
		return errors.Newf(errors.ErrInvalidInput, "%s name cannot be empty", x.noun)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.items[name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "%s %q is already registered", x.noun, name)
	}
	x.items[name] = item
	return nil
}

// Get returns the item for name, or a NOT_FOUND error listing the known
// names.
func (x *Index[T]) Get(name string) (T, error) {
	x.mu.RLock()
	item, exists := x.items[name]
	x.mu.RUnlock()
	if !exists {
		var zero T
		return zero, errors.Newf(errors.ErrNotFound, "unknown %s %q", x.noun, name).
			WithDetail("known", x.Names())
	}
	return item, nil
}

func (x *Index[T]) Has(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, exists := x.items[name]
	return exists
}

// Names returns the registered names, sorted.
func (x *Index[T]) Names() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	names := make([]string, 0, len(x.items))
	for name := range x.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (x *Index[T]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// MustRegister is Register for init functions, where a duplicate name is a
// programming error.
func MustRegister[T any](x *Index[T], name string, item T) {
	if err := x.Register(name, item); err != nil {
		panic(fmt.Sprintf("registering %s: %v", name, err))
	}
}
