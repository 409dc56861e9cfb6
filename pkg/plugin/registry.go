package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownPlugin is returned by Registry.New for unregistered type names.
var ErrUnknownPlugin = errors.New("unknown plugin type")

// Factory creates a fresh plugin instance.
type Factory func() Plugin

// Entry pairs a registered type name with its descriptor and kind.
type Entry struct {
	Type       string     `json:"type"`
	Kind       Kind       `json:"kind"`
	Descriptor Descriptor `json:"descriptor"`
}

// Registry maps plugin type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under typeName. The factory's product must
// implement one of the variant interfaces.
func (r *Registry) Register(typeName string, factory Factory) error {
	if typeName == "" {
		return errors.New("plugin type name is required")
	}
	if KindOf(factory()) == KindUnknown {
		return fmt.Errorf("plugin %s implements no known variant", typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		return fmt.Errorf("plugin %s already registered", typeName)
	}
	r.factories[typeName] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(typeName string, factory Factory) {
	if err := r.Register(typeName, factory); err != nil {
		panic(err)
	}
}

// New instantiates the plugin registered under typeName.
func (r *Registry) New(typeName string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, typeName)
	}
	return factory(), nil
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeName]
	return ok
}

// Entries lists the catalogue sorted by type name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.factories))
	for name, factory := range r.factories {
		p := factory()
		entries = append(entries, Entry{Type: name, Kind: KindOf(p), Descriptor: p.Describe()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	return entries
}
