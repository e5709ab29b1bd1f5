// Package di provides a small typed service container used by the bounded-context modules.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by name.
type ServiceRegistry interface {
	Get(name string) any
}

// Container registers instances and lazily built factories.
type Container interface {
	ServiceRegistry
	Register(name string, instance any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	factory  func(ServiceRegistry) any
	instance any
	built    bool
}

type container struct {
	mu       sync.Mutex
	entries  map[string]*entry
	building map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		entries:  make(map[string]*entry),
		building: make(map[string]bool),
	}
}

// Register stores a ready instance under name.
func (c *container) Register(name string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{instance: instance, built: true}
}

// RegisterFactory stores a factory that runs once, on first Get.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

// Get returns the service registered under name. It panics on unknown names
// and on dependency cycles, both of which are wiring bugs.
func (c *container) Get(name string) any {
	c.mu.Lock()
	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service %q not registered", name))
	}
	if e.built {
		c.mu.Unlock()
		return e.instance
	}
	if c.building[name] {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: dependency cycle on %q", name))
	}
	c.building[name] = true
	c.mu.Unlock()

	// factories may call Get for their own dependencies
	instance := e.factory(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.building, name)
	e.instance = instance
	e.built = true
	return instance
}

// Token names a service of type T.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key of the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory for the token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token with its static type.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	v, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return v
}
