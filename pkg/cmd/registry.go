package cmd

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores commands by name. It does not dispatch; each adapter looks
// commands up and invokes them with its own payload.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds c. A second command with the same name is rejected.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if name == "" {
		return fmt.Errorf("command has no name")
	}
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("command %q already registered", name)
	}
	r.commands[name] = c
	return nil
}

// MustRegister is Register for setup code where a duplicate is a bug.
func (r *Registry) MustRegister(cs ...Command) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Get returns the command with the given name, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
