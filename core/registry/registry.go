// Package registry holds the host's module table.
// Modules are registered once at startup; after Freeze the table is
// read-only and safe for concurrent lookups.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/apphost/core/capability"
)

// ParseFunc validates raw app arguments into a method-specific input.
type ParseFunc func(args any) (any, error)

// StageFunc runs a pipeline stage after the permission check.
type StageFunc func(ctx context.Context, cc *capability.Context, input any) (any, error)

// Method is one operation exposed by a module.
type Method struct {
	Name        string
	Description string

	// Parse is required and runs only after the caller's permissions
	// have been checked.
	Parse ParseFunc

	// Translate is optional. When set, its output is what Handle receives.
	Translate StageFunc

	// Handle delegates to the host service and returns the app-visible result.
	Handle StageFunc
}

// Module is a named unit of operations gated by a fixed permission set.
type Module struct {
	Name        string
	Description string
	Permissions []capability.Permission
	Methods     []Method
}

// Method returns the method with the given name.
func (m Module) Method(name string) (Method, bool) {
	for _, meth := range m.Methods {
		if meth.Name == name {
			return meth, true
		}
	}
	return Method{}, false
}

// MethodNames returns method names in declaration order.
func (m Module) MethodNames() []string {
	names := make([]string, len(m.Methods))
	for i, meth := range m.Methods {
		names[i] = meth.Name
	}
	return names
}

// Validate checks the module definition.
func (m Module) Validate() error {
	if m.Name == "" {
		return errors.New("module name is required")
	}
	if len(m.Permissions) == 0 {
		return fmt.Errorf("module %q must require at least one permission", m.Name)
	}
	for _, p := range m.Permissions {
		if !p.IsValid() {
			return fmt.Errorf("module %q requires unknown permission %q", m.Name, p)
		}
	}
	if len(m.Methods) == 0 {
		return fmt.Errorf("module %q declares no methods", m.Name)
	}

	seen := make(map[string]bool, len(m.Methods))
	for _, meth := range m.Methods {
		switch {
		case meth.Name == "":
			return fmt.Errorf("module %q has a method without a name", m.Name)
		case seen[meth.Name]:
			return fmt.Errorf("module %q declares method %q twice", m.Name, meth.Name)
		case meth.Parse == nil:
			return fmt.Errorf("method %s.%s has no argument parser", m.Name, meth.Name)
		case meth.Handle == nil:
			return fmt.Errorf("method %s.%s has no handler", m.Name, meth.Name)
		}
		seen[meth.Name] = true
	}
	return nil
}

// ErrFrozen is returned when registering into a frozen registry.
var ErrFrozen = errors.New("registry is frozen")

// Registry manages registered modules.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	frozen  bool
}

// New creates a new registry.
func New() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module. Duplicate names and invalid definitions are rejected.
func (r *Registry) Register(mod Module) error {
	if err := mod.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %q: %w", mod.Name, ErrFrozen)
	}
	if _, exists := r.modules[mod.Name]; exists {
		return fmt.Errorf("module %q already registered", mod.Name)
	}

	// Copy slices so later edits by the caller cannot reach the table.
	mod.Permissions = append([]capability.Permission(nil), mod.Permissions...)
	mod.Methods = append([]Method(nil), mod.Methods...)
	r.modules[mod.Name] = mod
	return nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry) MustRegister(mods ...Module) {
	for _, mod := range mods {
		if err := r.Register(mod); err != nil {
			panic(err)
		}
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns a registered module by name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered modules sorted by name.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.modules))
	for _, mod := range r.modules {
		modules = append(modules, mod)
	}

	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name < modules[j].Name
	})

	return modules
}
