// types.go: Registry of instantiable plugin types
//
// Descriptors name plugin classes by string. Instead of loading code
// dynamically, applications register every class they want to expose up
// front, either with an explicit factory or with RegisterType, which uses the
// zero value of a struct type as its default constructor.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"errors"
	"reflect"
	"sort"
	"sync"
)

// Factory creates a new bean instance. It plays the role of a default
// constructor and must return a fresh value on every call.
type Factory func() (any, error)

// ErrNoDefaultConstructor is returned by TypeHandle.New when a type was
// registered without a usable factory.
var ErrNoDefaultConstructor = errors.New("no default constructor")

// TypeHandle is a resolved plugin class.
type TypeHandle struct {
	name    string
	factory Factory
	goType  reflect.Type
}

// Name returns the registered class name.
func (h TypeHandle) Name() string { return h.name }

// GoType returns the Go type produced by the factory, when known.
func (h TypeHandle) GoType() reflect.Type { return h.goType }

// New runs the factory. Factory errors are returned unchanged.
func (h TypeHandle) New() (any, error) {
	if h.factory == nil {
		return nil, ErrNoDefaultConstructor
	}
	instance, err := h.factory()
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, ErrNoDefaultConstructor
	}
	return instance, nil
}

// TypeRegistry maps class names to factories. It is safe for concurrent use.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]TypeHandle
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]TypeHandle)}
}

// Register binds name to factory. Names are case-sensitive, like fully
// qualified class names. A nil factory is accepted and makes every
// instantiation fail with ErrNoDefaultConstructor.
func (r *TypeRegistry) Register(name string, factory Factory) error {
	return r.register(TypeHandle{name: name, factory: factory})
}

func (r *TypeRegistry) register(h TypeHandle) error {
	if h.name == "" {
		return NewInvalidTypeNameError(h.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[h.name]; exists {
		return NewDuplicateTypeNameError(h.name)
	}
	r.types[h.name] = h
	return nil
}

// RegisterType registers *T under name with new(T) as its constructor. When
// name is empty the Go type name is used (package path + "." + type name).
//
// Example:
//
//	types := beanplugins.NewTypeRegistry()
//	beanplugins.RegisterType[Simple1Impl](types, "Simple1Impl")
func RegisterType[T any](r *TypeRegistry, name string) error {
	t := reflect.TypeFor[T]()
	if name == "" {
		name = TypeName(t)
	}
	return r.register(TypeHandle{
		name:    name,
		goType:  reflect.PointerTo(t),
		factory: func() (any, error) { return new(T), nil },
	})
}

// Resolve looks a class name up.
func (r *TypeRegistry) Resolve(name string) (TypeHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.types[name]
	if !ok {
		return TypeHandle{}, NewClassNotFoundError(name)
	}
	return h, nil
}

// Names returns the registered class names sorted alphabetically.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeName renders t as a fully-qualified name, dereferencing pointers.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
