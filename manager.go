// manager.go: Descriptor-driven plugin manager
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ManagerState is the externally visible lifecycle state of a Manager.
type ManagerState int32

const (
	// StateUnloaded means no load has succeeded yet and the registry is empty.
	StateUnloaded ManagerState = iota
	// StateLoaded means at least one load has been fully applied.
	StateLoaded
)

// String returns the state name.
func (s ManagerState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Manager turns XML descriptors into a registry of named Plugins whose beans
// are all assignable to B.
//
// Loads are serialized and cumulative: each Load applies every <add> of every
// matched descriptor, then every <set>, on top of the plugins kept from
// earlier loads. A load is applied to a private working copy and published
// only when all of its operations succeed, so a failed load leaves the
// registry exactly as it was. GetPlugin and GetPlugins never block and can
// run concurrently with Load.
//
// A <set> without a class updates the existing bean in place: its new field
// values are written when the load is published, so a bean obtained before
// the load sees them. A <set> with a class creates a new bean.
//
// Example usage:
//
//	types := beanplugins.NewTypeRegistry()
//	beanplugins.RegisterType[FileSink](types, "example.com/app.FileSink")
//
//	resolver := beanplugins.NewFSResolver(beanplugins.OSRoot("app", "./config"))
//	manager, err := beanplugins.NewManager[Sink](types, resolver,
//	    beanplugins.ManagerConfig{Locations: []string{"plugins/"}}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := manager.Load(); err != nil {
//	    log.Fatal(err)
//	}
//	p, _ := manager.GetPlugin("filesink")
//	sink := p.Bean().(Sink)
type Manager[B any] struct {
	types    *TypeRegistry
	resolver ResourceResolver
	binder   PropertyBinder
	config   ManagerConfig
	logger   Logger

	beanType reflect.Type
	registry *Registry

	loadMu    sync.Mutex
	state     atomic.Int32
	loads     atomic.Int64
	failures  atomic.Int64
	resources atomic.Pointer[[]Resource]
}

// ManagerOption customizes a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	binder PropertyBinder
}

// WithBinder replaces the default ReflectBinder.
func WithBinder(binder PropertyBinder) ManagerOption {
	return func(o *managerOptions) {
		if binder != nil {
			o.binder = binder
		}
	}
}

// ManagerStats is a point-in-time view of load activity.
type ManagerStats struct {
	State       ManagerState
	Loads       int64
	FailedLoads int64
	Plugins     int

	// Resources counts the descriptors of the last Load or Reload; in-memory
	// documents are not included.
	Resources int
}

// NewManager creates a manager for beans assignable to B. The logger may be
// a Logger, a *slog.Logger or nil.
func NewManager[B any](types *TypeRegistry, resolver ResourceResolver, config ManagerConfig, logger any, opts ...ManagerOption) (*Manager[B], error) {
	if types == nil {
		return nil, NewConfigValidationError("type registry cannot be nil", nil)
	}
	if resolver == nil {
		return nil, NewConfigValidationError("resource resolver cannot be nil", nil)
	}

	beanType := reflect.TypeFor[B]()
	config.ApplyDefaults(DefaultPluginType(beanType))
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := managerOptions{binder: NewReflectBinder()}
	for _, opt := range opts {
		opt(&options)
	}

	m := &Manager[B]{
		types:    types,
		resolver: resolver,
		binder:   options.binder,
		config:   config,
		logger:   NewLogger(logger).With("component", "plugin_manager", "plugin_type", config.PluginType),
		beanType: beanType,
		registry: NewRegistry(),
	}
	empty := make([]Resource, 0)
	m.resources.Store(&empty)
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager[B]) Config() ManagerConfig {
	return m.config
}

// Load scans every configured location, validates the matched descriptors and
// applies them on top of the current registry. It returns the registry
// contents after the load. Locations that match nothing are skipped. Any
// other failure aborts the whole load and is returned wrapped in an
// ErrCodeLoadFailed error.
func (m *Manager[B]) Load() ([]*Plugin, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.loadLocked(false)
}

// Reload rebuilds the registry from the configured locations alone,
// discarding plugins of earlier loads. The new registry replaces the old
// one in a single step, and only when the rebuild succeeds.
func (m *Manager[B]) Reload() ([]*Plugin, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.loadLocked(true)
}

func (m *Manager[B]) loadLocked(fresh bool) ([]*Plugin, error) {
	start := time.Now()
	locations, err := m.config.ResolveLocations()
	if err != nil {
		return nil, m.fail(err)
	}

	var descriptors []*Descriptor
	var resources []Resource
	for _, location := range locations {
		matched, err := m.resolver.Resolve(location)
		if err != nil {
			return nil, m.fail(err)
		}
		if len(matched) == 0 {
			m.logger.Debug("No descriptor matched location", "location", location)
			continue
		}
		for _, res := range matched {
			data, err := res.ReadAll()
			if err != nil {
				return nil, m.fail(NewResourceUnreadableError(res.URL, err))
			}
			desc, err := ParseDescriptor(res.URL, data)
			if err != nil {
				return nil, m.fail(err)
			}
			m.logger.Debug("Descriptor parsed", "resource", res.URL, "operations", len(desc.Operations))
			descriptors = append(descriptors, desc)
			resources = append(resources, res)
		}
	}

	plugins, err := m.apply(descriptors, fresh)
	if err != nil {
		return nil, m.fail(err)
	}
	m.resources.Store(&resources)

	m.logger.Info("Plugins loaded",
		"descriptors", len(descriptors),
		"plugins", len(plugins),
		"rebuild", fresh,
		"duration", time.Since(start))
	return plugins, nil
}

// LoadDocuments applies in-memory descriptors exactly like Load applies
// resolved resources. Document n is reported as "memory:<n>" in errors.
func (m *Manager[B]) LoadDocuments(docs ...[]byte) ([]*Plugin, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	descriptors := make([]*Descriptor, 0, len(docs))
	for i, data := range docs {
		desc, err := ParseDescriptor("memory:"+strconv.Itoa(i), data)
		if err != nil {
			return nil, m.fail(err)
		}
		descriptors = append(descriptors, desc)
	}

	plugins, err := m.apply(descriptors, false)
	if err != nil {
		return nil, m.fail(err)
	}
	m.logger.Info("Plugins loaded from memory", "descriptors", len(descriptors), "plugins", len(plugins))
	return plugins, nil
}

// GetPlugin returns the plugin called name, ignoring case.
func (m *Manager[B]) GetPlugin(name string) (*Plugin, bool) {
	return m.registry.Get(name)
}

// GetBean returns the bean of the plugin called name, typed as B.
func (m *Manager[B]) GetBean(name string) (B, bool) {
	var zero B
	p, ok := m.registry.Get(name)
	if !ok {
		return zero, false
	}
	bean, ok := p.Bean().(B)
	return bean, ok
}

// GetPlugins returns a snapshot of all plugins in insertion order.
func (m *Manager[B]) GetPlugins() []*Plugin {
	return m.registry.Snapshot()
}

// State returns the current lifecycle state.
func (m *Manager[B]) State() ManagerState {
	return ManagerState(m.state.Load())
}

// Loads returns the number of successfully applied loads.
func (m *Manager[B]) Loads() int64 {
	return m.loads.Load()
}

// Resources returns the resources matched by the last successful Load or
// Reload. LoadDocuments does not change them.
func (m *Manager[B]) Resources() []Resource {
	current := *m.resources.Load()
	out := make([]Resource, len(current))
	copy(out, current)
	return out
}

// Stats returns load counters.
func (m *Manager[B]) Stats() ManagerStats {
	return ManagerStats{
		State:       m.State(),
		Loads:       m.loads.Load(),
		FailedLoads: m.failures.Load(),
		Plugins:     m.registry.Len(),
		Resources:   len(*m.resources.Load()),
	}
}

func (m *Manager[B]) fail(err error) error {
	m.failures.Add(1)
	m.logger.Error("Plugin load failed", "error", err)
	return NewLoadFailedError(err)
}

// apply runs the two-phase plan on a working copy and publishes it. The
// copy starts empty when fresh is set.
func (m *Manager[B]) apply(descriptors []*Descriptor, fresh bool) ([]*Plugin, error) {
	plan := NewPlan(descriptors...)
	var base []*Plugin
	if !fresh {
		base = m.registry.Snapshot()
	}
	ws := newWorkingSet(base)

	for _, op := range plan.Adds {
		if err := m.applyAdd(ws, op, -1); err != nil {
			return nil, err
		}
	}
	for _, op := range plan.Sets {
		if err := m.applySet(ws, op); err != nil {
			return nil, err
		}
	}

	ws.commit()
	m.registry.publish(ws.plugins)
	m.loads.Add(1)
	m.state.Store(int32(StateLoaded))
	return m.registry.Snapshot(), nil
}

// applyAdd creates a plugin from op and inserts it at position, or appends
// it when position is negative.
func (m *Manager[B]) applyAdd(ws *workingSet, op Operation, position int) error {
	handle, err := m.types.Resolve(op.Class)
	if err != nil {
		return err
	}

	name := op.TargetName()
	if _, exists := ws.get(name); exists {
		return NewDuplicatePluginError(name, op.Resource)
	}
	if goType := handle.GoType(); goType != nil && !goType.AssignableTo(m.beanType) {
		return NewNotAssignableError(name, op.Class, TypeName(m.beanType), op.Resource)
	}

	bean, err := handle.New()
	if err != nil {
		return NewConstructionError(op.Class, err)
	}
	if _, ok := bean.(B); !ok {
		return NewNotAssignableError(name, op.Class, TypeName(m.beanType), op.Resource)
	}

	p := newPlugin(name, op.Class, bean, op.Resource)
	if err := m.bind(ws, p, op); err != nil {
		return err
	}
	ws.insert(position, p)

	m.logger.Debug("Plugin added", "plugin_name", name, "class", op.Class, "resource", op.Resource)
	return nil
}

func (m *Manager[B]) applySet(ws *workingSet, op Operation) error {
	if _, exists := ws.get(op.Name); !exists {
		return NewPluginNotFoundError(op.Name, op.Resource)
	}

	if op.Class != "" {
		position := ws.remove(op.Name)
		m.logger.Debug("Plugin replaced", "plugin_name", op.Name, "class", op.Class, "resource", op.Resource)
		return m.applyAdd(ws, op, position)
	}

	p, _ := ws.mutable(op.Name)
	if err := m.bind(ws, p, op); err != nil {
		return err
	}
	p.touch()

	m.logger.Debug("Plugin updated", "plugin_name", p.Name(), "resource", op.Resource)
	return nil
}

// bind applies the <document> metadata and <properties> of op onto p. When
// p's bean is already published, coerced values are staged in ws and reach
// the bean only when the load commits.
func (m *Manager[B]) bind(ws *workingSet, p *Plugin, op Operation) error {
	if op.HasDocument {
		p.applyMetadata(op.Metadata)
	}

	for _, spec := range op.Properties {
		prop, err := m.binder.Lookup(p.bean, spec.Name)
		if err != nil {
			return err
		}

		raw := spec.RawValue()
		if raw != nil && m.config.ExpandEnv {
			expanded, err := ExpandEnvironmentVariables(*raw, m.config.Env)
			if err != nil {
				return err
			}
			raw = &expanded
		}

		target := prop
		if ws.sharesBean(p) {
			target = prop.detached()
		}
		if err := m.binder.Bind(target, raw, spec.IsJSON()); err != nil {
			return err
		}
		if target != prop {
			ws.stage(p, prop, target)
		}
		if raw != nil {
			p.properties.Set(prop.Name, *raw)
		} else {
			p.properties.Delete(prop.Name)
		}
	}
	return nil
}
