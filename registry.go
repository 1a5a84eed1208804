// registry.go: Copy-on-write plugin registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Registry is an ordered collection of Plugins, unique by case-insensitive
// name.
//
// Readers never lock: the Manager changes the registry only by publishing a
// brand new backing slice through an atomic pointer, so Get and Snapshot
// always observe a complete state.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]*Plugin]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make([]*Plugin, 0)
	r.entries.Store(&empty)
	return r
}

func (r *Registry) load() []*Plugin {
	return *r.entries.Load()
}

// Get returns the plugin whose name matches (ignoring case).
func (r *Registry) Get(name string) (*Plugin, bool) {
	key := pluginKey(name)
	for _, p := range r.load() {
		if p.key() == key {
			return p, true
		}
	}
	return nil, false
}

// Snapshot returns the plugins in insertion order. The returned slice is
// owned by the caller.
func (r *Registry) Snapshot() []*Plugin {
	current := r.load()
	out := make([]*Plugin, len(current))
	copy(out, current)
	return out
}

// Len returns the number of plugins.
func (r *Registry) Len() int {
	return len(r.load())
}

// publish replaces the whole backing sequence in one step. Used by the
// Manager to commit a load's working set.
func (r *Registry) publish(plugins []*Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]*Plugin, len(plugins))
	copy(next, plugins)
	r.entries.Store(&next)
}

// workingSet is the mutable, load-local view of the registry. It is applied
// operation by operation and published only when the whole load succeeds.
//
// Beans of published plugins are shared with readers. Values bound onto them
// are staged and written by commit, so a failed load leaves them untouched.
type workingSet struct {
	plugins []*Plugin
	index   map[string]int
	forked  map[*Plugin]bool
	shared  map[*Plugin]bool
	pending map[*Plugin][]stagedWrite
}

// stagedWrite is a coerced value waiting to be stored in a bean field.
type stagedWrite struct {
	field reflect.Value
	value reflect.Value
}

func newWorkingSet(base []*Plugin) *workingSet {
	ws := &workingSet{
		plugins: make([]*Plugin, len(base)),
		index:   make(map[string]int, len(base)),
		forked:  make(map[*Plugin]bool),
		shared:  make(map[*Plugin]bool),
		pending: make(map[*Plugin][]stagedWrite),
	}
	copy(ws.plugins, base)
	for i, p := range base {
		ws.index[p.key()] = i
	}
	return ws
}

func (ws *workingSet) get(name string) (*Plugin, bool) {
	idx, ok := ws.index[pluginKey(name)]
	if !ok {
		return nil, false
	}
	return ws.plugins[idx], true
}

func (ws *workingSet) add(p *Plugin) {
	ws.index[p.key()] = len(ws.plugins)
	ws.plugins = append(ws.plugins, p)
	ws.forked[p] = true
}

// remove deletes by name and returns the former position, or -1.
func (ws *workingSet) remove(name string) int {
	key := pluginKey(name)
	idx, ok := ws.index[key]
	if !ok {
		return -1
	}
	delete(ws.pending, ws.plugins[idx])
	ws.plugins = append(ws.plugins[:idx], ws.plugins[idx+1:]...)
	delete(ws.index, key)
	for i := idx; i < len(ws.plugins); i++ {
		ws.index[ws.plugins[i].key()] = i
	}
	return idx
}

// insert places p at position idx (clamped to the end).
func (ws *workingSet) insert(idx int, p *Plugin) {
	if idx < 0 || idx >= len(ws.plugins) {
		ws.add(p)
		return
	}
	ws.plugins = append(ws.plugins, nil)
	copy(ws.plugins[idx+1:], ws.plugins[idx:])
	ws.plugins[idx] = p
	for i := idx; i < len(ws.plugins); i++ {
		ws.index[ws.plugins[i].key()] = i
	}
	ws.forked[p] = true
}

// mutable returns a record of the named plugin that this load may change,
// forking it on first use so published records are never mutated. A forked
// record keeps the published bean, see sharesBean.
func (ws *workingSet) mutable(name string) (*Plugin, bool) {
	idx, ok := ws.index[pluginKey(name)]
	if !ok {
		return nil, false
	}
	p := ws.plugins[idx]
	if ws.forked[p] {
		return p, true
	}
	cp := p.fork()
	ws.plugins[idx] = cp
	ws.forked[cp] = true
	ws.shared[cp] = true
	return cp, true
}

// sharesBean reports whether p's bean is also visible through the published
// registry, in which case bound values must go through stage.
func (ws *workingSet) sharesBean(p *Plugin) bool {
	return ws.shared[p]
}

// stage records that value must be stored into target's field of p's bean
// when the load commits.
func (ws *workingSet) stage(p *Plugin, target, value *BeanProperty) {
	ws.pending[p] = append(ws.pending[p], stagedWrite{field: target.field, value: value.field})
}

// commit stores every staged value of the plugins still in the set, in the
// order they were bound.
func (ws *workingSet) commit() {
	for _, p := range ws.plugins {
		for _, w := range ws.pending[p] {
			w.field.Set(w.value)
		}
	}
	clear(ws.pending)
}
