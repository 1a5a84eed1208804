// plugin.go: The Plugin entity and its ordered property bag
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"strings"
	"time"

	"github.com/agilira/go-timecache"
)

// Plugin is a named wrapper around an application-supplied bean plus display
// metadata and the string properties that were bound onto the bean.
//
// A Plugin is created by an <add> descriptor operation and mutated by <set>
// operations. Callers only ever read it: all mutation goes through the
// Manager, which publishes a fresh copy whenever a load changes a Plugin, so
// a *Plugin obtained from GetPlugin never changes underneath its reader.
//
// Example:
//
//	p, ok := manager.GetPlugin("simple1")
//	if ok {
//	    cfg := p.Bean().(*Simple1Impl)
//	    fmt.Println(p.Name(), p.Summary(), cfg.Int1)
//	}
type Plugin struct {
	name        string
	class       string
	bean        any
	title       string
	summary     string
	description string
	properties  *Properties
	source      string
	loadedAt    time.Time
	updatedAt   time.Time
}

func newPlugin(name, class string, bean any, source string) *Plugin {
	now := timecache.CachedTime()
	return &Plugin{
		name:       name,
		class:      class,
		bean:       bean,
		properties: NewProperties(),
		source:     source,
		loadedAt:   now,
		updatedAt:  now,
	}
}

// Name returns the plugin name as written in the descriptor (or the class
// name when the descriptor omitted it). Lookups ignore case.
func (p *Plugin) Name() string { return p.name }

// Class returns the registered type name the bean was created from.
func (p *Plugin) Class() string { return p.class }

// Bean returns the wrapped instance.
func (p *Plugin) Bean() any { return p.bean }

// Title returns the optional display title.
func (p *Plugin) Title() string { return p.title }

// Summary returns the optional one-line summary.
func (p *Plugin) Summary() string { return p.summary }

// Description returns the optional long description.
func (p *Plugin) Description() string { return p.description }

// Properties returns a copy of the raw property strings in the order they
// were first bound.
func (p *Plugin) Properties() *Properties { return p.properties.Clone() }

// Property returns the raw string bound for name, ignoring case.
func (p *Plugin) Property(name string) (string, bool) {
	if v, ok := p.properties.Get(name); ok {
		return v, true
	}
	for _, k := range p.properties.keys {
		if strings.EqualFold(k, name) {
			return p.properties.values[k], true
		}
	}
	return "", false
}

// Source returns the resource URL of the descriptor that created the plugin.
func (p *Plugin) Source() string { return p.source }

// LoadedAt returns when the plugin was created.
func (p *Plugin) LoadedAt() time.Time { return p.loadedAt }

// UpdatedAt returns when the plugin was last changed by a <set>.
func (p *Plugin) UpdatedAt() time.Time { return p.updatedAt }

// key is the case-insensitive identity used by the Registry.
func (p *Plugin) key() string { return pluginKey(p.name) }

func pluginKey(name string) string { return strings.ToLower(name) }

// applyMetadata assigns the non-empty values of md; empty values never
// overwrite existing metadata.
func (p *Plugin) applyMetadata(md Metadata) {
	if md.Title != "" {
		p.title = md.Title
	}
	if md.Summary != "" {
		p.summary = md.Summary
	}
	if md.Description != "" {
		p.description = md.Description
	}
}

func (p *Plugin) touch() {
	p.updatedAt = timecache.CachedTime()
}

// fork returns a copy of the plugin record that a load may change without
// affecting readers of p. The bean itself is shared; a load never writes to
// it before the load is published.
func (p *Plugin) fork() *Plugin {
	cp := *p
	cp.properties = p.properties.Clone()
	return &cp
}

// Properties is an insertion-ordered string map. Setting an existing key
// replaces its value and keeps its position.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties creates an empty property bag.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores value under key.
func (ps *Properties) Set(key, value string) {
	if _, exists := ps.values[key]; !exists {
		ps.keys = append(ps.keys, key)
	}
	ps.values[key] = value
}

// Get returns the value stored under key.
func (ps *Properties) Get(key string) (string, bool) {
	v, ok := ps.values[key]
	return v, ok
}

// Delete removes key and reports whether it was present.
func (ps *Properties) Delete(key string) bool {
	if _, exists := ps.values[key]; !exists {
		return false
	}
	delete(ps.values, key)
	for i, k := range ps.keys {
		if k == key {
			ps.keys = append(ps.keys[:i], ps.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (ps *Properties) Keys() []string {
	out := make([]string, len(ps.keys))
	copy(out, ps.keys)
	return out
}

// Len returns the number of properties.
func (ps *Properties) Len() int { return len(ps.keys) }

// Each calls fn for every property in insertion order until fn returns false.
func (ps *Properties) Each(fn func(key, value string) bool) {
	for _, k := range ps.keys {
		if !fn(k, ps.values[k]) {
			return
		}
	}
}

// Map returns an unordered copy of the properties.
func (ps *Properties) Map() map[string]string {
	out := make(map[string]string, len(ps.values))
	for k, v := range ps.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (ps *Properties) Clone() *Properties {
	cp := &Properties{
		keys:   make([]string, len(ps.keys)),
		values: make(map[string]string, len(ps.values)),
	}
	copy(cp.keys, ps.keys)
	for k, v := range ps.values {
		cp.values[k] = v
	}
	return cp
}
