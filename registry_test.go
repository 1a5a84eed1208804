// registry_test.go: Copy-on-write registry and working set tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func plugin(name string) *Plugin {
	return newPlugin(name, simple2Class, &Simple2Impl{}, "mem:test")
}

func TestRegistryBasicOperations(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())
	_, ok := r.Get("one")
	assert.False(t, ok)

	plugins := []*Plugin{plugin("One"), plugin("Two")}
	r.publish(plugins)
	plugins[0] = plugin("Three")

	p, ok := r.Get("ONE")
	require.True(t, ok)
	assert.Equal(t, "One", p.Name())

	snapshot := r.Snapshot()
	assert.Equal(t, []string{"One", "Two"}, pluginNames(snapshot), "publish copies its input")

	r.publish([]*Plugin{plugin("Two")})
	assert.Equal(t, 1, r.Len())
	assert.Len(t, snapshot, 2, "snapshots are not affected by later publishes")
}

func TestWorkingSetOperations(t *testing.T) {
	base := []*Plugin{plugin("a"), plugin("b"), plugin("c")}
	ws := newWorkingSet(base)

	pos := ws.remove("B")
	assert.Equal(t, 1, pos)
	assert.Equal(t, -1, ws.remove("b"))

	ws.insert(pos, plugin("B2"))
	assert.Equal(t, []string{"a", "B2", "c"}, pluginNames(ws.plugins))

	got, ok := ws.get("b2")
	require.True(t, ok)
	assert.Equal(t, "B2", got.Name())

	ws.insert(-1, plugin("d"))
	ws.insert(99, plugin("e"))
	assert.Equal(t, []string{"a", "B2", "c", "d", "e"}, pluginNames(ws.plugins))

	// inserted plugins belong to this load and are mutated in place
	m, _ := ws.mutable("B2")
	assert.Same(t, got, m)

	// base plugins are forked once
	first, _ := ws.mutable("a")
	assert.NotSame(t, base[0], first)
	second, _ := ws.mutable("A")
	assert.Same(t, first, second)

	assert.Equal(t, "a", base[0].Name())
	assert.Equal(t, []string{"a", "b", "c"}, pluginNames(base), "base slice untouched")

	assert.True(t, ws.sharesBean(first))
	assert.False(t, ws.sharesBean(m))
}

func TestWorkingSetStagesSharedBeans(t *testing.T) {
	bean := &Simple1Impl{Int1: 1}
	goneBean := &Simple1Impl{}
	base := []*Plugin{
		newPlugin("p", simple1Class, bean, "mem:test"),
		newPlugin("gone", simple1Class, goneBean, "mem:test"),
	}
	binder := NewReflectBinder()

	ws := newWorkingSet(base)
	p, _ := ws.mutable("p")
	require.Same(t, bean, p.Bean())

	prop, err := binder.Lookup(p.Bean(), "int1")
	require.NoError(t, err)
	staged := prop.detached()
	raw := "5"
	require.NoError(t, binder.Bind(staged, &raw, false))
	ws.stage(p, prop, staged)
	assert.Equal(t, 1, bean.Int1, "nothing is written before commit")

	gone, _ := ws.mutable("gone")
	goneProp, err := binder.Lookup(goneBean, "int1")
	require.NoError(t, err)
	goneStaged := goneProp.detached()
	require.NoError(t, binder.Bind(goneStaged, &raw, false))
	ws.stage(gone, goneProp, goneStaged)
	ws.remove("gone")

	ws.commit()
	assert.Equal(t, 5, bean.Int1)
	assert.Equal(t, 0, goneBean.Int1, "writes of removed plugins are dropped")
}

func TestRegistryConcurrentReaders(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := r.Snapshot()
				for i, p := range snap {
					if p == nil {
						t.Errorf("nil plugin at %d", i)
						return
					}
				}
				r.Get("p-1")
			}
		}()
	}

	var current []*Plugin
	for i := 0; i < 200; i++ {
		ws := newWorkingSet(current)
		ws.add(plugin(fmt.Sprintf("p-%d", i)))
		if i%3 == 0 {
			ws.remove(fmt.Sprintf("p-%d", i/2))
		}
		r.publish(ws.plugins)
		current = r.Snapshot()
	}
	close(stop)
	wg.Wait()
}

// TestRegistryNamesStayUnique checks the case-insensitive uniqueness invariant
// under random sequences of adds, removes and replacements.
func TestRegistryNamesStayUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		names := []string{"alpha", "Alpha", "ALPHA", "beta", "Beta", "gamma"}

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			name := rapid.SampledFrom(names).Draw(t, "name")
			ws := newWorkingSet(r.Snapshot())
			_, exists := ws.get(name)
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				if !exists {
					ws.add(plugin(name))
				}
			case 1:
				if pos := ws.remove(name); (pos >= 0) != exists {
					t.Fatalf("remove(%q) disagrees with get", name)
				}
			case 2:
				if exists {
					pos := ws.remove(name)
					ws.insert(pos, plugin(strings.ToUpper(name)))
				}
			}
			r.publish(ws.plugins)

			seen := map[string]bool{}
			for _, p := range r.Snapshot() {
				key := strings.ToLower(p.Name())
				if seen[key] {
					t.Fatalf("duplicate name %q", p.Name())
				}
				seen[key] = true
			}
		}
	})
}
