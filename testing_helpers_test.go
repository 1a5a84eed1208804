// testing_helpers_test.go: Shared beans, descriptors and fixtures for tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"
)

// testBean is the supertype every test manager is parameterized with.
type testBean interface {
	Kind() string
}

type Nested struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type Simple1Impl struct {
	Int1     int
	Bool1    bool
	Str1     string
	Ratio    float64
	Timeout  time.Duration
	Tags     []string
	Settings map[string]string
	Nested   Nested
	Endpoint string `plugin:"url"`
	Internal string `plugin:"-"`
	secret   string
}

func (s *Simple1Impl) Kind() string { return "simple1" }

type Simple2Impl struct {
	Label string
	Count int
}

func (s *Simple2Impl) Kind() string { return "simple2" }

// NotABean does not implement testBean.
type NotABean struct {
	Value string
}

const (
	simple1Class = "test.Simple1Impl"
	simple2Class = "test.Simple2Impl"
	notBeanClass = "test.NotABean"
	failingClass = "test.Failing"
)

var errFactoryFailed = errors.New("factory failed")

func newTestTypes(t *testing.T) *TypeRegistry {
	t.Helper()
	types := NewTypeRegistry()
	mustNoErr(t, RegisterType[Simple1Impl](types, simple1Class))
	mustNoErr(t, RegisterType[Simple2Impl](types, simple2Class))
	mustNoErr(t, RegisterType[NotABean](types, notBeanClass))
	mustNoErr(t, types.Register(failingClass, func() (any, error) { return nil, errFactoryFailed }))
	return types
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// newMemoryManager creates a manager over an in-memory resource root.
func newMemoryManager(t *testing.T, files fstest.MapFS, config ManagerConfig) (*Manager[testBean], *TestLogger) {
	t.Helper()
	logger := NewTestLogger()
	resolver := NewFSResolver(FSRoot("mem", files))
	m, err := NewManager[testBean](newTestTypes(t), resolver, config, logger)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, logger
}

func xmlFile(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

// TestEnvironment owns a temporary descriptor directory.
type TestEnvironment struct {
	t    *testing.T
	root string
	mu   sync.Mutex
}

// NewTestEnvironment creates a test environment whose directory is removed
// when the test ends.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	return &TestEnvironment{t: t, root: t.TempDir()}
}

// Root returns the environment directory.
func (te *TestEnvironment) Root() string { return te.root }

// WriteFile writes content to rel inside the environment and returns its
// absolute path.
func (te *TestEnvironment) WriteFile(rel, content string) string {
	te.t.Helper()
	te.mu.Lock()
	defer te.mu.Unlock()

	full := filepath.Join(te.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		te.t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		te.t.Fatalf("failed to write %s: %v", rel, err)
	}
	return full
}

// Resolver returns a resolver with the environment as its only root.
func (te *TestEnvironment) Resolver() *FSResolver {
	return NewFSResolver(OSRoot("env", te.root))
}

const simpleDescriptor = `<plugins>
  <add class="test.Simple1Impl" name="Simple1">
    <document>
      <title>Simple One</title>
      <summary>First simple plugin</summary>
      <description>  Used by the manager tests.  </description>
    </document>
    <properties>
      <prop name="int1" value="100"/>
      <prop name="bool1" value="true"/>
      <prop name="str1">  hello  </prop>
    </properties>
  </add>
  <add class="test.Simple2Impl">
    <properties>
      <prop name="label" value="second"/>
    </properties>
  </add>
</plugins>`
