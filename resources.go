// resources.go: Descriptor resource resolution over ordered filesystem roots
//
// Resource roots play the part of a search path: they are probed in the
// order they were given, and a pattern may match files in several roots.
// Roots can be real directories (OSRoot), embedded files (embed.FS) or any
// other fs.FS.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Prefixes accepted (and ignored) in front of resource patterns.
const (
	ClasspathPrefix         = "classpath:"
	ClasspathWildcardPrefix = "classpath*:"
)

// Resource is one matched descriptor.
type Resource struct {
	// URL identifies the resource in error messages: "<root>:<path>".
	URL string

	root      string
	path      string
	fsys      fs.FS
	localPath string
}

// Open opens the resource for reading.
func (r Resource) Open() (io.ReadCloser, error) {
	return r.fsys.Open(r.path)
}

// ReadAll returns the whole resource content.
func (r Resource) ReadAll() ([]byte, error) {
	return fs.ReadFile(r.fsys, r.path)
}

// Path returns the slash-separated path inside its root.
func (r Resource) Path() string { return r.path }

// LocalPath returns the OS path of the resource when its root is a local
// directory, or "" otherwise.
func (r Resource) LocalPath() string { return r.localPath }

// ResourceResolver turns a location pattern into matching resources.
// Matching nothing is not an error.
type ResourceResolver interface {
	Resolve(pattern string) ([]Resource, error)
}

// Root is a named filesystem searched for resources.
type Root struct {
	Name string
	FS   fs.FS
	// Dir is the local directory behind FS, if any.
	Dir string
}

// OSRoot creates a root backed by a local directory.
func OSRoot(name, dir string) Root {
	return Root{Name: name, FS: os.DirFS(dir), Dir: dir}
}

// FSRoot creates a root backed by an arbitrary filesystem, such as an
// embed.FS compiled into the application.
func FSRoot(name string, fsys fs.FS) Root {
	return Root{Name: name, FS: fsys}
}

// FSResolver resolves patterns against an ordered list of roots.
//
// Patterns are slash-separated paths relative to each root. They may use
// glob syntax: '*' and '?' within one path segment, '**' across segments,
// character classes and {a,b} alternatives.
type FSResolver struct {
	roots []Root
}

// NewFSResolver creates a resolver over roots, searched in order.
func NewFSResolver(roots ...Root) *FSResolver {
	return &FSResolver{roots: roots}
}

// Roots returns the configured roots.
func (r *FSResolver) Roots() []Root {
	out := make([]Root, len(r.roots))
	copy(out, r.roots)
	return out
}

// Resolve implements ResourceResolver. Results are ordered by root, then by
// path within a root.
func (r *FSResolver) Resolve(pattern string) ([]Resource, error) {
	clean, err := cleanPattern(pattern)
	if err != nil {
		return nil, err
	}

	if !hasGlobMeta(clean) {
		return r.resolveLiteral(clean)
	}

	g, err := glob.Compile(clean, '/')
	if err != nil {
		return nil, NewInvalidPatternError(pattern, err)
	}
	base := staticPrefix(clean)

	var out []Resource
	for _, root := range r.roots {
		matches, err := walkMatches(root, base, g)
		if err != nil {
			return nil, NewResourceUnreadableError(root.Name+":"+base, err)
		}
		out = append(out, matches...)
	}
	return out, nil
}

func (r *FSResolver) resolveLiteral(p string) ([]Resource, error) {
	var out []Resource
	for _, root := range r.roots {
		info, err := fs.Stat(root.FS, p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, NewResourceUnreadableError(root.Name+":"+p, err)
		}
		if info.IsDir() {
			continue
		}
		out = append(out, newResource(root, p))
	}
	return out, nil
}

func walkMatches(root Root, base string, g glob.Glob) ([]Resource, error) {
	var out []Resource
	err := fs.WalkDir(root.FS, base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == base && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(p) {
			out = append(out, newResource(root, p))
		}
		return nil
	})
	return out, err
}

func newResource(root Root, p string) Resource {
	res := Resource{
		URL:  fmt.Sprintf("%s:%s", root.Name, p),
		root: root.Name,
		path: p,
		fsys: root.FS,
	}
	if root.Dir != "" {
		res.localPath = filepath.Join(root.Dir, filepath.FromSlash(p))
	}
	return res
}

func cleanPattern(pattern string) (string, error) {
	p := strings.TrimSpace(pattern)
	p = strings.TrimPrefix(p, ClasspathWildcardPrefix)
	p = strings.TrimPrefix(p, ClasspathPrefix)
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", NewInvalidPatternError(pattern, errors.New("empty pattern"))
	}
	p = path.Clean(p)
	if !fs.ValidPath(p) {
		return "", NewInvalidPatternError(pattern, errors.New("pattern escapes the resource root"))
	}
	return p, nil
}

func hasGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{\\")
}

// staticPrefix returns the longest leading directory of p without glob
// syntax, or "." when the first segment already has some.
func staticPrefix(p string) string {
	segments := strings.Split(p, "/")
	var static []string
	for _, s := range segments[:len(segments)-1] {
		if hasGlobMeta(s) {
			break
		}
		static = append(static, s)
	}
	if len(static) == 0 {
		return "."
	}
	return strings.Join(static, "/")
}
