package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a relative path does not resolve to a
// regular file under any configured root.
var ErrNotFound = errors.New("media file not found")

// Resolver maps root-relative paths to absolute filesystem paths,
// rejecting anything that escapes the configured roots.
type Resolver struct {
	roots []string
}

// NewResolver canonicalizes the given root directories. Roots that do
// not exist or are not directories are rejected up front.
func NewResolver(roots []string) (*Resolver, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one media root is required")
	}

	canonical := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("stat root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %s is not a directory", root)
		}
		canonical = append(canonical, resolved)
	}

	return &Resolver{roots: canonical}, nil
}

// Roots returns the canonicalized root directories.
func (r *Resolver) Roots() []string {
	return r.roots
}

// Resolve returns the absolute path and owning root for a root-relative
// path. Roots are tried in configuration order; the first root
// containing the file wins. Traversal outside a root (via ".." or
// symlinks) yields ErrNotFound, indistinguishable from a missing file.
func (r *Resolver) Resolve(relativePath string) (absPath, root string, err error) {
	rel := filepath.FromSlash(relativePath)
	if filepath.IsAbs(rel) {
		return "", "", ErrNotFound
	}

	for _, candidate := range r.roots {
		full := filepath.Join(candidate, rel)

		resolved, err := filepath.EvalSymlinks(full)
		if err != nil {
			continue
		}
		if !withinRoot(candidate, resolved) {
			continue
		}

		info, err := os.Stat(resolved)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return resolved, candidate, nil
	}
	return "", "", ErrNotFound
}

func withinRoot(root, path string) bool {
	if path == root {
		return false
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
