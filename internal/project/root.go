// Package project locates the project root for a file and rewrites
// absolute paths relative to it. All analysis output uses root-relative
// paths so payloads stay stable across machines.
package project

import (
	"os"
	"path/filepath"
	"strings"
)

// Marker files that identify a project root, checked in this order.
var rootMarkers = []string{
	"go.mod",
	"Cargo.toml",
	"package.json",
	"pyproject.toml",
	".git",
}

// FindRoot walks up from start (a file or directory) to the nearest
// ancestor containing a recognized marker. Returns false when no
// ancestor qualifies.
func FindRoot(start string) (string, bool) {
	current := start
	if info, err := os.Stat(current); err != nil || !info.IsDir() {
		current = filepath.Dir(current)
	}

	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// RootFor resolves the project root for a path, falling back to the
// path's own directory when no marker is found.
func RootFor(path string) string {
	if root, ok := FindRoot(path); ok {
		return root
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs
	}
	return filepath.Dir(abs)
}

// RelPath converts path to a project-relative form. Already-relative
// paths pass through untouched; paths outside the root fall back to the
// original string rather than emitting "../" escapes.
func RelPath(root, path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Contains reports whether path sits under root after lexical cleaning.
func Contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
