// Package filebrowser lists directories for numbered chat navigation and
// implements the file operations offered from a browse listing.
package filebrowser

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrPathRejected is returned when a path falls outside the allowed roots
// or is malformed.
var ErrPathRejected = errors.New("path rejected")

// PathValidator confines user-supplied paths to a safe set of roots.
type PathValidator interface {
	// Resolve returns the cleaned absolute form of raw, or an error wrapping
	// ErrPathRejected.
	Resolve(raw string) (string, error)
}

// RootValidator allows any path located under one of its roots.
type RootValidator struct {
	roots []string
}

// NewRootValidator builds a validator over roots. Relative roots are made
// absolute against the working directory; empty entries are ignored.
func NewRootValidator(roots []string) (*RootValidator, error) {
	v := &RootValidator{}
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("filebrowser: root %q: %w", r, err)
		}
		abs = filepath.Clean(abs)
		v.roots = append(v.roots, abs)
		// Accept the resolved form too so links in the root itself (macOS
		// /var -> /private/var) do not reject everything below it.
		if real, err := filepath.EvalSymlinks(abs); err == nil && real != abs {
			v.roots = append(v.roots, real)
		}
	}
	if len(v.roots) == 0 {
		return nil, fmt.Errorf("filebrowser: at least one allowed root is required")
	}
	return v, nil
}

// Roots returns a copy of the allowed roots.
func (v *RootValidator) Roots() []string {
	out := make([]string, len(v.roots))
	copy(out, v.roots)
	return out
}

// Resolve implements PathValidator.
func (v *RootValidator) Resolve(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathRejected)
	}
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: path contains null bytes", ErrPathRejected)
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathRejected, err)
	}
	clean := filepath.Clean(abs)
	if !v.allowed(clean) {
		return "", fmt.Errorf("%w: %s is outside the allowed folders", ErrPathRejected, clean)
	}

	// A symlink inside an allowed root must not lead outside of it. Paths
	// that do not exist yet (upload targets) are accepted as cleaned.
	if real, err := filepath.EvalSymlinks(clean); err == nil && real != clean {
		if !v.allowed(real) {
			return "", fmt.Errorf("%w: %s links outside the allowed folders", ErrPathRejected, clean)
		}
	}
	return clean, nil
}

func (v *RootValidator) allowed(p string) bool {
	for _, root := range v.roots {
		if within(root, p) {
			return true
		}
	}
	return false
}

// within reports whether p equals root or lies below it. Windows paths are
// compared case-insensitively.
func within(root, p string) bool {
	if runtime.GOOS == "windows" {
		root, p = strings.ToLower(root), strings.ToLower(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
