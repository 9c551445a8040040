// Package paths maps between absolute file paths and the project-relative
// form used in reports and waivers.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize converts an absolute path to a project-relative path with
// forward slashes. Symlinks are resolved when the target exists.
func Canonicalize(absolutePath, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithin reports whether path lies under root.
func IsWithin(path, root string) bool {
	c, err := Canonicalize(path, root)
	if err != nil {
		return false
	}
	return c != ".." && !strings.HasPrefix(c, "../")
}

// Display returns the project-relative form of path when it lies under
// root, and path itself otherwise.
func Display(path, root string) string {
	if path == "" || root == "" || !filepath.IsAbs(path) {
		return path
	}
	if !IsWithin(path, root) {
		return filepath.ToSlash(path)
	}
	c, _ := Canonicalize(path, root)
	return c
}

// Resolve joins a relative path to root; absolute paths are returned clean.
func Resolve(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
