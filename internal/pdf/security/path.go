// Package security confines file access to the upload directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the configured directory.
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator provides security validation for file paths
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory.
// The directory may be created later; until it exists every path is refused.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	return &PathValidator{
		configuredDirectory: configuredDirectory,
	}, nil
}

// ValidatePath checks if a path is within the configured directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	isWithin, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	if !isWithin {
		return fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}

	return nil
}

// IsPathWithinDirectory checks if a path is within the configured directory.
// Symlinks are resolved on both sides, so a link inside the directory that
// points outside of it is rejected.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	realDir, err := resolve(v.configuredDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	if info, err := os.Stat(realDir); err != nil || !info.IsDir() {
		return false, fmt.Errorf("configured directory is not available: %s", v.configuredDirectory)
	}

	realPath, err := resolve(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	return within(realPath, realDir), nil
}

// resolve makes path absolute and clean, then follows symlinks for the part
// of the path that exists.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	// Walk up to the deepest existing ancestor, resolve it and re-attach
	// the missing tail.
	existing, tail := abs, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(existing), tail)
		existing = parent
	}

	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(real, tail), nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// NormalizePath returns a normalized, absolute path within the configured
// directory. Relative paths are taken relative to that directory.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}

	return absPath, nil
}

// SanitizePath removes null bytes and normalizes the path
func (v *PathValidator) SanitizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	return v.NormalizePath(path)
}
