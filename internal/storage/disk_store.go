package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore saves uploaded files to disk under a base directory.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates the base directory if missing.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Store writes data and returns its slash separated path relative to the base.
func (d *DiskStore) Store(_ context.Context, prefix string, data []byte, contentType string) (string, error) {
	key := objectKey(prefix, contentType)
	target := filepath.Join(d.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return key, nil
}

// Delete removes a stored file. Missing files are not an error.
func (d *DiskStore) Delete(_ context.Context, locator string) error {
	target, err := d.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// resolve maps a locator back to a path, refusing anything that escapes the base.
func (d *DiskStore) resolve(locator string) (string, error) {
	if locator == "" || filepath.IsAbs(locator) {
		return "", ErrInvalidLocator
	}
	target := filepath.Join(d.basePath, filepath.FromSlash(locator))
	rel, err := filepath.Rel(d.basePath, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidLocator
	}
	return target, nil
}
