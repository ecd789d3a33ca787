package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores documents under a local root directory. Used outside production,
// where a bucket-backed implementation takes its place.
type Disk struct {
	root string
}

// NewDisk constructs a disk store rooted at dir.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("docstore: root dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create root: %w", err)
	}
	return &Disk{root: dir}, nil
}

// Put writes the document and returns its reference (the relative path).
func (d *Disk) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("docstore: invalid path %q", path)
	}
	full := filepath.Join(d.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("docstore: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("docstore: write: %w", err)
	}
	return clean, nil
}

// Remove deletes a stored document. A missing file is not an error: the
// reference may have been cleaned up already.
func (d *Disk) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(ref)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("docstore: invalid ref %q", ref)
	}
	if err := os.Remove(filepath.Join(d.root, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("docstore: remove: %w", err)
	}
	return nil
}
