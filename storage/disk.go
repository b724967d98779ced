package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores blobs as files below a root directory.
type Disk struct {
	root string
}

var _ Blobs = (*Disk)(nil)

// NewDisk creates the root directory if needed.
func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("error creating upload directory: %w", err)
	}
	return &Disk{root: abs}, nil
}

// Root returns the absolute upload directory.
func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) path(key string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(key))
	if p == d.root || !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("blob key %q escapes the upload directory", key)
	}
	return p, nil
}

// Put writes r to a new file. An existing file under the same key is
// never overwritten.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("error creating blob directory: %w", err)
	}
	dst, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("error creating blob file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(p)
		return fmt.Errorf("error writing blob file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(p)
		return fmt.Errorf("error closing blob file: %w", err)
	}
	return nil
}

// Get opens the file stored under key.
func (d *Disk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("error opening blob file: %w", err)
	}
	return f, nil
}

// Delete removes the file stored under key.
func (d *Disk) Delete(ctx context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing blob file '%s': %w", key, err)
	}
	return nil
}
