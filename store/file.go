package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File keeps options in a flat YAML mapping on disk. The file is read on
// first use and rewritten atomically on every change.
type File struct {
	path string
	perm fs.FileMode

	mu     sync.Mutex
	loaded bool
	values map[string]string
}

// NewFile returns a store backed by the YAML file at path. The file is
// created on the first write; credentials are written with mode 0600.
func NewFile(path string) *File {
	return &File{path: path, perm: 0o600}
}

// Path returns the backing file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) SetOption(ctx context.Context, key, value string) error {
	return f.SetOptions(ctx, map[string]string{key: value})
}

// SetOptions applies every entry of values with a single file write.
func (f *File) SetOptions(_ context.Context, values map[string]string) error {
	for k := range values {
		if k == "" {
			return ErrEmptyKey
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return err
	}
	next := make(map[string]string, len(f.values)+len(values))
	for k, v := range f.values {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := f.flushLocked(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *File) GetOption(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return "", err
	}
	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) DeleteOption(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadLocked(); err != nil {
		return err
	}
	if _, ok := f.values[key]; !ok {
		return nil
	}
	next := make(map[string]string, len(f.values))
	for k, v := range f.values {
		if k != key {
			next[k] = v
		}
	}
	if err := f.flushLocked(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *File) loadLocked() error {
	if f.loaded {
		return nil
	}

	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("%w: read %s: %v", ErrUnavailable, f.path, err)
	default:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, f.path, err)
		}
		if values == nil {
			values = map[string]string{}
		}
	}

	f.values = values
	f.loaded = true
	return nil
}

func (f *File) flushLocked(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}
	if err := writeFileAtomic(f.path, data, f.perm); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it and renames it over path. If the rename fails because the target is
// locked, it retries once after removing the target.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
