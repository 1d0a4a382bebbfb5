package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// stagingDir holds partially written objects so readers never observe a torn write.
const stagingDir = ".staging"

// LocalStore persists objects on disk under a base directory, mapping each
// slash separated key onto a relative file path.
type LocalStore struct {
	baseDir string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(filepath.Join(baseDir, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes data to the file backing key. Server side keys are ignored.
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ PutOptions) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Join(s.baseDir, stagingDir), "obj-*")
	if err != nil {
		return fmt.Errorf("stage object %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit object %s: %w", key, err)
	}
	return nil
}

// Get reads the object payload.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read object %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Head stats the file backing key.
func (s *LocalStore) Head(_ context.Context, key string) (*ObjectInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat object %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("stat object %s: %w", key, ErrObjectNotFound)
	}
	return &ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()}, nil
}

// Delete removes a stored object if present.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Copy duplicates srcKey into dstKey.
func (s *LocalStore) Copy(ctx context.Context, srcKey, dstKey string, opts PutOptions) error {
	data, err := s.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return s.Put(ctx, dstKey, data, opts)
}

// List walks the base directory and returns every key starting with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == stagingDir && filepath.Dir(path) == filepath.Clean(s.baseDir) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// HealthCheck verifies the base directory is reachable.
func (s *LocalStore) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("local storage unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local storage path %s is not a directory", s.baseDir)
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasPrefix(key, stagingDir+"/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}
