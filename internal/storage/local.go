package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrPublishNotConfigured is returned when Publish is attempted
	// without a configured publish target.
	ErrPublishNotConfigured = errors.New("publish storage is not configured")
	// ErrOutsideRoot is returned for paths that do not belong to the storage root.
	ErrOutsideRoot = errors.New("path is outside the storage root")
)

const (
	assetsDir = "assets"
	workDir   = "work"
)

// LocalStorage implements the Storage interface using local disk.
// Assets live under <root>/assets and scratch directories under <root>/work.
// It does not support Publish unless wrapped with S3Storage.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new LocalStorage instance.
// If root is empty, a "gifstudio" directory under os.TempDir() is used.
// The directory layout is created if it doesn't exist.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "gifstudio")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	for _, dir := range []string{assetsDir, workDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	return &LocalStorage{root: abs}, nil
}

// Root returns the storage root directory.
func (s *LocalStorage) Root() string {
	return s.root
}

// Put stores data under <root>/assets with a unique suffix and returns the path.
func (s *LocalStorage) Put(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	f, err := s.create(name)
	if err != nil {
		return "", err
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write asset: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close asset: %w", err)
	}

	return fileName, nil
}

// Reserve creates an empty asset file and returns its path.
func (s *LocalStorage) Reserve(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	f, err := s.create(name)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close asset: %w", err)
	}
	return f.Name(), nil
}

// create opens a new unique file in the assets directory, keeping the extension of name.
func (s *LocalStorage) create(name string) (*os.File, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := sanitize(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "asset"
	}

	f, err := os.CreateTemp(filepath.Join(s.root, assetsDir), stem+"_*"+sanitize(ext))
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return f, nil
}

// Open reads a stored file.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if err := s.contains(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 - path is checked against the storage root
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}

	return f, nil
}

// Remove deletes the given files or work directories.
// It continues cleanup even if some paths fail to delete,
// returning the first error encountered.
func (s *LocalStorage) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		if err := s.contains(p); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", p, err)
			}
			continue
		}

		if err := os.RemoveAll(p); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// WorkDir creates a fresh directory under <root>/work.
func (s *LocalStorage) WorkDir(ctx context.Context, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	dir, err := os.MkdirTemp(filepath.Join(s.root, workDir), sanitize(prefix)+"_*")
	if err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}

// Publish is not supported by LocalStorage and returns ErrPublishNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string, _ io.Reader) (string, error) {
	return "", ErrPublishNotConfigured
}

// contains checks that path is strictly inside the storage root.
func (s *LocalStorage) contains(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}

// sanitize keeps names safe for use as file name fragments.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
