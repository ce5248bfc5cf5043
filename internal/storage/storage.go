// Package storage provides asset and publish storage capabilities.
// It defines the Storage interface (port) and implementations for local
// disk and S3-backed publishing.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for project assets and rendered outputs.
// Every path it returns lives under the storage root and is only valid
// for the same Storage instance.
type Storage interface {
	// Put stores data under a unique name derived from name and returns its path.
	// The extension of name is preserved.
	Put(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Reserve creates an empty file derived from name and returns its path,
	// for external tools that write their output to a path.
	Reserve(ctx context.Context, name string) (path string, err error)

	// Open reads a stored file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the given files or work directories.
	// Missing paths are ignored. It continues past failures and returns
	// the first error encountered.
	Remove(ctx context.Context, paths []string) error

	// WorkDir creates a fresh scratch directory and returns its path.
	WorkDir(ctx context.Context, prefix string) (dir string, err error)

	// Publish uploads data for external delivery and returns its public URL.
	// Returns ErrPublishNotConfigured if no publish target is configured.
	Publish(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
