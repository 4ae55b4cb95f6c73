package storage

import (
	"context"
	"io"

	"github.com/lgulliver/lodestone-backend/pkg/types"
)

// BlobStorage defines the filesystem operations the backend relies on
type BlobStorage interface {
	// LayerSize returns the byte length of a committed layer
	LayerSize(ctx context.Context, layer types.Layer) (int64, error)

	// RemoveScratch deletes the scratch file of an upload token
	RemoveScratch(ctx context.Context, token string) error

	// Store saves content at the given path relative to the storage root
	Store(ctx context.Context, path string, content io.Reader) error
}
