package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/rs/zerolog/log"
)

// LocalStorage implements BlobStorage on the local filesystem
type LocalStorage struct {
	layout Layout
}

// NewLocalStorage creates a new local storage instance rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	layout, err := NewLayout(basePath)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{layout.Root(), filepath.Join(layout.Root(), layersDir), filepath.Join(layout.Root(), scratchDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error().Err(err).Str("path", dir).Msg("failed to create storage directory")
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	log.Info().Str("path", layout.Root()).Msg("local storage initialized")
	return &LocalStorage{layout: layout}, nil
}

// Layout returns the path layout of the storage
func (ls *LocalStorage) Layout() Layout {
	return ls.layout
}

// LayerSize stats the committed layer and returns its size in bytes
func (ls *LocalStorage) LayerSize(ctx context.Context, layer types.Layer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := ls.layout.LayerPath(layer)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat layer %s: %w", layer, classify(err))
	}
	if info.IsDir() {
		return 0, fmt.Errorf("layer %s is a directory: %w", layer, ErrNotFound)
	}

	log.Debug().Str("path", path).Int64("size", info.Size()).Msg("layer size retrieved")
	return info.Size(), nil
}

// RemoveScratch deletes the scratch file addressed by an upload token
func (ls *LocalStorage) RemoveScratch(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := ls.layout.ScratchPath(token)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove scratch file %s: %w", token, classify(err))
	}

	log.Debug().Str("path", path).Msg("scratch file removed")
	return nil
}

// Store writes content below the storage root using a temp file and rename
func (ls *LocalStorage) Store(ctx context.Context, path string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsLocal(path) {
		return fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}

	startTime := time.Now()
	fullPath := filepath.Join(ls.layout.Root(), path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("path", path).Str("dir", dir).Msg("failed to create directory")
		return fmt.Errorf("failed to create directory: %w", classify(err))
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(fullPath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", classify(err))
	}
	tempPath := tempFile.Name()

	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(tempFile, content)
	if err != nil {
		return fmt.Errorf("failed to write content: %w", ErrIO)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", ErrIO)
	}
	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to move temporary file to final location")
		return fmt.Errorf("failed to move file to final location: %w", classify(err))
	}

	log.Debug().
		Str("path", path).
		Int64("bytes_written", written).
		Dur("duration", time.Since(startTime)).
		Msg("file stored")

	return nil
}

// classify maps filesystem errors onto the storage error set
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	default:
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
}
