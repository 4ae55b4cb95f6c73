package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lgulliver/lodestone-backend/pkg/types"
)

const (
	layersDir  = "layers"
	scratchDir = "scratch"
)

// Layout maps layers and upload tokens to absolute paths under a storage root
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at root, made absolute once at construction
func NewLayout(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve storage root %q: %w", root, err)
	}
	return Layout{root: abs}, nil
}

// Root returns the absolute storage root
func (l Layout) Root() string {
	return l.root
}

// LayerPath
// <root>/layers/<name>/<repo>/<digest>
func (l Layout) LayerPath(layer types.Layer) (string, error) {
	for _, part := range []string{layer.Name, layer.Repo, layer.Digest} {
		if err := checkComponent(part); err != nil {
			return "", err
		}
	}
	return filepath.Join(l.root, layersDir, layer.Name, layer.Repo, layer.Digest), nil
}

// ScratchPath
// <root>/scratch/<token>
func (l Layout) ScratchPath(token string) (string, error) {
	if err := checkComponent(token); err != nil {
		return "", err
	}
	return filepath.Join(l.root, scratchDir, token), nil
}

// checkComponent rejects values that would resolve outside their directory
func checkComponent(part string) error {
	switch {
	case part == "", part == ".", part == "..":
		return fmt.Errorf("%q: %w", part, ErrInvalidPath)
	case strings.ContainsAny(part, `/\`), strings.ContainsRune(part, 0):
		return fmt.Errorf("%q: %w", part, ErrInvalidPath)
	}
	return nil
}
