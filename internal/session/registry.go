package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/rs/zerolog/log"
)

// ScratchRemover deletes the scratch file kept for an upload token
type ScratchRemover interface {
	RemoveScratch(ctx context.Context, token string) error
}

// Registry tracks active upload sessions
type Registry struct {
	store    Store
	scratch  ScratchRemover
	newToken func() string
}

// NewRegistry creates a registry over store; scratch files are removed through scratch on cancel
func NewRegistry(store Store, scratch ScratchRemover) *Registry {
	return &Registry{
		store:    store,
		scratch:  scratch,
		newToken: uuid.NewString,
	}
}

// Create starts a new upload session for name/repo and returns its token
func (r *Registry) Create(ctx context.Context, name, repo string) (string, error) {
	layer := types.Layer{Name: name, Repo: repo, Digest: r.newToken()}

	if err := r.store.Add(ctx, layer); err != nil {
		return "", unavailable("create", layer, err)
	}

	log.Info().
		Str("session_id", layer.Digest).
		Str("name", name).
		Str("repo", repo).
		Msg("Started upload session")

	return layer.Digest, nil
}

// Exists reports whether the session is tracked
func (r *Registry) Exists(ctx context.Context, name, repo, digest string) (bool, error) {
	layer := types.Layer{Name: name, Repo: repo, Digest: digest}

	ok, err := r.store.Contains(ctx, layer)
	if err != nil {
		return false, unavailable("lookup", layer, err)
	}
	return ok, nil
}

// Cancel stops tracking the session and removes the scratch file named by digest.
// The scratch removal is independent of the registry entry and its outcome is not reported.
func (r *Registry) Cancel(ctx context.Context, name, repo, digest string) (bool, error) {
	layer := types.Layer{Name: name, Repo: repo, Digest: digest}

	removed, err := r.store.Remove(ctx, layer)
	if err != nil {
		return false, unavailable("cancel", layer, err)
	}

	if r.scratch != nil {
		if err := r.scratch.RemoveScratch(ctx, digest); err != nil {
			log.Debug().Err(err).Str("session_id", digest).Msg("scratch file not removed")
		}
	}

	log.Info().
		Str("session_id", digest).
		Str("name", name).
		Str("repo", repo).
		Bool("tracked", removed).
		Msg("Cancelled upload session")

	return removed, nil
}

// Delete stops tracking the session without touching the filesystem
func (r *Registry) Delete(ctx context.Context, name, repo, digest string) (bool, error) {
	layer := types.Layer{Name: name, Repo: repo, Digest: digest}

	removed, err := r.store.Remove(ctx, layer)
	if err != nil {
		return false, unavailable("delete", layer, err)
	}

	log.Debug().Str("session", layer.String()).Bool("tracked", removed).Msg("Deleted upload session")
	return removed, nil
}

// List returns a snapshot of the tokens of all tracked sessions, sorted and without duplicates
func (r *Registry) List(ctx context.Context) ([]string, error) {
	layers, err := r.store.Layers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrRegistryUnavailable, err)
	}

	seen := make(map[string]struct{}, len(layers))
	tokens := make([]string, 0, len(layers))
	for _, layer := range layers {
		if _, dup := seen[layer.Digest]; dup {
			continue
		}
		seen[layer.Digest] = struct{}{}
		tokens = append(tokens, layer.Digest)
	}
	sort.Strings(tokens)

	return tokens, nil
}

// Sessions returns a snapshot of all tracked sessions
func (r *Registry) Sessions(ctx context.Context) ([]types.Layer, error) {
	layers, err := r.store.Layers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: sessions: %v", ErrRegistryUnavailable, err)
	}

	sort.Slice(layers, func(i, j int) bool {
		return layers[i].String() < layers[j].String()
	})
	return layers, nil
}

func unavailable(op string, layer types.Layer, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrRegistryUnavailable, op, layer, err)
}
