package backend

import (
	"context"
	"errors"

	"github.com/lgulliver/lodestone-backend/internal/metrics"
	"github.com/lgulliver/lodestone-backend/internal/storage"
	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/lgulliver/lodestone-backend/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionRegistry is the upload session table the service dispatches to
type SessionRegistry interface {
	Create(ctx context.Context, name, repo string) (string, error)
	Exists(ctx context.Context, name, repo, digest string) (bool, error)
	Cancel(ctx context.Context, name, repo, digest string) (bool, error)
	Delete(ctx context.Context, name, repo, digest string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Sessions(ctx context.Context) ([]types.Layer, error)
}

// LayerChecker reports the size of committed layers
type LayerChecker interface {
	LayerSize(ctx context.Context, layer types.Layer) (int64, error)
}

// Service implements the backend calls. Ordinary misses and storage failures are
// answered with success=false; only a failing session registry yields an error.
type Service struct {
	sessions SessionRegistry
	layers   LayerChecker
}

// NewService creates a new backend service
func NewService(sessions SessionRegistry, layers LayerChecker) *Service {
	return &Service{
		sessions: sessions,
		layers:   layers,
	}
}

// LayerExists reports whether a committed layer is stored and its length
func (s *Service) LayerExists(ctx context.Context, req types.Layer) types.LayerExistsResult {
	size, err := s.layers.LayerSize(ctx, req)
	if err != nil {
		logLayerFailure(err).
			Err(err).
			Str("layer", req.String()).
			Msg("Layer lookup failed")
		metrics.LayerLookups.Increment(lookupResult(err))
		return types.LayerExistsResult{Success: false, Length: 0}
	}

	log.Debug().
		Str("layer", req.String()).
		Int64("length", size).
		Str("size", utils.FormatBytes(size)).
		Msg("Layer found")
	metrics.LayerLookups.Increment("found")
	return types.LayerExistsResult{Success: true, Length: uint64(size)}
}

// GenUuid opens an upload session for the layer's name and repo
func (s *Service) GenUuid(ctx context.Context, req types.Layer) (types.GenUuidResult, error) {
	token, err := s.sessions.Create(ctx, req.Name, req.Repo)
	if err != nil {
		return types.GenUuidResult{}, err
	}
	metrics.SessionsCreated.Increment()
	return types.GenUuidResult{Uuid: token}, nil
}

// UuidExists reports whether the upload session is tracked
func (s *Service) UuidExists(ctx context.Context, req types.Layer) (types.Result, error) {
	ok, err := s.sessions.Exists(ctx, req.Name, req.Repo, req.Digest)
	if err != nil {
		return types.Result{}, err
	}
	return types.Result{Success: ok}, nil
}

// CancelUpload drops the session and its scratch file; success reflects the session only
func (s *Service) CancelUpload(ctx context.Context, req types.Layer) (types.Result, error) {
	ok, err := s.sessions.Cancel(ctx, req.Name, req.Repo, req.Digest)
	if err != nil {
		return types.Result{}, err
	}
	if ok {
		metrics.SessionsRemoved.Increment("cancel")
	}
	return types.Result{Success: ok}, nil
}

// DeleteUuid drops the session without touching the filesystem
func (s *Service) DeleteUuid(ctx context.Context, req types.Layer) (types.Result, error) {
	ok, err := s.sessions.Delete(ctx, req.Name, req.Repo, req.Digest)
	if err != nil {
		return types.Result{}, err
	}
	if ok {
		metrics.SessionsRemoved.Increment("delete")
	}
	return types.Result{Success: ok}, nil
}

// UploadManifest is not implemented and always fails
func (s *Service) UploadManifest(_ context.Context, req types.Manifest) types.Result {
	log.Warn().
		Str("name", req.Name).
		Str("repo", req.Repo).
		Str("ref", req.Ref).
		Msg("upload manifest not implemented")
	return types.Result{Success: false}
}

// GetUuids lists the tokens of all tracked upload sessions
func (s *Service) GetUuids(ctx context.Context, _ types.Empty) (types.UuidList, error) {
	tokens, err := s.sessions.List(ctx)
	if err != nil {
		return types.UuidList{}, err
	}

	resp := types.UuidList{Uuids: make([]types.GenUuidResult, 0, len(tokens))}
	for _, token := range tokens {
		resp.Uuids = append(resp.Uuids, types.GenUuidResult{Uuid: token})
	}
	return resp, nil
}

// GetSessions lists all tracked upload sessions
func (s *Service) GetSessions(ctx context.Context, _ types.Empty) (types.SessionList, error) {
	sessions, err := s.sessions.Sessions(ctx)
	if err != nil {
		return types.SessionList{}, err
	}
	return types.SessionList{Sessions: sessions}, nil
}

// logLayerFailure keeps misses quiet and surfaces real storage trouble
func logLayerFailure(err error) *zerolog.Event {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidPath):
		return log.Debug()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return log.Info()
	default:
		return log.Warn()
	}
}

func lookupResult(err error) string {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return "missing"
	}
	return "error"
}
