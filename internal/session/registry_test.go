package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lgulliver/lodestone-backend/internal/storage"
	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (r *recordingRemover) RemoveScratch(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, token)
	return r.err
}

type failingStore struct{}

var errBackend = errors.New("connection reset")

func (failingStore) Add(context.Context, types.Layer) error { return errBackend }
func (failingStore) Contains(context.Context, types.Layer) (bool, error) {
	return false, errBackend
}
func (failingStore) Remove(context.Context, types.Layer) (bool, error) {
	return false, errBackend
}
func (failingStore) Layers(context.Context) ([]types.Layer, error) { return nil, errBackend }

func setupTestRegistry(t *testing.T) (*Registry, *storage.LocalStorage) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewRegistry(NewMemoryStore(), local), local
}

func TestRegistry_CreateThenExists(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := context.Background()

	token, err := registry.Create(ctx, "alpine", "library")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	ok, err := registry.Exists(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.Exists(ctx, "alpine", "other", token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_TokensAreFresh(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := registry.Create(ctx, "alpine", "library")
		require.NoError(t, err)
		assert.False(t, seen[token], "token %s issued twice", token)
		seen[token] = true
	}
}

func TestRegistry_UntouchedIsAbsent(t *testing.T) {
	registry, _ := setupTestRegistry(t)

	ok, err := registry.Exists(context.Background(), "alpine", "library", "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_CancelScenario(t *testing.T) {
	registry, local := setupTestRegistry(t)
	ctx := context.Background()

	token, err := registry.Create(ctx, "alpine", "library")
	require.NoError(t, err)
	require.NoError(t, local.Store(ctx, filepath.Join("scratch", token), strings.NewReader("partial")))
	scratchPath, err := local.Layout().ScratchPath(token)
	require.NoError(t, err)

	ok, err := registry.Exists(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.True(t, ok)

	cancelled, err := registry.Cancel(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.True(t, cancelled)

	ok, err = registry.Exists(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(scratchPath)
	assert.True(t, os.IsNotExist(err), "scratch file should be gone")
}

func TestRegistry_CancelMissing(t *testing.T) {
	registry, _ := setupTestRegistry(t)

	cancelled, err := registry.Cancel(context.Background(), "alpine", "library", "unknown")
	assert.NoError(t, err)
	assert.False(t, cancelled)
}

func TestRegistry_CancelIgnoresScratchFailure(t *testing.T) {
	remover := &recordingRemover{err: storage.ErrPermissionDenied}
	registry := NewRegistry(NewMemoryStore(), remover)
	ctx := context.Background()

	token, err := registry.Create(ctx, "alpine", "library")
	require.NoError(t, err)

	cancelled, err := registry.Cancel(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, []string{token}, remover.removed)
}

func TestRegistry_CancelRemovesScratchEvenWhenUntracked(t *testing.T) {
	remover := &recordingRemover{}
	registry := NewRegistry(NewMemoryStore(), remover)

	cancelled, err := registry.Cancel(context.Background(), "alpine", "library", "orphan")
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, []string{"orphan"}, remover.removed)
}

func TestRegistry_DeleteLeavesScratchFile(t *testing.T) {
	registry, local := setupTestRegistry(t)
	ctx := context.Background()

	token, err := registry.Create(ctx, "alpine", "library")
	require.NoError(t, err)
	require.NoError(t, local.Store(ctx, filepath.Join("scratch", token), strings.NewReader("partial")))

	deleted, err := registry.Delete(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = registry.Delete(ctx, "alpine", "library", token)
	require.NoError(t, err)
	assert.False(t, deleted)

	scratchPath, err := local.Layout().ScratchPath(token)
	require.NoError(t, err)
	_, err = os.Stat(scratchPath)
	assert.NoError(t, err, "delete must not touch the scratch file")
}

func TestRegistry_List(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := context.Background()

	tokens, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	var created []string
	for _, repo := range []string{"library", "library", "mirror"} {
		token, err := registry.Create(ctx, "alpine", repo)
		require.NoError(t, err)
		created = append(created, token)
	}

	_, err = registry.Delete(ctx, "alpine", "library", created[0])
	require.NoError(t, err)

	tokens, err = registry.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, created[1:], tokens)
	assert.IsIncreasing(t, tokens)
}

func TestRegistry_ListDeduplicatesTokens(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, types.Layer{Name: "alpine", Repo: "library", Digest: "same"}))
	require.NoError(t, store.Add(ctx, types.Layer{Name: "busybox", Repo: "library", Digest: "same"}))

	tokens, err := NewRegistry(store, nil).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"same"}, tokens)
}

func TestRegistry_Sessions(t *testing.T) {
	store := NewMemoryStore()
	registry := NewRegistry(store, nil)
	registry.newToken = func() string { return "fixed" }
	ctx := context.Background()

	_, err := registry.Create(ctx, "busybox", "library")
	require.NoError(t, err)
	_, err = registry.Create(ctx, "alpine", "library")
	require.NoError(t, err)

	sessions, err := registry.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Layer{
		{Name: "alpine", Repo: "library", Digest: "fixed"},
		{Name: "busybox", Repo: "library", Digest: "fixed"},
	}, sessions)
}

func TestRegistry_ConcurrentCreates(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := context.Background()

	const workers = 64
	tokens := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := registry.Create(ctx, "alpine", "library")
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	unique := make(map[string]struct{}, workers)
	for _, token := range tokens {
		unique[token] = struct{}{}
		ok, err := registry.Exists(ctx, "alpine", "library", token)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, unique, workers)

	listed, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, workers)
}

func TestRegistry_BackendFailure(t *testing.T) {
	registry := NewRegistry(failingStore{}, &recordingRemover{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"create", func() error { _, err := registry.Create(ctx, "a", "b"); return err }},
		{"exists", func() error { _, err := registry.Exists(ctx, "a", "b", "c"); return err }},
		{"cancel", func() error { _, err := registry.Cancel(ctx, "a", "b", "c"); return err }},
		{"delete", func() error { _, err := registry.Delete(ctx, "a", "b", "c"); return err }},
		{"list", func() error { _, err := registry.List(ctx); return err }},
		{"sessions", func() error { _, err := registry.Sessions(ctx); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, ErrRegistryUnavailable)
			assert.Contains(t, err.Error(), errBackend.Error())
		})
	}
}

func ExampleRegistry() {
	registry := NewRegistry(NewMemoryStore(), nil)
	registry.newToken = func() string { return "3f1c" }
	ctx := context.Background()

	token, _ := registry.Create(ctx, "alpine", "library")
	exists, _ := registry.Exists(ctx, "alpine", "library", token)
	cancelled, _ := registry.Cancel(ctx, "alpine", "library", token)
	after, _ := registry.Exists(ctx, "alpine", "library", token)

	fmt.Println(token, exists, cancelled, after)
	// Output: 3f1c true true false
}
