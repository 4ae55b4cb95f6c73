package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/lgulliver/lodestone-backend/pkg/config"
	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageFactory_CreateLocalStorage(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type: "local",
		Root: t.TempDir(),
	}

	factory := NewStorageFactory(storageConfig)
	storage, err := factory.CreateStorage()
	require.NoError(t, err)
	require.NotNil(t, storage)

	ctx := context.Background()
	content := "content from factory test"
	err = storage.Store(ctx, "layers/alpine/library/sha256:f00", strings.NewReader(content))
	require.NoError(t, err)

	size, err := storage.LayerSize(ctx, types.Layer{Name: "alpine", Repo: "library", Digest: "sha256:f00"})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
}

func TestStorageFactory_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config config.StorageConfig
		errMsg string
	}{
		{
			name:   "unsupported type",
			config: config.StorageConfig{Type: "s3", Root: t.TempDir()},
			errMsg: "unsupported storage type: s3",
		},
		{
			name:   "missing root",
			config: config.StorageConfig{Type: "local"},
			errMsg: "storage root must be configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewStorageFactory(&tt.config).CreateStorage()
			assert.Nil(t, storage)
			assert.EqualError(t, err, tt.errMsg)
		})
	}
}
