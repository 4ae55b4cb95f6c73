package storage

import (
	"fmt"

	"github.com/lgulliver/lodestone-backend/pkg/config"
)

// StorageFactory creates storage instances based on configuration
type StorageFactory struct {
	config *config.StorageConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(config *config.StorageConfig) *StorageFactory {
	return &StorageFactory{config: config}
}

// CreateStorage creates a storage instance based on the configured type
func (sf *StorageFactory) CreateStorage() (BlobStorage, error) {
	switch sf.config.Type {
	case "local", "":
		if sf.config.Root == "" {
			return nil, fmt.Errorf("storage root must be configured")
		}
		ls, err := NewLocalStorage(sf.config.Root)
		if err != nil {
			return nil, err
		}
		return ls, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", sf.config.Type)
	}
}
