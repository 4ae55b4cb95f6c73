package session

import (
	"context"
	"fmt"
	"time"

	"github.com/lgulliver/lodestone-backend/pkg/types"
	"gorm.io/gorm"
)

// UploadSession is the persisted form of a tracked upload
type UploadSession struct {
	Name      string    `gorm:"primaryKey;size:255"`
	Repo      string    `gorm:"primaryKey;size:255"`
	Digest    string    `gorm:"primaryKey;size:255"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName pins the table name shared with the SQL migrations
func (UploadSession) TableName() string {
	return "upload_sessions"
}

// DatabaseStore keeps sessions in a SQL table
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates the store and ensures its table exists
func NewDatabaseStore(db *gorm.DB) (*DatabaseStore, error) {
	if err := db.AutoMigrate(&UploadSession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate upload sessions: %w", err)
	}
	return &DatabaseStore{db: db}, nil
}

func (s *DatabaseStore) where(ctx context.Context, layer types.Layer) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("name = ? AND repo = ? AND digest = ?", layer.Name, layer.Repo, layer.Digest)
}

func (s *DatabaseStore) Add(ctx context.Context, layer types.Layer) error {
	row := UploadSession{Name: layer.Name, Repo: layer.Repo, Digest: layer.Digest}
	return s.where(ctx, layer).FirstOrCreate(&row).Error
}

func (s *DatabaseStore) Contains(ctx context.Context, layer types.Layer) (bool, error) {
	var count int64
	if err := s.where(ctx, layer).Model(&UploadSession{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DatabaseStore) Remove(ctx context.Context, layer types.Layer) (bool, error) {
	result := s.where(ctx, layer).Delete(&UploadSession{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DatabaseStore) Layers(ctx context.Context) ([]types.Layer, error) {
	var rows []UploadSession
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}

	layers := make([]types.Layer, 0, len(rows))
	for _, row := range rows {
		layers = append(layers, types.Layer{Name: row.Name, Repo: row.Repo, Digest: row.Digest})
	}
	return layers, nil
}
