package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps sessions in a Redis set so several backend replicas
// observe the same registry. Set commands are atomic on the server.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a store using the set <prefix>:uploads
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    prefix + ":uploads",
	}
}

func (s *RedisStore) member(layer types.Layer) (string, error) {
	data, err := json.Marshal(layer)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return string(data), nil
}

func (s *RedisStore) Add(ctx context.Context, layer types.Layer) error {
	member, err := s.member(layer)
	if err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.key, member).Err()
}

func (s *RedisStore) Contains(ctx context.Context, layer types.Layer) (bool, error) {
	member, err := s.member(layer)
	if err != nil {
		return false, err
	}
	return s.client.SIsMember(ctx, s.key, member).Result()
}

func (s *RedisStore) Remove(ctx context.Context, layer types.Layer) (bool, error) {
	member, err := s.member(layer)
	if err != nil {
		return false, err
	}
	removed, err := s.client.SRem(ctx, s.key, member).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisStore) Layers(ctx context.Context) ([]types.Layer, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	layers := make([]types.Layer, 0, len(members))
	for _, member := range members {
		var layer types.Layer
		if err := json.Unmarshal([]byte(member), &layer); err != nil {
			log.Warn().Err(err).Str("key", s.key).Str("member", member).Msg("skipping malformed session entry")
			continue
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
