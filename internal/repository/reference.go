package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const refKeyPrefix = "ref:"

// ReferenceStore provides access to the path-keyed tree of small JSON
// records backed by Redis. It supports no querying; paths are slash-joined
// like "metadata/<uid>".
type ReferenceStore struct {
	client *redis.Client
}

// NewReferenceStore creates a reference store over the given client.
func NewReferenceStore(client *redis.Client) *ReferenceStore {
	return &ReferenceStore{client: client}
}

// Get loads the record at path. A missing record yields (nil, nil).
func (s *ReferenceStore) Get(ctx context.Context, path string) (map[string]any, error) {
	raw, err := s.client.Get(ctx, refKeyPrefix+path).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reference %s: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode reference %s: %w", path, err)
	}
	return data, nil
}

// Update merges the given fields into the record at path, creating it when
// missing. A nil field value removes the key, matching tree-store semantics.
func (s *ReferenceStore) Update(ctx context.Context, path string, fields map[string]any) error {
	current, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if current == nil {
		current = map[string]any{}
	}
	for name, value := range fields {
		if value == nil {
			delete(current, name)
			continue
		}
		current[name] = normalizeValue(value)
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode reference %s: %w", path, err)
	}
	if err := s.client.Set(ctx, refKeyPrefix+path, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to update reference %s: %w", path, err)
	}
	return nil
}

// Delete removes the record at path. Deleting a missing path is not an error.
func (s *ReferenceStore) Delete(ctx context.Context, path string) error {
	if err := s.client.Del(ctx, refKeyPrefix+path).Err(); err != nil {
		return fmt.Errorf("failed to delete reference %s: %w", path, err)
	}
	return nil
}
