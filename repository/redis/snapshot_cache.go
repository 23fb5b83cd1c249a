package redis

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/repository"
)

type snapshotCache struct {
	client     *redislib.Client
	ttl        time.Duration
	currentTTL time.Duration
}

// NewSnapshotCache creates a Redis-backed cache for immutable snapshots.
// Per-id entries are safe to hold for the full ttl since a snapshot never
// changes; the per-organization current pointer gets the much shorter
// currentTTL and is invalidated on publish.
func NewSnapshotCache(client *redislib.Client, ttl, currentTTL time.Duration) repository.SnapshotCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if currentTTL <= 0 {
		currentTTL = time.Minute
	}
	return &snapshotCache{
		client:     client,
		ttl:        ttl,
		currentTTL: currentTTL,
	}
}

func (c *snapshotCache) GetByID(ctx context.Context, id string) (*domain.MenuSnapshot, error) {
	return c.get(ctx, c.idKey(id))
}

func (c *snapshotCache) Set(ctx context.Context, snapshot *domain.MenuSnapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.idKey(snapshot.ID), payload, c.ttl).Err()
}

func (c *snapshotCache) GetCurrent(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error) {
	return c.get(ctx, c.currentKey(organizationID))
}

func (c *snapshotCache) SetCurrent(ctx context.Context, snapshot *domain.MenuSnapshot) error {
	if snapshot == nil || snapshot.OrganizationID == "" {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.currentKey(snapshot.OrganizationID), payload, c.currentTTL).Err()
}

func (c *snapshotCache) InvalidateCurrent(ctx context.Context, organizationID string) error {
	return c.client.Del(ctx, c.currentKey(organizationID)).Err()
}

func (c *snapshotCache) get(ctx context.Context, key string) (*domain.MenuSnapshot, error) {
	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snapshot domain.MenuSnapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *snapshotCache) idKey(id string) string {
	return "menu_snapshot:id:" + id
}

func (c *snapshotCache) currentKey(organizationID string) string {
	return "menu_snapshot:current:" + organizationID
}
