// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IamPoi/self-craft-back/internal/platform/constants"
)

// snapshotTTL bounds how stale a cached leaderboard may be.
const snapshotTTL = 30 * time.Second

// RedisSnapshotCache implements [Cache] with short-lived JSON snapshots.
type RedisSnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache creates a new Redis-backed ranking cache.
func NewSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

func snapshotKey(query Query) string {
	category := query.Category
	if category == "" {
		category = "ALL"
	}
	return fmt.Sprintf("%s%s:%d", constants.RedisPrefixRanking, category, query.Limit)
}

/*
Get returns the cached snapshot for the query.

Description: A missing or expired key is a plain miss, not an error; a
corrupt payload is dropped and also reported as a miss so the caller falls
back to the database.
*/
func (cache *RedisSnapshotCache) Get(ctx context.Context, query Query) ([]Entry, bool, error) {
	payload, err := cache.client.Get(ctx, snapshotKey(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis_ranking_get_failed: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		cache.client.Del(ctx, snapshotKey(query))
		return nil, false, nil
	}

	return entries, true, nil
}

// Set stores a snapshot for the query with the standard TTL.
func (cache *RedisSnapshotCache) Set(ctx context.Context, query Query, entries []Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("redis_ranking_marshal_failed: %w", err)
	}

	if err := cache.client.Set(ctx, snapshotKey(query), payload, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis_ranking_set_failed: %w", err)
	}

	return nil
}
