// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package ranking

import "context"

// Query narrows a ranking read.
type Query struct {
	// Category restricts total_study_time to one session category.
	// Empty means all categories.
	Category string

	// Limit caps the number of returned entries.
	Limit int
}

// Repository is the storage contract for the ranking view.
type Repository interface {
	// TopUsers returns the leaderboard ordered by (level desc, exp desc,
	// total_study_time desc), ranks assigned by position.
	TopUsers(ctx context.Context, query Query) ([]Entry, error)
}

// Cache is an optional snapshot layer in front of [Repository].
//
// The ranking view tolerates eventual consistency, so a short-lived cached
// snapshot is an acceptable read.
type Cache interface {
	// Get returns the cached snapshot for the query, or a miss.
	Get(ctx context.Context, query Query) ([]Entry, bool, error)

	// Set stores a snapshot for the query.
	Set(ctx context.Context, query Query, entries []Entry) error
}
