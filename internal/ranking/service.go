// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package ranking implements the public leaderboard over non-guest users.
//
// Read-only and eventually consistent: reads may be served from a
// short-lived cached snapshot, and concurrent writers to the underlying
// tables are tolerated without any transactional guarantee.
package ranking

import (
	"context"
	"log/slog"

	"github.com/IamPoi/self-craft-back/internal/platform/validate"
)

const (
	// DefaultLimit is the leaderboard size when the caller names none.
	DefaultLimit = 50

	// MaxLimit caps the leaderboard size a caller may request.
	MaxLimit = 100
)

// allowedCategories mirrors the session category set. Listed here rather
// than imported so the ranking view stays decoupled from the ledger.
var allowedCategories = []string{"STUDY", "EXERCISE", "LANGUAGE", "CERTIFICATE"}

// Service implements the ranking use case.
type Service struct {
	repository Repository
	cache      Cache
	logger     *slog.Logger
}

// NewService constructs the ranking [Service]. The cache may be nil; reads
// then always hit the database.
func NewService(repository Repository, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

/*
TopUsers returns the leaderboard for the query.

Cache reads and writes are best-effort: a cache failure is logged and the
read falls through to the database, never failing the request.
*/
func (service *Service) TopUsers(ctx context.Context, query Query) ([]Entry, error) {
	if query.Limit <= 0 {
		query.Limit = DefaultLimit
	}
	if query.Limit > MaxLimit {
		query.Limit = MaxLimit
	}

	if query.Category != "" {
		v := &validate.Validator{}
		if err := v.OneOf("category", query.Category, allowedCategories...).Err(); err != nil {
			return nil, err
		}
	}

	if service.cache != nil {
		entries, hit, err := service.cache.Get(ctx, query)
		if err != nil {
			service.logger.WarnContext(ctx, "ranking_cache_get_failed", slog.String("error", err.Error()))
		} else if hit {
			return entries, nil
		}
	}

	entries, err := service.repository.TopUsers(ctx, query)
	if err != nil {
		return nil, err
	}

	if service.cache != nil {
		if err := service.cache.Set(ctx, query, entries); err != nil {
			service.logger.WarnContext(ctx, "ranking_cache_set_failed", slog.String("error", err.Error()))
		}
	}

	return entries, nil
}
