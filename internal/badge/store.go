// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge

import (
	"context"
	"time"

	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

// GrantInput carries the fields of a badge grant, automatic or manual.
type GrantInput struct {
	UID         string
	Type        Type
	Name        string
	Description *string
	Score       *string
	AcquiredAt  time.Time
	GainedExp   int
}

// DescriptiveUpdate carries the editable fields of a badge.
// Nil fields are left untouched; identity and reward fields are immutable.
type DescriptiveUpdate struct {
	Description *string
	Score       *string
}

// Repository is the storage contract for badges.
//
// GrantIfAbsent runs its own transaction: the existence re-check, the
// insert, and the reward grant commit or roll back together.
type Repository interface {
	// LoadSnapshot aggregates the state the rule predicates evaluate.
	LoadSnapshot(ctx context.Context, uid string) (Snapshot, error)

	// GrantIfAbsent inserts the badge unless one already exists for
	// (uid, type, name), applying the reward through the progression
	// calculator in the same transaction. It reports whether a new badge
	// was created; an existing badge is returned unchanged with false.
	// Idempotent under retry and under concurrent duplicate triggers.
	GrantIfAbsent(ctx context.Context, input GrantInput) (*Badge, bool, error)

	// List returns the user's badges newest-first with the total count.
	List(ctx context.Context, uid string, typeFilter *Type, page pagination.Params) ([]Badge, int, error)

	// FindByID resolves a badge by id, scoped to its owner.
	FindByID(ctx context.Context, uid, badgeID string) (*Badge, error)

	// UpdateDescriptive edits description/score of an owned badge.
	UpdateDescriptive(ctx context.Context, uid, badgeID string, update DescriptiveUpdate) (*Badge, error)

	// Delete removes an owned badge row.
	Delete(ctx context.Context, uid, badgeID string) error

	// Summary aggregates the user's badge collection.
	Summary(ctx context.Context, uid string) (*Summary, error)
}
