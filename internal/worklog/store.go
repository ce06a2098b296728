// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package worklog

import (
	"context"
	"time"

	"github.com/IamPoi/self-craft-back/internal/progression"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

// ListFilter narrows a closed-session listing.
// Nil fields are not applied.
type ListFilter struct {
	Category *Category
	From     *time.Time
	To       *time.Time
}

// CloseInput carries the fields fixed when a session transitions to closed.
type CloseInput struct {
	UID       string
	WorkID    string
	EndedAt   time.Time
	Duration  int
	GainedExp int
}

// SessionUpdate carries the editable descriptive fields of a session.
// Nil fields are left untouched; timing and reward fields are not editable.
type SessionUpdate struct {
	Title    *string
	Category *Category
}

// Repository is the storage contract for the session ledger.
//
// Start and Close run their own transaction: both must observe a consistent
// view of the user's open session and, for Close, commit the session close
// and the experience grant together.
type Repository interface {
	// Start opens a new session. Fails with a Conflict if the user already
	// has an open session, with NotFound if the user row is missing.
	Start(ctx context.Context, session *WorkSession) error

	// Close transitions an open session to closed and applies its
	// experience through the progression calculator, atomically. A session
	// that is already closed, owned by someone else, or unknown fails with
	// NotFound; the three cases are indistinguishable to the caller.
	Close(ctx context.Context, input CloseInput) (*WorkSession, progression.Result, error)

	// FindActive returns the user's open session, NotFound when idle.
	FindActive(ctx context.Context, uid string) (*WorkSession, error)

	// FindByID resolves a session by id, scoped to its owner.
	FindByID(ctx context.Context, uid, workID string) (*WorkSession, error)

	// ListClosed returns closed sessions newest-first with the total count.
	ListClosed(ctx context.Context, uid string, filter ListFilter, page pagination.Params) ([]WorkSession, int, error)

	// UpdateDescriptive edits title/category of an owned session.
	UpdateDescriptive(ctx context.Context, uid, workID string, update SessionUpdate) (*WorkSession, error)

	// Delete removes an owned session row.
	Delete(ctx context.Context, uid, workID string) error

	// CategoryTotals aggregates closed sessions per category, optionally
	// bounded by a start date range.
	CategoryTotals(ctx context.Context, uid string, from, to *time.Time) ([]CategoryTotals, error)
}
