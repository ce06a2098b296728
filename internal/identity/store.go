// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package identity

import (
	"context"

	"github.com/IamPoi/self-craft-back/internal/progression"
)

// MigrateInput carries the fields for a guest-to-external migration.
type MigrateInput struct {
	GuestUID   string
	Provider   Provider
	ExternalID string
	Name       string
	Email      string
	AvatarURL  *string
}

// ProfileUpdate carries the optional profile fields of an update request.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

// Repository is the storage contract for identity records.
//
// Methods that must be atomic (MigrateGuest, ApplyExp) run their own
// transaction internally; a failure rolls the whole operation back.
type Repository interface {
	// Create persists a new user row (guest or external).
	Create(ctx context.Context, user *User) error

	// FindByUID resolves a user by primary key.
	FindByUID(ctx context.Context, uid string) (*User, error)

	// FindByExternalID resolves a user by (provider, external_id).
	FindByExternalID(ctx context.Context, provider Provider, externalID string) (*User, error)

	// UpdateProfile applies non-nil descriptive fields and returns the fresh row.
	// It never touches provider linkage or progression state.
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*User, error)

	// RefreshExternalProfile syncs name/email/avatar on a returning external login.
	RefreshExternalProfile(ctx context.Context, uid, name, email string, avatarURL *string) error

	// MigrateGuest atomically converts a guest row into an externally-linked
	// identity. Under concurrent attempts for the same external identity at
	// most one succeeds; the rest observe a Conflict.
	MigrateGuest(ctx context.Context, input MigrateInput) (*User, error)

	// ApplyExp atomically adds a positive experience delta through the
	// progression calculator, locking the user row for the duration.
	ApplyExp(ctx context.Context, uid string, delta int) (progression.Result, error)

	// Stats aggregates the per-user dashboard numbers.
	Stats(ctx context.Context, uid string) (*UserStats, error)
}
