// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

/*
Package identity implements the Identity Store and guest-to-external
migration for the SelfCraft progression engine.

It owns the user row: uid, provider linkage, guest flag, and the level/exp
pair. Progression state is only ever mutated through the progression
calculator (see [Repository.ApplyExp]); migration only ever rewrites the
linkage fields. The two concerns never cross.
*/
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/constants"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
	"github.com/IamPoi/self-craft-back/internal/progression"
	"github.com/IamPoi/self-craft-back/pkg/pointer"
	"github.com/IamPoi/self-craft-back/pkg/uuidv7"
)

// TokenIssuer is the contract for minting access tokens.
//
// Credential issuance itself is outside the engine; the service only asks
// for a signed token naming the uid it just created or migrated.
type TokenIssuer interface {
	IssueAccessToken(userID string, isGuest bool, provider string, timeToLive time.Duration) (string, error)
}

// Service implements the identity use cases.
type Service struct {
	repository Repository
	tokens     TokenIssuer
	logger     *slog.Logger
}

// NewService constructs the identity [Service].
func NewService(repository Repository, tokens TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		tokens:     tokens,
		logger:     logger,
	}
}

// AuthSession pairs a user with a freshly issued access token.
type AuthSession struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// # Guest Accounts

const guestDefaultName = "Guest"

/*
CreateGuest creates an anonymous identity usable before sign-up.

The guest starts at level 1 with zero experience and receives a token so the
client can run sessions immediately. Guests are excluded from ranking until
migrated.
*/
func (service *Service) CreateGuest(ctx context.Context) (*AuthSession, error) {
	user := &User{
		UID:     uuidv7.New(),
		Name:    guestDefaultName,
		IsGuest: true,
		Level:   1,
		Exp:     0,
	}

	if err := service.repository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("identity_create_guest_failed: %w", err)
	}

	token, err := service.tokens.IssueAccessToken(user.UID, true, "", constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_guest_token_failed: %w", err)
	}

	return &AuthSession{User: user, Token: token}, nil
}

// # External Login

// ExternalLoginInput carries a verified external-provider profile.
//
// Verification of the provider assertion happens upstream; by the time this
// input exists the external_id is trusted.
type ExternalLoginInput struct {
	Provider   Provider
	ExternalID string
	Email      string
	Name       string
	AvatarURL  *string
}

func (input ExternalLoginInput) validate() error {
	v := &validate.Validator{}
	return v.
		Custom("provider", !input.Provider.Valid(), "Unknown identity provider").
		Required("external_id", input.ExternalID).
		Required("name", input.Name).
		MaxLen("name", input.Name, 100).
		Email("email", input.Email).
		Err()
}

/*
LinkOrUpdateExternal signs a user in via an external identity.

A returning user (matching provider + external_id) gets their descriptive
profile refreshed; a first-time user gets a fresh non-guest row. If two
first-time logins race, the unique constraint lets exactly one insert win and
the loser is resolved as a returning login.
*/
func (service *Service) LinkOrUpdateExternal(ctx context.Context, input ExternalLoginInput) (*AuthSession, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	user, err := service.repository.FindByExternalID(ctx, input.Provider, input.ExternalID)
	switch {
	case err == nil:
		if err := service.repository.RefreshExternalProfile(ctx, user.UID, input.Name, input.Email, input.AvatarURL); err != nil {
			return nil, fmt.Errorf("identity_refresh_profile_failed: %w", err)
		}
		user.Name = input.Name
		user.Email = pointer.To(input.Email)
		if input.AvatarURL != nil {
			user.AvatarURL = input.AvatarURL
		}

	case apperr.IsNotFound(err):
		user = &User{
			UID:        uuidv7.New(),
			Provider:   pointer.To(input.Provider),
			ExternalID: pointer.To(input.ExternalID),
			Name:       input.Name,
			Email:      pointer.To(input.Email),
			AvatarURL:  input.AvatarURL,
			IsGuest:    false,
			Level:      1,
			Exp:        0,
		}
		if createErr := service.repository.Create(ctx, user); createErr != nil {
			if !apperr.IsConflict(createErr) {
				return nil, fmt.Errorf("identity_create_external_failed: %w", createErr)
			}
			// Lost the insert race: resolve as a returning login.
			user, err = service.repository.FindByExternalID(ctx, input.Provider, input.ExternalID)
			if err != nil {
				return nil, fmt.Errorf("identity_external_race_resolve_failed: %w", err)
			}
		}

	default:
		return nil, err
	}

	token, err := service.tokens.IssueAccessToken(user.UID, false, string(input.Provider), constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_external_token_failed: %w", err)
	}

	return &AuthSession{User: user, Token: token}, nil
}

// # Guest Migration

func (input MigrateInput) validate() error {
	v := &validate.Validator{}
	return v.
		Required("guest_uid", input.GuestUID).
		UUID("guest_uid", input.GuestUID).
		Custom("provider", !input.Provider.Valid(), "Unknown identity provider").
		Required("external_id", input.ExternalID).
		Required("name", input.Name).
		MaxLen("name", input.Name, 100).
		Email("email", input.Email).
		Err()
}

/*
MigrateGuest converts a guest identity into an externally-linked one.

The uid and all progression state (level, exp, sessions, badges) are
preserved verbatim; only the linkage fields change. Exactly-once: a second
migration of the same guest fails with NotFound because the guest flag has
already flipped, and concurrent migrations to the same external identity
resolve to a single winner (the rest observe Conflict).
*/
func (service *Service) MigrateGuest(ctx context.Context, input MigrateInput) (*AuthSession, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	user, err := service.repository.MigrateGuest(ctx, input)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "guest_migrated",
		slog.String("uid", user.UID),
		slog.String("provider", string(input.Provider)),
	)

	token, err := service.tokens.IssueAccessToken(user.UID, false, string(input.Provider), constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_migrate_token_failed: %w", err)
	}

	return &AuthSession{User: user, Token: token}, nil
}

// # Profile & Progression

// GetUser resolves the calling user's full record.
func (service *Service) GetUser(ctx context.Context, uid string) (*User, error) {
	return service.repository.FindByUID(ctx, uid)
}

// UpdateProfile applies descriptive profile changes for the calling user.
func (service *Service) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*User, error) {
	if update.Name == nil && update.AvatarURL == nil {
		return nil, apperr.ValidationError("Nothing to update")
	}

	v := &validate.Validator{}
	if update.Name != nil {
		v.Required("name", *update.Name).MaxLen("name", *update.Name, 100)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	return service.repository.UpdateProfile(ctx, uid, update)
}

// ExpGrant is the outcome of a manual experience grant.
type ExpGrant struct {
	ExpGained int    `json:"exp_gained"`
	Reason    string `json:"reason"`
	progression.Result
}

const defaultGrantReason = "Activity completed"

/*
AddExperience applies a manual, positive experience delta for uid.

Zero or negative deltas are rejected before any store write. The grant and
the level recompute commit atomically.
*/
func (service *Service) AddExperience(ctx context.Context, uid string, delta int, reason string) (*ExpGrant, error) {
	if delta <= 0 {
		return nil, validate.RequiredError("delta", "Experience delta must be at least 1")
	}

	result, err := service.repository.ApplyExp(ctx, uid, delta)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = defaultGrantReason
	}

	return &ExpGrant{
		ExpGained: delta,
		Reason:    reason,
		Result:    result,
	}, nil
}

// Stats aggregates the per-user dashboard numbers.
func (service *Service) Stats(ctx context.Context, uid string) (*UserStats, error) {
	return service.repository.Stats(ctx, uid)
}
