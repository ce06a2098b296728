// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamPoi/self-craft-back/internal/identity"
	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/progression"
)

// memoryRepository is an in-memory stand-in for the postgres store. It
// enforces the same uniqueness rules so service-level race handling can be
// exercised without a database.
type memoryRepository struct {
	users map[string]*identity.User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]*identity.User)}
}

func (repo *memoryRepository) Create(_ context.Context, user *identity.User) error {
	if user.Provider != nil && user.ExternalID != nil {
		for _, existing := range repo.users {
			if existing.Provider != nil && *existing.Provider == *user.Provider &&
				existing.ExternalID != nil && *existing.ExternalID == *user.ExternalID {
				return apperr.Conflict("This external account is already linked")
			}
		}
	}
	clone := *user
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	repo.users[user.UID] = &clone
	return nil
}

func (repo *memoryRepository) FindByUID(_ context.Context, uid string) (*identity.User, error) {
	user, ok := repo.users[uid]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *memoryRepository) FindByExternalID(_ context.Context, provider identity.Provider, externalID string) (*identity.User, error) {
	for _, user := range repo.users {
		if user.Provider != nil && *user.Provider == provider &&
			user.ExternalID != nil && *user.ExternalID == externalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryRepository) UpdateProfile(ctx context.Context, uid string, update identity.ProfileUpdate) (*identity.User, error) {
	user, ok := repo.users[uid]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.AvatarURL != nil {
		user.AvatarURL = update.AvatarURL
	}
	return repo.FindByUID(ctx, uid)
}

func (repo *memoryRepository) RefreshExternalProfile(_ context.Context, uid, name, email string, avatarURL *string) error {
	user, ok := repo.users[uid]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Name = name
	user.Email = &email
	if avatarURL != nil {
		user.AvatarURL = avatarURL
	}
	return nil
}

func (repo *memoryRepository) MigrateGuest(ctx context.Context, input identity.MigrateInput) (*identity.User, error) {
	user, ok := repo.users[input.GuestUID]
	if !ok || !user.IsGuest {
		return nil, apperr.NotFound("Guest account")
	}
	if _, err := repo.FindByExternalID(ctx, input.Provider, input.ExternalID); err == nil {
		return nil, apperr.Conflict("This external account is already linked")
	}
	user.Provider = &input.Provider
	user.ExternalID = &input.ExternalID
	user.Name = input.Name
	user.Email = &input.Email
	user.AvatarURL = input.AvatarURL
	user.IsGuest = false
	return repo.FindByUID(ctx, input.GuestUID)
}

func (repo *memoryRepository) ApplyExp(_ context.Context, uid string, delta int) (progression.Result, error) {
	user, ok := repo.users[uid]
	if !ok {
		return progression.Result{}, apperr.NotFound("User")
	}
	result, err := progression.Apply(user.Level, user.Exp, delta)
	if err != nil {
		return progression.Result{}, err
	}
	user.Level = result.Level
	user.Exp = result.Exp
	return result, nil
}

func (repo *memoryRepository) Stats(_ context.Context, uid string) (*identity.UserStats, error) {
	if _, ok := repo.users[uid]; !ok {
		return nil, apperr.NotFound("User")
	}
	return &identity.UserStats{}, nil
}

// staticTokens issues deterministic tokens for assertions.
type staticTokens struct{}

func (staticTokens) IssueAccessToken(userID string, _ bool, _ string, _ time.Duration) (string, error) {
	return "token-" + userID, nil
}

func newTestService(repo identity.Repository) *identity.Service {
	return identity.NewService(repo, staticTokens{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestService_CreateGuest verifies that a new guest starts at level 1 with
zero experience and receives a usable token.
*/
func TestService_CreateGuest(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)

	session, err := service.CreateGuest(context.Background())
	require.NoError(t, err)

	assert.True(t, session.User.IsGuest)
	assert.Equal(t, 1, session.User.Level)
	assert.Equal(t, 0, session.User.Exp)
	assert.Equal(t, "Guest", session.User.Name)
	assert.Equal(t, "token-"+session.User.UID, session.Token)

	stored, err := repo.FindByUID(context.Background(), session.User.UID)
	require.NoError(t, err)
	assert.True(t, stored.IsGuest)
}

/*
TestService_LinkOrUpdateExternal checks that a first login creates the row
and a returning login reuses it with a refreshed profile.
*/
func TestService_LinkOrUpdateExternal(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	first, err := service.LinkOrUpdateExternal(ctx, identity.ExternalLoginInput{
		Provider:   identity.ProviderGoogle,
		ExternalID: "google-123",
		Email:      "poi@example.com",
		Name:       "Poi",
	})
	require.NoError(t, err)
	assert.False(t, first.User.IsGuest)
	assert.Equal(t, 1, first.User.Level)

	second, err := service.LinkOrUpdateExternal(ctx, identity.ExternalLoginInput{
		Provider:   identity.ProviderGoogle,
		ExternalID: "google-123",
		Email:      "poi@example.com",
		Name:       "Poi Renamed",
	})
	require.NoError(t, err)

	assert.Equal(t, first.User.UID, second.User.UID, "returning login must reuse the row")
	assert.Equal(t, "Poi Renamed", second.User.Name)
	assert.Len(t, repo.users, 1)
}

/*
TestService_LinkOrUpdateExternal_Validation rejects malformed profiles
before any store access.
*/
func TestService_LinkOrUpdateExternal_Validation(t *testing.T) {
	service := newTestService(newMemoryRepository())

	tests := []struct {
		name  string
		input identity.ExternalLoginInput
	}{
		{"missing_external_id", identity.ExternalLoginInput{
			Provider: identity.ProviderGoogle, Email: "a@b.com", Name: "A",
		}},
		{"bad_email", identity.ExternalLoginInput{
			Provider: identity.ProviderGoogle, ExternalID: "x", Email: "nope", Name: "A",
		}},
		{"unknown_provider", identity.ExternalLoginInput{
			Provider: identity.Provider("FACEBOOK"), ExternalID: "x", Email: "a@b.com", Name: "A",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.LinkOrUpdateExternal(context.Background(), tt.input)
			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
		})
	}
}

/*
TestService_MigrateGuest covers the happy path plus the two failure
contracts: a second migration observes NotFound, and a taken external
identity observes Conflict. Progression state must survive verbatim.
*/
func TestService_MigrateGuest(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	guest, err := service.CreateGuest(ctx)
	require.NoError(t, err)

	// Guest earns some progression before signing up.
	_, err = repo.ApplyExp(ctx, guest.User.UID, 250)
	require.NoError(t, err)

	input := identity.MigrateInput{
		GuestUID:   guest.User.UID,
		Provider:   identity.ProviderGoogle,
		ExternalID: "google-777",
		Email:      "poi@example.com",
		Name:       "Poi",
	}

	migrated, err := service.MigrateGuest(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, guest.User.UID, migrated.User.UID, "uid must be preserved")
	assert.False(t, migrated.User.IsGuest)
	assert.Equal(t, 3, migrated.User.Level, "progression must be preserved")
	assert.Equal(t, 250, migrated.User.Exp)

	// Exactly-once: the guest flag has flipped, so a repeat is NotFound.
	_, err = service.MigrateGuest(ctx, input)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// A different guest cannot claim the same external identity.
	other, err := service.CreateGuest(ctx)
	require.NoError(t, err)
	input.GuestUID = other.User.UID
	_, err = service.MigrateGuest(ctx, input)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

/*
TestService_AddExperience verifies delta validation and the level
recompute on a grant that crosses a threshold.
*/
func TestService_AddExperience(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	guest, err := service.CreateGuest(ctx)
	require.NoError(t, err)

	for _, bad := range []int{0, -10} {
		_, err := service.AddExperience(ctx, guest.User.UID, bad, "")
		require.Error(t, err)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	}

	grant, err := service.AddExperience(ctx, guest.User.UID, 130, "Daily goal")
	require.NoError(t, err)
	assert.Equal(t, 130, grant.ExpGained)
	assert.Equal(t, 130, grant.Exp)
	assert.Equal(t, 2, grant.Level)
	assert.True(t, grant.LeveledUp)
	assert.Equal(t, "Daily goal", grant.Reason)

	grant, err = service.AddExperience(ctx, guest.User.UID, 30, "")
	require.NoError(t, err)
	assert.Equal(t, 160, grant.Exp)
	assert.Equal(t, 2, grant.Level)
	assert.False(t, grant.LeveledUp)
	assert.Equal(t, "Activity completed", grant.Reason)
}

/*
TestService_UpdateProfile rejects empty updates and applies partial ones.
*/
func TestService_UpdateProfile(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	guest, err := service.CreateGuest(ctx)
	require.NoError(t, err)

	_, err = service.UpdateProfile(ctx, guest.User.UID, identity.ProfileUpdate{})
	require.Error(t, err)

	name := "Renamed"
	user, err := service.UpdateProfile(ctx, guest.User.UID, identity.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Nil(t, user.AvatarURL)
}
