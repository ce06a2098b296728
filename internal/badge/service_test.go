// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamPoi/self-craft-back/internal/badge"
	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
	"github.com/IamPoi/self-craft-back/pkg/uuidv7"
)

// memoryRepository mimics the postgres badge store: idempotent grants keyed
// by (uid, type, name), with a fixed snapshot and an optional per-key
// failure to exercise the best-effort rule loop.
type memoryRepository struct {
	snapshot badge.Snapshot
	badges   map[string]*badge.Badge
	rewarded int
	failKey  string
	nextID   int
}

func newMemoryRepository(snapshot badge.Snapshot) *memoryRepository {
	return &memoryRepository{
		snapshot: snapshot,
		badges:   make(map[string]*badge.Badge),
	}
}

func grantKey(uid string, badgeType badge.Type, name string) string {
	return uid + "/" + string(badgeType) + "/" + name
}

func (repo *memoryRepository) LoadSnapshot(context.Context, string) (badge.Snapshot, error) {
	return repo.snapshot, nil
}

func (repo *memoryRepository) GrantIfAbsent(_ context.Context, input badge.GrantInput) (*badge.Badge, bool, error) {
	key := grantKey(input.UID, input.Type, input.Name)
	if key == repo.failKey {
		return nil, false, errors.New("store unavailable")
	}
	if existing, ok := repo.badges[key]; ok {
		clone := *existing
		return &clone, false, nil
	}

	repo.nextID++
	granted := &badge.Badge{
		BadgeID:     uuidv7.New(),
		UID:         input.UID,
		Type:        input.Type,
		Name:        input.Name,
		Description: input.Description,
		Score:       input.Score,
		AcquiredAt:  input.AcquiredAt,
		GainedExp:   input.GainedExp,
		CreatedAt:   time.Now(),
	}
	repo.badges[key] = granted
	repo.rewarded += input.GainedExp

	clone := *granted
	return &clone, true, nil
}

func (repo *memoryRepository) List(_ context.Context, uid string, typeFilter *badge.Type, _ pagination.Params) ([]badge.Badge, int, error) {
	matched := make([]badge.Badge, 0)
	for _, b := range repo.badges {
		if b.UID != uid {
			continue
		}
		if typeFilter != nil && b.Type != *typeFilter {
			continue
		}
		matched = append(matched, *b)
	}
	return matched, len(matched), nil
}

func (repo *memoryRepository) FindByID(_ context.Context, uid, badgeID string) (*badge.Badge, error) {
	for _, b := range repo.badges {
		if b.UID == uid && b.BadgeID == badgeID {
			clone := *b
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Badge")
}

func (repo *memoryRepository) UpdateDescriptive(ctx context.Context, uid, badgeID string, update badge.DescriptiveUpdate) (*badge.Badge, error) {
	for _, b := range repo.badges {
		if b.UID == uid && b.BadgeID == badgeID {
			if update.Description != nil {
				b.Description = update.Description
			}
			if update.Score != nil {
				b.Score = update.Score
			}
			clone := *b
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Badge")
}

func (repo *memoryRepository) Delete(_ context.Context, uid, badgeID string) error {
	for key, b := range repo.badges {
		if b.UID == uid && b.BadgeID == badgeID {
			delete(repo.badges, key)
			return nil
		}
	}
	return apperr.NotFound("Badge")
}

func (repo *memoryRepository) Summary(_ context.Context, uid string) (*badge.Summary, error) {
	summary := &badge.Summary{}
	for _, b := range repo.badges {
		if b.UID != uid {
			continue
		}
		summary.TotalBadges++
		summary.TotalExp += b.GainedExp
	}
	return summary, nil
}

func newTestService(repo badge.Repository) *badge.Service {
	return badge.NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const testUID = "0194e6a1-0000-7000-8000-000000000002"

/*
TestService_CheckAutoBadges_Idempotent grants each satisfied rule exactly
once across repeated checks.
*/
func TestService_CheckAutoBadges_Idempotent(t *testing.T) {
	repo := newMemoryRepository(badge.Snapshot{
		Level:         12,
		TotalDuration: 40000, // past 10 hours, short of 100
	})
	service := newTestService(repo)
	ctx := context.Background()

	granted, err := service.CheckAutoBadges(ctx, testUID)
	require.NoError(t, err)
	assert.Equal(t, 2, granted, "First 10 Hours and Level 10 Reached")
	assert.Equal(t, 30, repo.rewarded, "level badge carries no reward")

	granted, err = service.CheckAutoBadges(ctx, testUID)
	require.NoError(t, err)
	assert.Equal(t, 0, granted, "a repeated check grants nothing")
	assert.Equal(t, 30, repo.rewarded)
}

/*
TestService_CheckAutoBadges_RuleFailureIsIsolated keeps evaluating the
remaining rules when one grant fails.
*/
func TestService_CheckAutoBadges_RuleFailureIsIsolated(t *testing.T) {
	repo := newMemoryRepository(badge.Snapshot{
		Level:         12,
		TotalDuration: 40000,
	})
	repo.failKey = grantKey(testUID, badge.TypeTime, "First 10 Hours")
	service := newTestService(repo)

	granted, err := service.CheckAutoBadges(context.Background(), testUID)
	require.NoError(t, err, "a per-rule failure is non-fatal")
	assert.Equal(t, 1, granted, "the level badge still lands")

	// The failed rule is retried on the next trigger.
	repo.failKey = ""
	granted, err = service.CheckAutoBadges(context.Background(), testUID)
	require.NoError(t, err)
	assert.Equal(t, 1, granted)
}

/*
TestService_Grant covers manual grants: validation, success, and the
conflict on a duplicate (type, name).
*/
func TestService_Grant(t *testing.T) {
	repo := newMemoryRepository(badge.Snapshot{})
	service := newTestService(repo)
	ctx := context.Background()

	_, err := service.Grant(ctx, testUID, badge.ManualGrantInput{Type: "SHINY", Name: "X"})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)

	_, err = service.Grant(ctx, testUID, badge.ManualGrantInput{
		Type: "CERT", Name: "AWS Certified", GainedExp: -5,
	})
	require.Error(t, err)

	score := "890/1000"
	granted, err := service.Grant(ctx, testUID, badge.ManualGrantInput{
		Type:      "CERT",
		Name:      "AWS Certified",
		Score:     &score,
		GainedExp: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, badge.TypeCert, granted.Type)
	assert.Equal(t, 80, granted.GainedExp)
	assert.Equal(t, 80, repo.rewarded)

	_, err = service.Grant(ctx, testUID, badge.ManualGrantInput{
		Type: "CERT", Name: "AWS Certified", GainedExp: 80,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, 80, repo.rewarded, "a duplicate grant must not reward twice")
}

/*
TestService_Update rejects empty updates and leaves identity fields alone.
*/
func TestService_Update(t *testing.T) {
	repo := newMemoryRepository(badge.Snapshot{})
	service := newTestService(repo)
	ctx := context.Background()

	granted, err := service.Grant(ctx, testUID, badge.ManualGrantInput{
		Type: "TIME", Name: "Marathon", GainedExp: 10,
	})
	require.NoError(t, err)

	_, err = service.Update(ctx, testUID, granted.BadgeID, badge.UpdateInput{})
	require.Error(t, err)

	description := "A very long day"
	updated, err := service.Update(ctx, testUID, granted.BadgeID, badge.UpdateInput{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "A very long day", *updated.Description)
	assert.Equal(t, "Marathon", updated.Name)
	assert.Equal(t, 10, updated.GainedExp)
}
