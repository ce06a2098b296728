// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package worklog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/progression"
	"github.com/IamPoi/self-craft-back/internal/worklog"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

// memoryRepository mimics the postgres ledger: one open session per user,
// close-once semantics, and the exp grant folded into Close.
type memoryRepository struct {
	sessions map[string]*worklog.WorkSession
	level    int
	exp      int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		sessions: make(map[string]*worklog.WorkSession),
		level:    1,
	}
}

func (repo *memoryRepository) Start(_ context.Context, session *worklog.WorkSession) error {
	for _, existing := range repo.sessions {
		if existing.UID == session.UID && existing.Active() {
			return apperr.Conflict("An active session already exists")
		}
	}
	clone := *session
	clone.CreatedAt = time.Now()
	repo.sessions[session.WorkID] = &clone
	return nil
}

func (repo *memoryRepository) Close(_ context.Context, input worklog.CloseInput) (*worklog.WorkSession, progression.Result, error) {
	session, ok := repo.sessions[input.WorkID]
	if !ok || session.UID != input.UID || !session.Active() {
		return nil, progression.Result{}, apperr.NotFound("Active session")
	}

	endedAt := input.EndedAt
	session.EndedAt = &endedAt
	session.Duration = &input.Duration
	session.GainedExp = &input.GainedExp

	result := progression.Result{Level: repo.level, Exp: repo.exp}
	if input.GainedExp > 0 {
		var err error
		result, err = progression.Apply(repo.level, repo.exp, input.GainedExp)
		if err != nil {
			return nil, progression.Result{}, err
		}
		repo.level = result.Level
		repo.exp = result.Exp
	}

	clone := *session
	return &clone, result, nil
}

func (repo *memoryRepository) FindActive(_ context.Context, uid string) (*worklog.WorkSession, error) {
	for _, session := range repo.sessions {
		if session.UID == uid && session.Active() {
			clone := *session
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Active session")
}

func (repo *memoryRepository) FindByID(_ context.Context, uid, workID string) (*worklog.WorkSession, error) {
	session, ok := repo.sessions[workID]
	if !ok || session.UID != uid {
		return nil, apperr.NotFound("Session")
	}
	clone := *session
	return &clone, nil
}

func (repo *memoryRepository) ListClosed(_ context.Context, uid string, filter worklog.ListFilter, page pagination.Params) ([]worklog.WorkSession, int, error) {
	matched := make([]worklog.WorkSession, 0)
	for _, session := range repo.sessions {
		if session.UID != uid || session.Active() {
			continue
		}
		if filter.Category != nil && session.Category != *filter.Category {
			continue
		}
		matched = append(matched, *session)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := page.Offset()
	if offset > total {
		return nil, total, nil
	}
	end := offset + page.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (repo *memoryRepository) UpdateDescriptive(ctx context.Context, uid, workID string, update worklog.SessionUpdate) (*worklog.WorkSession, error) {
	session, ok := repo.sessions[workID]
	if !ok || session.UID != uid {
		return nil, apperr.NotFound("Session")
	}
	if update.Title != nil {
		session.Title = update.Title
	}
	if update.Category != nil {
		session.Category = *update.Category
	}
	return repo.FindByID(ctx, uid, workID)
}

func (repo *memoryRepository) Delete(_ context.Context, uid, workID string) error {
	session, ok := repo.sessions[workID]
	if !ok || session.UID != uid {
		return apperr.NotFound("Session")
	}
	delete(repo.sessions, workID)
	return nil
}

func (repo *memoryRepository) CategoryTotals(_ context.Context, uid string, _, _ *time.Time) ([]worklog.CategoryTotals, error) {
	byCategory := make(map[worklog.Category]*worklog.CategoryTotals)
	for _, session := range repo.sessions {
		if session.UID != uid || session.Active() {
			continue
		}
		row, ok := byCategory[session.Category]
		if !ok {
			row = &worklog.CategoryTotals{Category: session.Category}
			byCategory[session.Category] = row
		}
		row.TotalSessions++
		row.TotalDuration += *session.Duration
		row.TotalExp += *session.GainedExp
	}
	totals := make([]worklog.CategoryTotals, 0, len(byCategory))
	for _, row := range byCategory {
		totals = append(totals, *row)
	}
	return totals, nil
}

// stubBadges records check invocations and can be forced to fail.
type stubBadges struct {
	granted int
	fail    bool
	calls   int
}

func (s *stubBadges) CheckAutoBadges(context.Context, string) (int, error) {
	s.calls++
	if s.fail {
		return 0, errors.New("rule evaluation failed")
	}
	return s.granted, nil
}

func newTestService(repo worklog.Repository, badges worklog.BadgeChecker) *worklog.Service {
	return worklog.NewService(repo, badges, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const testUID = "0194e6a1-0000-7000-8000-000000000001"

/*
TestService_Start enforces the single-active-session invariant and rejects
unknown categories.
*/
func TestService_Start(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)
	assert.True(t, session.Active())
	assert.NotEmpty(t, session.WorkID)

	// A second start, even in another category, conflicts.
	_, err = service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryExercise})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	_, err = service.Start(ctx, testUID, worklog.StartInput{Category: worklog.Category("NAP")})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

/*
TestService_Stop verifies the duration-to-experience math and that a second
stop observes NotFound without rewriting the first close.
*/
func TestService_Stop(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)

	// 125 seconds at 1 exp per full minute, plus a 10 exp bonus.
	result, err := service.Stop(ctx, testUID, worklog.StopInput{
		WorkID:   session.WorkID,
		Duration: 125,
		BonusExp: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, result.GainedExp)
	assert.Equal(t, 12, result.Exp)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)
	require.NotNil(t, result.Session.Duration)
	assert.Equal(t, 125, *result.Session.Duration)
	assert.False(t, result.Session.Active())

	_, err = service.Stop(ctx, testUID, worklog.StopInput{
		WorkID:   session.WorkID,
		Duration: 999,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// The first close is permanent.
	stored, err := repo.FindByID(ctx, testUID, session.WorkID)
	require.NoError(t, err)
	assert.Equal(t, 125, *stored.Duration)
	assert.Equal(t, 12, *stored.GainedExp)
}

/*
TestService_Stop_Validation rejects non-positive durations and negative
bonuses before any store write.
*/
func TestService_Stop_Validation(t *testing.T) {
	service := newTestService(newMemoryRepository(), nil)

	tests := []struct {
		name  string
		input worklog.StopInput
	}{
		{"zero_duration", worklog.StopInput{WorkID: testUID, Duration: 0}},
		{"negative_duration", worklog.StopInput{WorkID: testUID, Duration: -5}},
		{"negative_bonus", worklog.StopInput{WorkID: testUID, Duration: 60, BonusExp: -1}},
		{"missing_work_id", worklog.StopInput{Duration: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Stop(context.Background(), testUID, tt.input)
			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
		})
	}
}

/*
TestService_Stop_ShortSession checks that a sub-minute session closes with
zero experience and no level change.
*/
func TestService_Stop_ShortSession(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryLanguage})
	require.NoError(t, err)

	result, err := service.Stop(ctx, testUID, worklog.StopInput{
		WorkID:   session.WorkID,
		Duration: 59,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.GainedExp)
	assert.Equal(t, 0, result.Exp)
	assert.Equal(t, 1, result.Level)
}

/*
TestService_Stop_BadgeCheckBestEffort verifies that a failing badge check
never fails the stop itself, only flags it in the result.
*/
func TestService_Stop_BadgeCheckBestEffort(t *testing.T) {
	repo := newMemoryRepository()
	badges := &stubBadges{fail: true}
	service := newTestService(repo, badges)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)

	result, err := service.Stop(ctx, testUID, worklog.StopInput{
		WorkID:   session.WorkID,
		Duration: 3600,
	})
	require.NoError(t, err, "stop must succeed even when the badge check fails")
	assert.False(t, result.BadgeCheckOK)
	assert.Equal(t, 0, result.NewBadges)
	assert.Equal(t, 1, badges.calls)

	// The close and the exp grant have committed regardless.
	assert.Equal(t, 60, result.GainedExp)
	assert.Equal(t, 60, repo.exp)
}

/*
TestService_Stop_ReportsNewBadges surfaces the badge count on a
successful follow-up check.
*/
func TestService_Stop_ReportsNewBadges(t *testing.T) {
	repo := newMemoryRepository()
	badges := &stubBadges{granted: 2}
	service := newTestService(repo, badges)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)

	result, err := service.Stop(ctx, testUID, worklog.StopInput{
		WorkID:   session.WorkID,
		Duration: 600,
	})
	require.NoError(t, err)
	assert.True(t, result.BadgeCheckOK)
	assert.Equal(t, 2, result.NewBadges)
}

/*
TestService_Active returns nil, not an error, when the user is idle.
*/
func TestService_Active(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	session, err := service.Active(ctx, testUID)
	require.NoError(t, err)
	assert.Nil(t, session)

	started, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)

	session, err = service.Active(ctx, testUID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, started.WorkID, session.WorkID)
}

/*
TestService_Update only touches descriptive fields and rejects empty
updates.
*/
func TestService_Update(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	session, err := service.Start(ctx, testUID, worklog.StartInput{Category: worklog.CategoryStudy})
	require.NoError(t, err)
	_, err = service.Stop(ctx, testUID, worklog.StopInput{WorkID: session.WorkID, Duration: 300})
	require.NoError(t, err)

	_, err = service.Update(ctx, testUID, session.WorkID, worklog.UpdateInput{})
	require.Error(t, err)

	title := "Algebra review"
	category := string(worklog.CategoryCertificate)
	updated, err := service.Update(ctx, testUID, session.WorkID, worklog.UpdateInput{
		Title:    &title,
		Category: &category,
	})
	require.NoError(t, err)
	assert.Equal(t, "Algebra review", *updated.Title)
	assert.Equal(t, worklog.CategoryCertificate, updated.Category)
	assert.Equal(t, 300, *updated.Duration, "timing fields must be untouched")
}

/*
TestService_List filters by category and paginates newest-first.
*/
func TestService_List(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo, nil)
	ctx := context.Background()

	for i, category := range []worklog.Category{
		worklog.CategoryStudy, worklog.CategoryExercise, worklog.CategoryStudy,
	} {
		session, err := service.Start(ctx, testUID, worklog.StartInput{Category: category})
		require.NoError(t, err)
		_, err = service.Stop(ctx, testUID, worklog.StopInput{WorkID: session.WorkID, Duration: 60 * (i + 1)})
		require.NoError(t, err)
	}

	sessions, meta, err := service.List(ctx, testUID, worklog.ListInput{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	sessions, meta, err = service.List(ctx, testUID, worklog.ListInput{Category: "STUDY"}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, 2, meta.Total)

	_, _, err = service.List(ctx, testUID, worklog.ListInput{From: "30-01-2026"}, pagination.Params{Page: 1, Limit: 10})
	require.Error(t, err)
}
