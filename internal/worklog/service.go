// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

/*
Package worklog implements the session ledger: timed work intervals that
feed the user's experience and the badge rules.

# State Machine

Per user: Idle -> Active -> Idle. A start opens the single allowed active
session; a stop closes it irreversibly, fixing duration and gained_exp and
applying the experience in the same transaction.
*/
package worklog

import (
	"context"
	"log/slog"
	"time"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
	"github.com/IamPoi/self-craft-back/internal/progression"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
	"github.com/IamPoi/self-craft-back/pkg/uuidv7"
)

// BadgeChecker runs the automatic badge rules for a user and reports how
// many new badges were granted.
//
// The session ledger only triggers the check; rule evaluation lives in the
// badge domain.
type BadgeChecker interface {
	CheckAutoBadges(ctx context.Context, uid string) (int, error)
}

// Service implements the session ledger use cases.
type Service struct {
	repository Repository
	badges     BadgeChecker
	logger     *slog.Logger
}

// NewService constructs the worklog [Service]. The badge checker may be nil
// in contexts that do not evaluate badges (tests, maintenance tooling).
func NewService(repository Repository, badges BadgeChecker, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		badges:     badges,
		logger:     logger,
	}
}

// StartInput carries the fields of a session-start request.
type StartInput struct {
	Category Category
	Title    *string
}

// Start opens a new session for uid. At most one session per user may be
// open; a second start fails with a Conflict.
func (service *Service) Start(ctx context.Context, uid string, input StartInput) (*WorkSession, error) {
	v := &validate.Validator{}
	v.OneOf("category", string(input.Category), CategoryNames()...)
	if input.Title != nil {
		v.MaxLen("title", *input.Title, 200)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	session := &WorkSession{
		WorkID:    uuidv7.New(),
		UID:       uid,
		Category:  input.Category,
		Title:     input.Title,
		StartedAt: time.Now(),
	}

	if err := service.repository.Start(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// StopInput carries the fields of a session-stop request.
//
// Duration is client-reported elapsed seconds; BonusExp is an optional
// extra reward on top of the duration-derived experience.
type StopInput struct {
	WorkID   string
	Duration int
	BonusExp int
}

// StopResult is the outcome of a session stop: the closed session, the
// resulting progression state, and the badge follow-up outcome.
type StopResult struct {
	Session   *WorkSession `json:"session"`
	GainedExp int          `json:"gained_exp"`
	Level     int          `json:"level"`
	Exp       int          `json:"exp"`
	LeveledUp bool         `json:"leveled_up"`

	// NewBadges counts badges granted by the post-stop rule check.
	// BadgeCheckOK is false when the check itself failed; the stop has
	// already committed at that point and is unaffected.
	NewBadges    int  `json:"new_badges"`
	BadgeCheckOK bool `json:"badge_check_ok"`
}

/*
Stop closes the named open session.

The close, the experience grant, and the level recompute commit atomically.
Stopping an already-closed session fails with NotFound and never rewrites
duration or gained_exp.

The automatic badge check runs as a best-effort follow-up after the commit:
a rule failure is logged and reported via BadgeCheckOK, never rolled into
the stop itself.
*/
func (service *Service) Stop(ctx context.Context, uid string, input StopInput) (*StopResult, error) {
	v := &validate.Validator{}
	v.Required("work_id", input.WorkID).
		UUID("work_id", input.WorkID).
		Min("duration", input.Duration, 1).
		Min("bonus_exp", input.BonusExp, 0)
	if err := v.Err(); err != nil {
		return nil, err
	}

	gained := progression.AutoExp(input.Duration) + input.BonusExp

	session, result, err := service.repository.Close(ctx, CloseInput{
		UID:       uid,
		WorkID:    input.WorkID,
		EndedAt:   time.Now(),
		Duration:  input.Duration,
		GainedExp: gained,
	})
	if err != nil {
		return nil, err
	}

	stop := &StopResult{
		Session:      session,
		GainedExp:    gained,
		Level:        result.Level,
		Exp:          result.Exp,
		LeveledUp:    result.LeveledUp,
		BadgeCheckOK: true,
	}

	if service.badges != nil {
		granted, checkErr := service.badges.CheckAutoBadges(ctx, uid)
		if checkErr != nil {
			service.logger.WarnContext(ctx, "badge_check_failed",
				slog.String("uid", uid),
				slog.String("error", checkErr.Error()),
			)
			stop.BadgeCheckOK = false
		} else {
			stop.NewBadges = granted
		}
	}

	return stop, nil
}

// Active returns the user's open session, or nil when idle.
func (service *Service) Active(ctx context.Context, uid string) (*WorkSession, error) {
	session, err := service.repository.FindActive(ctx, uid)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// ListInput carries the raw filter strings of a session listing request.
type ListInput struct {
	Category string
	From     string
	To       string
}

// List returns the user's closed sessions newest-first, with pagination
// metadata. Date filters bound started_at by calendar day.
func (service *Service) List(ctx context.Context, uid string, input ListInput, page pagination.Params) ([]WorkSession, pagination.Meta, error) {
	v := &validate.Validator{}
	if input.Category != "" {
		v.OneOf("category", input.Category, CategoryNames()...)
	}
	v.Date("from", input.From).Date("to", input.To)
	if err := v.Err(); err != nil {
		return nil, pagination.Meta{}, err
	}

	filter, err := buildFilter(input)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	sessions, total, err := service.repository.ListClosed(ctx, uid, filter, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return sessions, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// Get resolves a single owned session.
func (service *Service) Get(ctx context.Context, uid, workID string) (*WorkSession, error) {
	return service.repository.FindByID(ctx, uid, workID)
}

// UpdateInput carries the editable descriptive fields of a session.
type UpdateInput struct {
	Title    *string
	Category *string
}

// Update edits title/category of an owned session. Timing and reward
// fields are immutable once set.
func (service *Service) Update(ctx context.Context, uid, workID string, input UpdateInput) (*WorkSession, error) {
	if input.Title == nil && input.Category == nil {
		return nil, apperr.ValidationError("Nothing to update")
	}

	v := &validate.Validator{}
	v.Required("work_id", workID).UUID("work_id", workID)
	if input.Title != nil {
		v.MaxLen("title", *input.Title, 200)
	}
	if input.Category != nil {
		v.OneOf("category", *input.Category, CategoryNames()...)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	update := SessionUpdate{Title: input.Title}
	if input.Category != nil {
		category := Category(*input.Category)
		update.Category = &category
	}

	return service.repository.UpdateDescriptive(ctx, uid, workID, update)
}

// Delete removes an owned session.
func (service *Service) Delete(ctx context.Context, uid, workID string) error {
	v := &validate.Validator{}
	if err := v.Required("work_id", workID).UUID("work_id", workID).Err(); err != nil {
		return err
	}
	return service.repository.Delete(ctx, uid, workID)
}

// CategoryStats aggregates closed sessions per category over an optional
// date range.
func (service *Service) CategoryStats(ctx context.Context, uid string, input ListInput) ([]CategoryTotals, error) {
	v := &validate.Validator{}
	v.Date("from", input.From).Date("to", input.To)
	if err := v.Err(); err != nil {
		return nil, err
	}

	filter, err := buildFilter(ListInput{From: input.From, To: input.To})
	if err != nil {
		return nil, err
	}

	return service.repository.CategoryTotals(ctx, uid, filter.From, filter.To)
}

// buildFilter converts validated raw filter strings into a [ListFilter].
// The To bound is exclusive at the following midnight so a YYYY-MM-DD
// filter covers the whole named day.
func buildFilter(input ListInput) (ListFilter, error) {
	var filter ListFilter

	if input.Category != "" {
		category := Category(input.Category)
		filter.Category = &category
	}
	if input.From != "" {
		from, err := time.Parse(validate.DateLayout, input.From)
		if err != nil {
			return ListFilter{}, validate.RequiredError("from", "Must be a date in YYYY-MM-DD format")
		}
		filter.From = &from
	}
	if input.To != "" {
		to, err := time.Parse(validate.DateLayout, input.To)
		if err != nil {
			return ListFilter{}, validate.RequiredError("to", "Must be a date in YYYY-MM-DD format")
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	return filter, nil
}
