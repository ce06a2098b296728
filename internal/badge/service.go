// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

/*
Package badge implements the badge evaluator: permanent achievements
granted from declarative rules or manually, each at most once.

# Granting Protocol

Every grant, automatic or manual, goes through a single transactional
check-then-insert with a unique constraint backstop, so duplicate triggers
and retries are harmless. Rewards flow through the progression calculator
inside the same transaction as the badge row.
*/
package badge

import (
	"context"
	"log/slog"
	"time"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
	"github.com/IamPoi/self-craft-back/pkg/pointer"
)

// Service implements the badge use cases.
type Service struct {
	repository Repository
	rules      []Rule
	logger     *slog.Logger
}

// NewService constructs the badge [Service] with the standard rule set.
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		rules:      Rules(),
		logger:     logger,
	}
}

/*
CheckAutoBadges evaluates every automatic rule for uid and grants the
missing satisfied ones. It returns the number of newly granted badges.

Each grant runs in its own transaction: a failing rule is logged and
skipped, never blocking the remaining rules or the caller. The snapshot is
loaded once, so a level threshold crossed by a reward granted in this same
pass is picked up on the next trigger, not this one.
*/
func (service *Service) CheckAutoBadges(ctx context.Context, uid string) (int, error) {
	snapshot, err := service.repository.LoadSnapshot(ctx, uid)
	if err != nil {
		return 0, err
	}

	granted := 0
	today := truncateToDate(time.Now())

	for _, rule := range service.rules {
		if !rule.Satisfied(snapshot) {
			continue
		}

		_, created, err := service.repository.GrantIfAbsent(ctx, GrantInput{
			UID:         uid,
			Type:        rule.Type,
			Name:        rule.Name,
			Description: pointer.To(rule.Description),
			AcquiredAt:  today,
			GainedExp:   rule.Reward,
		})
		if err != nil {
			service.logger.WarnContext(ctx, "badge_rule_grant_failed",
				slog.String("uid", uid),
				slog.String("type", string(rule.Type)),
				slog.String("name", rule.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if created {
			granted++
		}
	}

	return granted, nil
}

// ManualGrantInput carries the fields of a direct badge grant.
type ManualGrantInput struct {
	Type        string
	Name        string
	Description *string
	Score       *string
	GainedExp   int
}

/*
Grant creates a badge directly, outside the rule set.

The (uid, type, name) idempotence key still applies: granting an already
held badge fails with a Conflict rather than duplicating it. The reward
must be non-negative and is applied atomically with the badge row.
*/
func (service *Service) Grant(ctx context.Context, uid string, input ManualGrantInput) (*Badge, error) {
	v := &validate.Validator{}
	v.OneOf("type", input.Type, TypeNames()...).
		Required("name", input.Name).
		MaxLen("name", input.Name, 100).
		Min("gained_exp", input.GainedExp, 0)
	if input.Description != nil {
		v.MaxLen("description", *input.Description, 500)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	badge, created, err := service.repository.GrantIfAbsent(ctx, GrantInput{
		UID:         uid,
		Type:        Type(input.Type),
		Name:        input.Name,
		Description: input.Description,
		Score:       input.Score,
		AcquiredAt:  truncateToDate(time.Now()),
		GainedExp:   input.GainedExp,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperr.Conflict("Badge already granted")
	}

	return badge, nil
}

// List returns the user's badges newest-first, optionally filtered by type.
func (service *Service) List(ctx context.Context, uid, typeFilter string, page pagination.Params) ([]Badge, pagination.Meta, error) {
	var filter *Type
	if typeFilter != "" {
		v := &validate.Validator{}
		if err := v.OneOf("type", typeFilter, TypeNames()...).Err(); err != nil {
			return nil, pagination.Meta{}, err
		}
		badgeType := Type(typeFilter)
		filter = &badgeType
	}

	badges, total, err := service.repository.List(ctx, uid, filter, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return badges, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// Get resolves a single owned badge.
func (service *Service) Get(ctx context.Context, uid, badgeID string) (*Badge, error) {
	return service.repository.FindByID(ctx, uid, badgeID)
}

// UpdateInput carries the editable descriptive fields of a badge.
type UpdateInput struct {
	Description *string
	Score       *string
}

// Update edits description/score of an owned badge. Type, name, and the
// reward are immutable once granted.
func (service *Service) Update(ctx context.Context, uid, badgeID string, input UpdateInput) (*Badge, error) {
	if input.Description == nil && input.Score == nil {
		return nil, apperr.ValidationError("Nothing to update")
	}

	v := &validate.Validator{}
	v.Required("badge_id", badgeID).UUID("badge_id", badgeID)
	if input.Description != nil {
		v.MaxLen("description", *input.Description, 500)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	return service.repository.UpdateDescriptive(ctx, uid, badgeID, DescriptiveUpdate{
		Description: input.Description,
		Score:       input.Score,
	})
}

// Delete removes an owned badge.
func (service *Service) Delete(ctx context.Context, uid, badgeID string) error {
	v := &validate.Validator{}
	if err := v.Required("badge_id", badgeID).UUID("badge_id", badgeID).Err(); err != nil {
		return err
	}
	return service.repository.Delete(ctx, uid, badgeID)
}

// StatsSummary aggregates the user's badge collection.
func (service *Service) StatsSummary(ctx context.Context, uid string) (*Summary, error) {
	return service.repository.Summary(ctx, uid)
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
