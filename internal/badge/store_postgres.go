// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// PostgreSQL implementation of the badge [Repository].
//
// # Idempotence
//
// GrantIfAbsent re-checks for an existing (uid, type, name) row inside its
// transaction and inserts with ON CONFLICT DO NOTHING, so the unique
// constraint is the hard backstop: two concurrent grant attempts for the
// same rule produce exactly one badge and exactly one reward.
package badge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IamPoi/self-craft-back/internal/identity"
	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/dberr"
	pgtx "github.com/IamPoi/self-craft-back/internal/platform/postgres"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
	"github.com/IamPoi/self-craft-back/pkg/uuidv7"
)

const badgeColumns = `badge_id, uid, type, name, description, score, acquired_at, gained_exp, created_at`

// PostgresRepository implements [Repository] on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL-backed badge repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanBadge(row pgx.Row) (*Badge, error) {
	badge := &Badge{}
	err := row.Scan(
		&badge.BadgeID,
		&badge.UID,
		&badge.Type,
		&badge.Name,
		&badge.Description,
		&badge.Score,
		&badge.AcquiredAt,
		&badge.GainedExp,
		&badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return badge, nil
}

/*
LoadSnapshot aggregates the state the rule predicates evaluate against.

Three reads over closed sessions plus the user's level. The snapshot is not
transactionally tied to the grants that follow; the grant-time re-check
inside [PostgresRepository.GrantIfAbsent] is what guarantees idempotence.
*/
func (repository *PostgresRepository) LoadSnapshot(ctx context.Context, uid string) (Snapshot, error) {
	snapshot := Snapshot{ClosedByCategory: make(map[string]int)}

	err := repository.pool.QueryRow(ctx,
		`SELECT level FROM users.account WHERE uid = $1`,
		uid,
	).Scan(&snapshot.Level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, apperr.NotFound("User")
		}
		return Snapshot{}, dberr.Wrap(err, "badge_snapshot_level")
	}

	err = repository.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(duration), 0),
		        COUNT(DISTINCT started_at::date) FILTER (
		            WHERE started_at >= NOW() - INTERVAL '30 days'
		        )
		 FROM progress.work_log
		 WHERE uid = $1 AND ended_at IS NOT NULL`,
		uid,
	).Scan(&snapshot.TotalDuration, &snapshot.DistinctDays30)
	if err != nil {
		return Snapshot{}, dberr.Wrap(err, "badge_snapshot_totals")
	}

	rows, err := repository.pool.Query(ctx,
		`SELECT category, COUNT(*)
		 FROM progress.work_log
		 WHERE uid = $1 AND ended_at IS NOT NULL
		 GROUP BY category`,
		uid,
	)
	if err != nil {
		return Snapshot{}, dberr.Wrap(err, "badge_snapshot_categories")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return Snapshot{}, dberr.Wrap(err, "badge_snapshot_categories_scan")
		}
		snapshot.ClosedByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, dberr.Wrap(err, "badge_snapshot_categories_rows")
	}

	return snapshot, nil
}

/*
GrantIfAbsent inserts the badge unless one already exists for
(uid, type, name).

Inside one transaction: re-check, insert with ON CONFLICT DO NOTHING, and
reward application. When the insert is skipped (either by the re-check or by
the constraint after a race), the existing badge is returned unchanged and
no reward is applied.
*/
func (repository *PostgresRepository) GrantIfAbsent(ctx context.Context, input GrantInput) (*Badge, bool, error) {
	var (
		badge   *Badge
		created bool
	)

	err := pgtx.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		existing, err := findByKeyTx(ctx, tx, input.UID, input.Type, input.Name)
		if err == nil {
			badge = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO progress.badge (`+badgeColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (uid, type, name) DO NOTHING
			 RETURNING `+badgeColumns,
			uuidv7.New(),
			input.UID,
			input.Type,
			input.Name,
			input.Description,
			input.Score,
			input.AcquiredAt,
			input.GainedExp,
			time.Now(),
		)

		inserted, err := scanBadge(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Lost the insert race; resolve to the winner's row.
				badge, err = findByKeyTx(ctx, tx, input.UID, input.Type, input.Name)
				return err
			}
			return err
		}

		badge = inserted
		created = true

		if input.GainedExp > 0 {
			_, err = identity.ApplyExpTx(ctx, tx, input.UID, input.GainedExp)
			return err
		}
		return nil
	})
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, false, err
		}
		return nil, false, dberr.Wrap(err, "badge_grant")
	}

	return badge, created, nil
}

func findByKeyTx(ctx context.Context, tx pgx.Tx, uid string, badgeType Type, name string) (*Badge, error) {
	return scanBadge(tx.QueryRow(ctx,
		`SELECT `+badgeColumns+`
		 FROM progress.badge
		 WHERE uid = $1 AND type = $2 AND name = $3`,
		uid, badgeType, name,
	))
}

// List returns the user's badges newest-first, optionally filtered by type.
func (repository *PostgresRepository) List(ctx context.Context, uid string, typeFilter *Type, page pagination.Params) ([]Badge, int, error) {
	where := `WHERE uid = $1`
	args := []interface{}{uid}

	if typeFilter != nil {
		args = append(args, *typeFilter)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}

	var total int
	if err := repository.pool.QueryRow(ctx, `SELECT COUNT(*) FROM progress.badge `+where, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "badge_count")
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(
		`SELECT `+badgeColumns+` FROM progress.badge %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "badge_list")
	}
	defer rows.Close()

	badges := make([]Badge, 0, page.Limit)
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "badge_list_scan")
		}
		badges = append(badges, *badge)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "badge_list_rows")
	}

	return badges, total, nil
}

// FindByID resolves a badge by id, scoped to its owner.
func (repository *PostgresRepository) FindByID(ctx context.Context, uid, badgeID string) (*Badge, error) {
	badge, err := scanBadge(repository.pool.QueryRow(ctx,
		`SELECT `+badgeColumns+` FROM progress.badge WHERE badge_id = $1 AND uid = $2`,
		badgeID, uid,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Badge")
		}
		return nil, dberr.Wrap(err, "badge_find_by_id")
	}

	return badge, nil
}

// UpdateDescriptive edits description/score of an owned badge. Identity
// and reward columns are deliberately absent from the statement.
func (repository *PostgresRepository) UpdateDescriptive(ctx context.Context, uid, badgeID string, update DescriptiveUpdate) (*Badge, error) {
	const query = `
		UPDATE progress.badge
		SET description = COALESCE($1, description),
		    score       = COALESCE($2, score)
		WHERE badge_id = $3 AND uid = $4
		RETURNING ` + badgeColumns

	badge, err := scanBadge(repository.pool.QueryRow(ctx, query, update.Description, update.Score, badgeID, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Badge")
		}
		return nil, dberr.Wrap(err, "badge_update")
	}

	return badge, nil
}

// Delete removes an owned badge row.
func (repository *PostgresRepository) Delete(ctx context.Context, uid, badgeID string) error {
	tag, err := repository.pool.Exec(ctx,
		`DELETE FROM progress.badge WHERE badge_id = $1 AND uid = $2`,
		badgeID, uid,
	)
	if err != nil {
		return dberr.Wrap(err, "badge_delete")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Badge")
	}

	return nil
}

// Summary aggregates the user's badge collection.
func (repository *PostgresRepository) Summary(ctx context.Context, uid string) (*Summary, error) {
	summary := &Summary{ByType: make([]TypeCount, 0, 5)}

	err := repository.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(gained_exp), 0)
		 FROM progress.badge WHERE uid = $1`,
		uid,
	).Scan(&summary.TotalBadges, &summary.TotalExp)
	if err != nil {
		return nil, dberr.Wrap(err, "badge_summary")
	}

	rows, err := repository.pool.Query(ctx,
		`SELECT type, COUNT(*)
		 FROM progress.badge
		 WHERE uid = $1
		 GROUP BY type
		 ORDER BY type`,
		uid,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "badge_summary_types")
	}
	defer rows.Close()

	for rows.Next() {
		var row TypeCount
		if err := rows.Scan(&row.Type, &row.Count); err != nil {
			return nil, dberr.Wrap(err, "badge_summary_types_scan")
		}
		summary.ByType = append(summary.ByType, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "badge_summary_types_rows")
	}

	return summary, nil
}
