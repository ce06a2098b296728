// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// PostgreSQL implementation of the session ledger [Repository].
//
// # Locking
//
// Start and Close serialize per-user through a row lock on users.account, so
// two concurrent requests for the same uid cannot both observe "no open
// session" and both insert. The partial unique index on (uid) WHERE ended_at
// IS NULL is the hard backstop: if a race slips past the lock, the second
// insert surfaces as a Conflict instead of a duplicate timer.
package worklog

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
	"github.com/IamPoi/self-craft-back/internal/progression"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

const sessionColumns = `work_id, uid, category, title, started_at, ended_at, duration, gained_exp, created_at`

// singleActiveIndex is the partial unique index enforcing one open session
// per user. Referenced by name to map its violation to a Conflict.
const singleActiveIndex = "work_log_single_active_idx"

// PostgresRepository implements [Repository] on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL-backed session repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanSession(row pgx.Row) (*WorkSession, error) {
	session := &WorkSession{}
	err := row.Scan(
		&session.WorkID,
		&session.UID,
		&session.Category,
		&session.Title,
		&session.StartedAt,
		&session.EndedAt,
		&session.Duration,
		&session.GainedExp,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

/*
Start opens a new session for session.UID.

Inside one transaction: the user row is locked FOR UPDATE, the absence of an
open session is re-checked under that lock, and the row is inserted. The
partial unique index converts any remaining race into a Conflict.
*/
func (repository *PostgresRepository) Start(ctx context.Context, session *WorkSession) error {
	err := pgtx.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		var uid string
		err := tx.QueryRow(ctx,
			`SELECT uid FROM users.account WHERE uid = $1 FOR UPDATE`,
			session.UID,
		).Scan(&uid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("User")
			}
			return err
		}

		var open bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM progress.work_log
				WHERE uid = $1 AND ended_at IS NULL
			)`,
			session.UID,
		).Scan(&open)
		if err != nil {
			return err
		}
		if open {
			return apperr.Conflict("An active session already exists")
		}

		if session.CreatedAt.IsZero() {
			session.CreatedAt = time.Now()
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO progress.work_log (`+sessionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, NULL, NULL, NULL, $6)`,
			session.WorkID,
			session.UID,
			session.Category,
			session.Title,
			session.StartedAt,
			session.CreatedAt,
		)
		return err
	})
	if err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		if dberr.IsUniqueViolation(err, singleActiveIndex) {
			return apperr.Conflict("An active session already exists")
		}
		return dberr.Wrap(err, "worklog_start")
	}

	return nil
}

/*
Close transitions the open session to closed and applies its experience.

The UPDATE is guarded by ended_at IS NULL, so a second stop matches zero
rows and fails with NotFound. Duration and gained_exp are written exactly
once. The experience grant and level recompute run in the same transaction;
a zero grant (short session, no bonus) skips the progression write but still
reports the current level and exp.
*/
func (repository *PostgresRepository) Close(ctx context.Context, input CloseInput) (*WorkSession, progression.Result, error) {
	var (
		session *WorkSession
		result  progression.Result
	)

	err := pgtx.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE progress.work_log
			 SET ended_at = $1, duration = $2, gained_exp = $3
			 WHERE work_id = $4 AND uid = $5 AND ended_at IS NULL
			 RETURNING `+sessionColumns,
			input.EndedAt,
			input.Duration,
			input.GainedExp,
			input.WorkID,
			input.UID,
		)

		closed, err := scanSession(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("Active session")
			}
			return err
		}
		session = closed

		if input.GainedExp > 0 {
			result, err = identity.ApplyExpTx(ctx, tx, input.UID, input.GainedExp)
			return err
		}

		err = tx.QueryRow(ctx,
			`SELECT level, exp FROM users.account WHERE uid = $1`,
			input.UID,
		).Scan(&result.Level, &result.Exp)
		return err
	})
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, progression.Result{}, err
		}
		return nil, progression.Result{}, dberr.Wrap(err, "worklog_close")
	}

	return session, result, nil
}

// FindActive returns the user's open session.
func (repository *PostgresRepository) FindActive(ctx context.Context, uid string) (*WorkSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM progress.work_log
		WHERE uid = $1 AND ended_at IS NULL`

	session, err := scanSession(repository.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Active session")
		}
		return nil, dberr.Wrap(err, "worklog_find_active")
	}

	return session, nil
}

// FindByID resolves a session by id, scoped to its owner. Other users'
// sessions are indistinguishable from missing ones.
func (repository *PostgresRepository) FindByID(ctx context.Context, uid, workID string) (*WorkSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM progress.work_log
		WHERE work_id = $1 AND uid = $2`

	session, err := scanSession(repository.pool.QueryRow(ctx, query, workID, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, dberr.Wrap(err, "worklog_find_by_id")
	}

	return session, nil
}

/*
ListClosed returns the user's closed sessions newest-first.

# Filters

Category matches exactly; From/To bound started_at (inclusive lower,
exclusive upper). The total count uses the same predicate so pagination
metadata stays consistent with the page contents.
*/
func (repository *PostgresRepository) ListClosed(ctx context.Context, uid string, filter ListFilter, page pagination.Params) ([]WorkSession, int, error) {
	where := `WHERE uid = $1 AND ended_at IS NOT NULL`
	args := []interface{}{uid}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND started_at >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND started_at < $%d`, len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM progress.work_log ` + where
	if err := repository.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "worklog_count")
	}

	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(
		`SELECT `+sessionColumns+` FROM progress.work_log %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "worklog_list")
	}
	defer rows.Close()

	sessions := make([]WorkSession, 0, page.Limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "worklog_list_scan")
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "worklog_list_rows")
	}

	return sessions, total, nil
}

// UpdateDescriptive edits title/category of an owned session. Timing and
// reward columns are deliberately absent from the statement.
func (repository *PostgresRepository) UpdateDescriptive(ctx context.Context, uid, workID string, update SessionUpdate) (*WorkSession, error) {
	const query = `
		UPDATE progress.work_log
		SET title    = COALESCE($1, title),
		    category = COALESCE($2, category)
		WHERE work_id = $3 AND uid = $4
		RETURNING ` + sessionColumns

	session, err := scanSession(repository.pool.QueryRow(ctx, query, update.Title, update.Category, workID, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, dberr.Wrap(err, "worklog_update")
	}

	return session, nil
}

// Delete removes an owned session row.
func (repository *PostgresRepository) Delete(ctx context.Context, uid, workID string) error {
	tag, err := repository.pool.Exec(ctx,
		`DELETE FROM progress.work_log WHERE work_id = $1 AND uid = $2`,
		workID, uid,
	)
	if err != nil {
		return dberr.Wrap(err, "worklog_delete")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session")
	}

	return nil
}

// CategoryTotals aggregates closed sessions per category, optionally
// bounded by a started_at date range.
func (repository *PostgresRepository) CategoryTotals(ctx context.Context, uid string, from, to *time.Time) ([]CategoryTotals, error) {
	where := `WHERE uid = $1 AND ended_at IS NOT NULL`
	args := []interface{}{uid}

	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(` AND started_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(` AND started_at < $%d`, len(args))
	}

	query := `
		SELECT category,
		       COUNT(*),
		       COALESCE(SUM(duration), 0),
		       COALESCE(SUM(gained_exp), 0)
		FROM progress.work_log ` + where + `
		GROUP BY category
		ORDER BY category`

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "worklog_category_totals")
	}
	defer rows.Close()

	totals := make([]CategoryTotals, 0, 4)
	for rows.Next() {
		var row CategoryTotals
		if err := rows.Scan(&row.Category, &row.TotalSessions, &row.TotalDuration, &row.TotalExp); err != nil {
			return nil, dberr.Wrap(err, "worklog_category_totals_scan")
		}
		totals = append(totals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "worklog_category_totals_rows")
	}

	return totals, nil
}
