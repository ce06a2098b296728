// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// PostgreSQL implementation of the identity [Repository].
//
// # Error Mapping
//
// Storage errors (pgx.ErrNoRows, SQLSTATE codes) are mapped to domain-level
// [apperr.AppError] kinds via dberr so no storage detail leaks upward.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/dberr"
	pgtx "github.com/IamPoi/self-craft-back/internal/platform/postgres"
	"github.com/IamPoi/self-craft-back/internal/progression"
)

const userColumns = `uid, provider, external_id, name, email, avatar_url, is_guest, level, exp, created_at, updated_at`

// PostgresRepository implements [Repository] on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL-backed identity repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.UID,
		&user.Provider,
		&user.ExternalID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.IsGuest,
		&user.Level,
		&user.Exp,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user row.

The caller decides guest vs. external shape; the unique constraint over
(provider, external_id) converts a concurrent duplicate external signup into
a Conflict.
*/
func (repository *PostgresRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.UID,
		user.Provider,
		user.ExternalID,
		user.Name,
		user.Email,
		user.AvatarURL,
		user.IsGuest,
		user.Level,
		user.Exp,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "identity_create")
	}

	return nil
}

// FindByUID resolves a user by primary key.
func (repository *PostgresRepository) FindByUID(ctx context.Context, uid string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE uid = $1`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "identity_find_by_uid")
	}

	return user, nil
}

// FindByExternalID resolves a user by (provider, external_id).
func (repository *PostgresRepository) FindByExternalID(ctx context.Context, provider Provider, externalID string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE provider = $1 AND external_id = $2`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, provider, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "identity_find_by_external_id")
	}

	return user, nil
}

/*
UpdateProfile applies non-nil descriptive fields and returns the fresh row.

COALESCE keeps absent fields untouched; provider linkage and progression
state are outside this statement entirely.
*/
func (repository *PostgresRepository) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*User, error) {
	const query = `
		UPDATE users.account
		SET name = COALESCE($2, name),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = $4
		WHERE uid = $1
		RETURNING ` + userColumns

	user, err := scanUser(repository.pool.QueryRow(ctx, query, uid, update.Name, update.AvatarURL, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "identity_update_profile")
	}

	return user, nil
}

// RefreshExternalProfile syncs descriptive fields on a returning external login.
func (repository *PostgresRepository) RefreshExternalProfile(ctx context.Context, uid, name, email string, avatarURL *string) error {
	const query = `
		UPDATE users.account
		SET name = $2, email = $3, avatar_url = COALESCE($4, avatar_url), updated_at = $5
		WHERE uid = $1`

	_, err := repository.pool.Exec(ctx, query, uid, name, email, avatarURL, time.Now())
	if err != nil {
		return dberr.Wrap(err, "identity_refresh_external_profile")
	}

	return nil
}

/*
MigrateGuest atomically converts a guest row into an externally-linked identity.

Transaction shape:
 1. Lock the guest row (FOR UPDATE). Absent or already-migrated rows yield
    NotFound, and the lock serializes concurrent migrations of the same guest.
 2. Check no user already holds (provider, external_id), Conflict otherwise.
 3. Rewrite linkage fields in place. level/exp are deliberately not in the
    UPDATE list: migration never touches progression state.

The unique constraint on (provider, external_id) is the backstop for the
window between check and update under concurrent migrations of two different
guests to the same external identity: the loser's commit surfaces as Conflict,
never as a partial mutation.
*/
func (repository *PostgresRepository) MigrateGuest(ctx context.Context, input MigrateInput) (*User, error) {
	var migrated *User

	err := pgtx.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		const lockQuery = `
			SELECT uid FROM users.account
			WHERE uid = $1 AND is_guest = TRUE
			FOR UPDATE`

		var lockedUID string
		if err := tx.QueryRow(ctx, lockQuery, input.GuestUID).Scan(&lockedUID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("Guest account")
			}
			return dberr.Wrap(err, "migrate_lock_guest")
		}

		const dupQuery = `
			SELECT 1 FROM users.account
			WHERE provider = $1 AND external_id = $2`

		var one int
		err := tx.QueryRow(ctx, dupQuery, input.Provider, input.ExternalID).Scan(&one)
		if err == nil {
			return apperr.Conflict("This external account is already linked")
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return dberr.Wrap(err, "migrate_check_duplicate")
		}

		const updateQuery = `
			UPDATE users.account
			SET provider = $2,
			    external_id = $3,
			    name = $4,
			    email = $5,
			    avatar_url = COALESCE($6, avatar_url),
			    is_guest = FALSE,
			    updated_at = $7
			WHERE uid = $1
			RETURNING ` + userColumns

		user, err := scanUser(tx.QueryRow(ctx, updateQuery,
			input.GuestUID,
			input.Provider,
			input.ExternalID,
			input.Name,
			input.Email,
			input.AvatarURL,
			time.Now(),
		))
		if err != nil {
			if dberr.IsUniqueViolation(err, "") {
				return apperr.Conflict("This external account is already linked")
			}
			return dberr.Wrap(err, "migrate_update_guest")
		}

		migrated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return migrated, nil
}

// ApplyExp atomically adds a positive experience delta in its own transaction.
func (repository *PostgresRepository) ApplyExp(ctx context.Context, uid string, delta int) (progression.Result, error) {
	var result progression.Result

	err := pgtx.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		applied, err := ApplyExpTx(ctx, tx, uid, delta)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return progression.Result{}, err
	}

	return result, nil
}

/*
ApplyExpTx runs the one sanctioned exp/level mutation inside the caller's
transaction.

Session close and badge grants join their own surrounding transactions to
this helper so that "close + reward + level recompute" commits or rolls back
as a unit. The row lock orders concurrent grants for the same uid.
*/
func ApplyExpTx(ctx context.Context, tx pgx.Tx, uid string, delta int) (progression.Result, error) {
	const lockQuery = `SELECT level, exp FROM users.account WHERE uid = $1 FOR UPDATE`

	var currentLevel, currentExp int
	if err := tx.QueryRow(ctx, lockQuery, uid).Scan(&currentLevel, &currentExp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progression.Result{}, apperr.NotFound("User")
		}
		return progression.Result{}, dberr.Wrap(err, "apply_exp_lock_user")
	}

	result, err := progression.Apply(currentLevel, currentExp, delta)
	if err != nil {
		return progression.Result{}, err
	}

	const updateQuery = `
		UPDATE users.account
		SET exp = $2, level = $3, updated_at = $4
		WHERE uid = $1`

	if _, err := tx.Exec(ctx, updateQuery, uid, result.Exp, result.Level, time.Now()); err != nil {
		return progression.Result{}, dberr.Wrap(err, "apply_exp_update_user")
	}

	return result, nil
}

/*
Stats aggregates the per-user dashboard numbers.

Three read-only queries over work_log and badge; no transactional guarantee
is needed for a dashboard snapshot.
*/
func (repository *PostgresRepository) Stats(ctx context.Context, uid string) (*UserStats, error) {
	const basicQuery = `
		SELECT
			u.level, u.exp,
			(SELECT COUNT(*) FROM progress.work_log w
				WHERE w.uid = u.uid AND w.started_at::date = CURRENT_DATE) AS today_sessions,
			(SELECT COALESCE(SUM(w.duration), 0) FROM progress.work_log w
				WHERE w.uid = u.uid AND w.started_at::date = CURRENT_DATE AND w.ended_at IS NOT NULL) AS today_total_time,
			(SELECT COUNT(*) FROM progress.work_log w WHERE w.uid = u.uid) AS total_sessions,
			(SELECT COALESCE(SUM(w.duration), 0) FROM progress.work_log w
				WHERE w.uid = u.uid AND w.ended_at IS NOT NULL) AS total_study_time,
			(SELECT COUNT(*) FROM progress.badge b WHERE b.uid = u.uid) AS total_badges
		FROM users.account u
		WHERE u.uid = $1`

	stats := &UserStats{}
	err := repository.pool.QueryRow(ctx, basicQuery, uid).Scan(
		&stats.Level,
		&stats.Exp,
		&stats.TodaySessions,
		&stats.TodayTotalTime,
		&stats.TotalSessions,
		&stats.TotalStudyTime,
		&stats.TotalBadges,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "identity_stats_basic")
	}

	const categoryQuery = `
		SELECT category,
		       COUNT(*) AS sessions,
		       COALESCE(SUM(duration), 0) AS total_time,
		       COALESCE(AVG(duration), 0)::int AS avg_time,
		       COALESCE(SUM(gained_exp), 0) AS total_exp
		FROM progress.work_log
		WHERE uid = $1 AND ended_at IS NOT NULL
		GROUP BY category
		ORDER BY total_time DESC`

	rows, err := repository.pool.Query(ctx, categoryQuery, uid)
	if err != nil {
		return nil, dberr.Wrap(err, "identity_stats_category")
	}
	defer rows.Close()

	for rows.Next() {
		var cs CategoryStat
		if err := rows.Scan(&cs.Category, &cs.Sessions, &cs.TotalTime, &cs.AvgTime, &cs.TotalExp); err != nil {
			return nil, dberr.Wrap(err, "identity_stats_category_scan")
		}
		stats.Categories = append(stats.Categories, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "identity_stats_category_rows")
	}

	const weeklyQuery = `
		SELECT to_char(started_at::date, 'YYYY-MM-DD') AS day,
		       COUNT(*) AS sessions,
		       COALESCE(SUM(duration), 0) AS total_time
		FROM progress.work_log
		WHERE uid = $1 AND started_at::date >= CURRENT_DATE - INTERVAL '7 days'
		GROUP BY started_at::date
		ORDER BY started_at::date DESC`

	weeklyRows, err := repository.pool.Query(ctx, weeklyQuery, uid)
	if err != nil {
		return nil, dberr.Wrap(err, "identity_stats_weekly")
	}
	defer weeklyRows.Close()

	for weeklyRows.Next() {
		var da DailyActivity
		if err := weeklyRows.Scan(&da.Date, &da.Sessions, &da.TotalTime); err != nil {
			return nil, dberr.Wrap(err, "identity_stats_weekly_scan")
		}
		stats.Weekly = append(stats.Weekly, da)
	}
	if err := weeklyRows.Err(); err != nil {
		return nil, dberr.Wrap(err, "identity_stats_weekly_rows")
	}

	return stats, nil
}
