// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// PostgreSQL implementation of the ranking [Repository].
//
// Plain read-only aggregation, no transaction: the view tolerates
// concurrent writers and needs no snapshot guarantee.
package ranking

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IamPoi/self-craft-back/internal/platform/dberr"
)

// PostgresRepository implements [Repository] on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL-backed ranking repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
TopUsers returns the leaderboard over non-guest users.

Session and badge totals come from LEFT JOINed aggregates so users with no
activity still appear. The optional category filter narrows the session
totals only, never the membership of the list.
*/
func (repository *PostgresRepository) TopUsers(ctx context.Context, query Query) ([]Entry, error) {
	const statement = `
		SELECT u.uid,
		       u.name,
		       u.avatar_url,
		       u.level,
		       u.exp,
		       COALESCE(w.total_study_time, 0),
		       COALESCE(w.total_sessions, 0),
		       COALESCE(b.total_badges, 0)
		FROM users.account u
		LEFT JOIN (
		    SELECT uid,
		           SUM(duration) AS total_study_time,
		           COUNT(*)      AS total_sessions
		    FROM progress.work_log
		    WHERE ended_at IS NOT NULL
		      AND ($1 = '' OR category = $1)
		    GROUP BY uid
		) w ON w.uid = u.uid
		LEFT JOIN (
		    SELECT uid, COUNT(*) AS total_badges
		    FROM progress.badge
		    GROUP BY uid
		) b ON b.uid = u.uid
		WHERE u.is_guest = FALSE
		ORDER BY u.level DESC, u.exp DESC, COALESCE(w.total_study_time, 0) DESC
		LIMIT $2`

	rows, err := repository.pool.Query(ctx, statement, query.Category, query.Limit)
	if err != nil {
		return nil, dberr.Wrap(err, "ranking_top_users")
	}
	defer rows.Close()

	entries := make([]Entry, 0, query.Limit)
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.UID,
			&entry.Name,
			&entry.AvatarURL,
			&entry.Level,
			&entry.Exp,
			&entry.TotalStudyTime,
			&entry.TotalSessions,
			&entry.TotalBadges,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "ranking_top_users_scan")
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "ranking_top_users_rows")
	}

	return entries, nil
}
