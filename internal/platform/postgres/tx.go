// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a read-committed transaction.
//
// The transaction commits only if fn returns nil; any error (or a request
// timeout firing mid-transaction) rolls everything back, so partial mutations
// are never observable.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
