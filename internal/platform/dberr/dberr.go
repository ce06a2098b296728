// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package dberr classifies low-level PostgreSQL errors into the application
// error taxonomy.
//
// Storage details (SQLSTATE codes, constraint names) stay on the server side;
// clients only ever see the mapped [apperr.AppError] kind.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
)

// Wrap classifies a database error from the named action.
//
// Mapping:
//   - pgx.ErrNoRows            → NOT_FOUND
//   - unique violation (23505) → CONFLICT (the constraint backstop converts a
//     lost race into a reported conflict rather than a silent duplicate)
//   - serialization failure / deadlock / connection loss → TRANSIENT
//   - anything else            → INTERNAL_ERROR
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Resource")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict("Resource already exists")
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return apperr.Transient(fmt.Errorf("%s: %w", action, err))
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return apperr.Transient(fmt.Errorf("%s: %w", action, err))
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation, optionally restricted to a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
