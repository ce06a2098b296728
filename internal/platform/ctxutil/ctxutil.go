// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package ctxutil provides helpers for values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/IamPoi/self-craft-back/internal/platform/ctxkey"
	"github.com/IamPoi/self-craft-back/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID, or "" if absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the request-scoped logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the context logger, falling back to slog.Default.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity

// WithPrincipal returns a new context with the verified token claims attached.
func WithPrincipal(ctx context.Context, claims *sec.Claims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPrincipal, claims)
}

// GetPrincipal retrieves the [*sec.Claims] of the caller, or nil if anonymous.
func GetPrincipal(ctx context.Context) *sec.Claims {
	claims, ok := ctx.Value(ctxkey.KeyPrincipal).(*sec.Claims)
	if !ok {
		return nil
	}
	return claims
}
