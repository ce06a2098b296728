// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package ctxkey defines the typed context keys shared between middleware
// and downstream packages.
//
// Using a private key type prevents collisions with context values set by
// third-party libraries.
package ctxkey

type contextKey string

const (
	// KeyRequestID carries the correlation ID of the current request.
	KeyRequestID contextKey = "request_id"

	// KeyLogger carries the request-scoped *slog.Logger.
	KeyLogger contextKey = "logger"

	// KeyPrincipal carries the authenticated *sec.Principal, or nothing for
	// anonymous requests.
	KeyPrincipal contextKey = "principal"
)
