// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package requestutil provides utilities for extracting data from HTTP requests.
//
// It abstracts the router's parameter extraction and common body decoding so
// handlers share one error behavior for malformed input.
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/ctxutil"
	"github.com/IamPoi/self-craft-back/internal/platform/sec"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
)

// DecodeJSON reads the request body into target, returning a uniform
// validation error if the payload is not valid JSON.
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param retrieves a named URL parameter from the request.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// Principal extracts the authenticated claims from the request context,
// or nil for an anonymous request.
func Principal(request *http.Request) *sec.Claims {
	return ctxutil.GetPrincipal(request.Context())
}

// RequiredUID returns the uid of the calling principal.
//
// Handlers mounted behind RequireAuth can still call this defensively; a
// missing principal yields an Unauthorized error rather than a panic.
func RequiredUID(request *http.Request) (string, error) {
	claims := ctxutil.GetPrincipal(request.Context())
	if claims == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	return claims.UserID, nil
}
