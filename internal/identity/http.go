// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IamPoi/self-craft-back/internal/platform/middleware"
	requestutil "github.com/IamPoi/self-craft-back/internal/platform/request"
	"github.com/IamPoi/self-craft-back/internal/platform/respond"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
)

// Handler implements the identity HTTP endpoints.
//
// # Scope
//
// Entry points for account creation (guest and external), guest migration,
// principal verification, and profile management. Transport concerns only;
// business rules live in [Service].
type Handler struct {
	identityService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{identityService: service}
}

// AuthRoutes returns a [chi.Router] for the /auth mount.
//
// # Endpoints
//   - POST /guest         : Creates an anonymous account and issues a token.
//   - POST /google        : Signs in via a verified Google profile.
//   - POST /migrate-guest : Converts a guest account into a linked one.
//   - GET  /verify        : Resolves the bearer token back to the user row.
func (handler *Handler) AuthRoutes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/guest", handler.createGuest)
	router.Post("/google", handler.googleLogin)
	router.Post("/migrate-guest", handler.migrateGuest)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/verify", handler.verify)
	})

	return router
}

// UserRoutes returns a [chi.Router] for the /users mount. All endpoints
// require authentication and operate on the calling principal only.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)
	router.Get("/me", handler.me)
	router.Put("/me", handler.updateMe)
	router.Get("/stats", handler.stats)
	router.Post("/add-exp", handler.addExp)

	return router
}

// # Request Payloads

type googleLoginRequest struct {
	ExternalID string  `json:"external_id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	AvatarURL  *string `json:"avatar_url"`
}

type migrateGuestRequest struct {
	GuestUID   string  `json:"guest_uid"`
	ExternalID string  `json:"external_id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	AvatarURL  *string `json:"avatar_url"`
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type addExpRequest struct {
	Exp    int    `json:"exp"`
	Reason string `json:"reason"`
}

/*
CreateGuest provisions an anonymous account.

POST /api/v1/auth/guest

Response:
  - 201: AuthSession: New guest user plus access token
*/
func (handler *Handler) createGuest(writer http.ResponseWriter, request *http.Request) {
	session, err := handler.identityService.CreateGuest(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, session)
}

/*
GoogleLogin signs a user in with a verified Google profile.

POST /api/v1/auth/google

Description: Creates the account on first login, refreshes the descriptive
profile on return visits, and issues an access token either way.

Response:
  - 200: AuthSession: User profile and access token
  - 400: ErrInvalidJSON: Bad input or validation failure
*/
func (handler *Handler) googleLogin(writer http.ResponseWriter, request *http.Request) {
	var input googleLoginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.identityService.LinkOrUpdateExternal(request.Context(), ExternalLoginInput{
		Provider:   ProviderGoogle,
		ExternalID: input.ExternalID,
		Email:      input.Email,
		Name:       input.Name,
		AvatarURL:  input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
MigrateGuest converts the named guest account into a linked one.

POST /api/v1/auth/migrate-guest

Description: Preserves uid, level, exp, sessions, and badges; rewrites only
the provider linkage. Repeating the call fails because the guest flag has
already flipped.

Response:
  - 200: AuthSession: Migrated user and a fresh non-guest token
  - 404: ErrNotFound: No guest account under that uid
  - 409: ErrConflict: External identity already linked elsewhere
*/
func (handler *Handler) migrateGuest(writer http.ResponseWriter, request *http.Request) {
	var input migrateGuestRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.identityService.MigrateGuest(request.Context(), MigrateInput{
		GuestUID:   input.GuestUID,
		Provider:   ProviderGoogle,
		ExternalID: input.ExternalID,
		Email:      input.Email,
		Name:       input.Name,
		AvatarURL:  input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Verify resolves the bearer token back into the full user record.

GET /api/v1/auth/verify

Response:
  - 200: User
  - 401: ErrUnauthorized: Missing or invalid token
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.GetUser(request.Context(), uid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// me returns the calling user's profile.
//
// GET /api/v1/users/me
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	handler.verify(writer, request)
}

/*
UpdateMe applies descriptive profile changes for the calling user.

PUT /api/v1/users/me

Response:
  - 200: User: Updated profile
  - 400: ErrInvalidJSON: Bad input or empty update
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	user, err := handler.identityService.UpdateProfile(request.Context(), uid, ProfileUpdate{
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Stats returns the calling user's dashboard aggregates.

GET /api/v1/users/stats

Response:
  - 200: UserStats: Today/lifetime totals, category and weekly breakdowns
*/
func (handler *Handler) stats(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats, err := handler.identityService.Stats(request.Context(), uid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}

/*
AddExp grants a manual experience delta to the calling user.

POST /api/v1/users/add-exp

Response:
  - 200: ExpGrant: Applied delta plus resulting level/exp
  - 400: ErrInvalidJSON: Missing or non-positive delta
*/
func (handler *Handler) addExp(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input addExpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	grant, err := handler.identityService.AddExperience(request.Context(), uid, input.Exp, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, grant)
}
