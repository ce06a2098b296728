// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IamPoi/self-craft-back/internal/platform/middleware"
	requestutil "github.com/IamPoi/self-craft-back/internal/platform/request"
	"github.com/IamPoi/self-craft-back/internal/platform/respond"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

// Handler implements the badge HTTP endpoints. Every route operates on the
// calling principal's own badges.
type Handler struct {
	badgeService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{badgeService: service}
}

// Routes returns a [chi.Router] for the /badges mount.
//
// # Endpoints
//   - GET  /               : Lists badges (type filter + pagination).
//   - POST /               : Grants a badge directly.
//   - POST /check          : Runs the automatic rules for the caller.
//   - GET  /stats/summary  : Aggregates the collection.
//   - GET/PUT/DELETE /{badge_id}
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Post("/", handler.grant)
	router.Post("/check", handler.check)
	router.Get("/stats/summary", handler.summary)
	router.Get("/{badge_id}", handler.get)
	router.Put("/{badge_id}", handler.update)
	router.Delete("/{badge_id}", handler.remove)

	return router
}

// # Request Payloads

type grantRequest struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Score       *string `json:"score"`
	GainedExp   int     `json:"gained_exp"`
}

type updateRequest struct {
	Description *string `json:"description"`
	Score       *string `json:"score"`
}

type checkResponse struct {
	NewBadges int `json:"new_badges"`
}

// list returns the caller's badges, newest first.
//
// GET /api/v1/badges?type=&page=&limit=
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	badges, meta, err := handler.badgeService.List(
		request.Context(), uid,
		request.URL.Query().Get("type"),
		pagination.FromRequest(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, badges, meta)
}

/*
Grant creates a badge directly for the caller.

POST /api/v1/badges

Response:
  - 201: Badge: The granted badge
  - 400: ErrInvalidJSON: Unknown type or negative reward
  - 409: ErrConflict: Badge already held for (type, name)
*/
func (handler *Handler) grant(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input grantRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	badge, err := handler.badgeService.Grant(request.Context(), uid, ManualGrantInput{
		Type:        input.Type,
		Name:        input.Name,
		Description: input.Description,
		Score:       input.Score,
		GainedExp:   input.GainedExp,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, badge)
}

/*
Check runs the automatic badge rules for the caller.

POST /api/v1/badges/check

Description: Safe to call repeatedly; already-held badges are skipped.

Response:
  - 200: checkResponse: Count of newly granted badges
*/
func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	granted, err := handler.badgeService.CheckAutoBadges(request.Context(), uid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, checkResponse{NewBadges: granted})
}

// summary aggregates the caller's badge collection.
//
// GET /api/v1/badges/stats/summary
func (handler *Handler) summary(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	summary, err := handler.badgeService.StatsSummary(request.Context(), uid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, summary)
}

// get returns one owned badge.
//
// GET /api/v1/badges/{badge_id}
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	badge, err := handler.badgeService.Get(request.Context(), uid, requestutil.Param(request, "badge_id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, badge)
}

// update edits the descriptive fields of an owned badge.
//
// PUT /api/v1/badges/{badge_id}
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	badge, err := handler.badgeService.Update(request.Context(), uid, requestutil.Param(request, "badge_id"), UpdateInput{
		Description: input.Description,
		Score:       input.Score,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, badge)
}

// remove deletes an owned badge.
//
// DELETE /api/v1/badges/{badge_id}
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.badgeService.Delete(request.Context(), uid, requestutil.Param(request, "badge_id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
