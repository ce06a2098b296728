// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package worklog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IamPoi/self-craft-back/internal/platform/middleware"
	requestutil "github.com/IamPoi/self-craft-back/internal/platform/request"
	"github.com/IamPoi/self-craft-back/internal/platform/respond"
	"github.com/IamPoi/self-craft-back/internal/platform/validate"
	"github.com/IamPoi/self-craft-back/pkg/pagination"
)

// Handler implements the session HTTP endpoints. Every route operates on
// the calling principal's own sessions.
type Handler struct {
	sessionService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{sessionService: service}
}

// Routes returns a [chi.Router] for the /sessions mount.
//
// # Endpoints
//   - POST /start           : Opens the single allowed active session.
//   - POST /{work_id}/stop  : Closes it, applying experience atomically.
//   - GET  /                : Lists closed sessions (filter + pagination).
//   - GET  /active          : Returns the open session, if any.
//   - GET  /stats/category  : Per-category aggregate over closed sessions.
//   - GET/PUT/DELETE /{work_id}
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Get("/active", handler.active)
	router.Get("/stats/category", handler.categoryStats)
	router.Post("/start", handler.start)
	router.Post("/{work_id}/stop", handler.stop)
	router.Get("/{work_id}", handler.get)
	router.Put("/{work_id}", handler.update)
	router.Delete("/{work_id}", handler.remove)

	return router
}

// # Request Payloads

type startRequest struct {
	Category string  `json:"category"`
	Title    *string `json:"title"`
}

type stopRequest struct {
	Duration int `json:"duration"`
	BonusExp int `json:"bonus_exp"`
}

type updateRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
}

/*
Start opens a new work session.

POST /api/v1/sessions/start

Response:
  - 201: WorkSession: The open session
  - 400: ErrInvalidJSON: Unknown category or bad input
  - 409: ErrConflict: An active session already exists
*/
func (handler *Handler) start(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input startRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.sessionService.Start(request.Context(), uid, StartInput{
		Category: Category(input.Category),
		Title:    input.Title,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, session)
}

/*
Stop closes the named open session.

POST /api/v1/sessions/{work_id}/stop

Description: Fixes duration and gained_exp, applies the experience, and runs
the automatic badge rules as a follow-up. A second stop is a 404.

Response:
  - 200: StopResult: Closed session plus resulting level/exp
  - 404: ErrNotFound: No open session under that id for this user
*/
func (handler *Handler) stop(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input stopRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	result, err := handler.sessionService.Stop(request.Context(), uid, StopInput{
		WorkID:   requestutil.Param(request, "work_id"),
		Duration: input.Duration,
		BonusExp: input.BonusExp,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
List returns the caller's closed sessions, newest first.

GET /api/v1/sessions?category=&from=&to=&page=&limit=

Response:
  - 200: []WorkSession with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()
	page := pagination.FromRequest(request)

	sessions, meta, err := handler.sessionService.List(request.Context(), uid, ListInput{
		Category: query.Get("category"),
		From:     query.Get("from"),
		To:       query.Get("to"),
	}, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, sessions, meta)
}

// active returns the caller's open session, or null when idle.
//
// GET /api/v1/sessions/active
func (handler *Handler) active(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.sessionService.Active(request.Context(), uid)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

// get returns one owned session.
//
// GET /api/v1/sessions/{work_id}
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.sessionService.Get(request.Context(), uid, requestutil.Param(request, "work_id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Update edits the descriptive fields of an owned session.

PUT /api/v1/sessions/{work_id}

Description: Title and category only. Timing and reward fields are fixed at
close and cannot be edited through any endpoint.

Response:
  - 200: WorkSession: Updated session
  - 404: ErrNotFound: Unknown id or not the caller's session
*/
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

	session, err := handler.sessionService.Update(request.Context(), uid, requestutil.Param(request, "work_id"), UpdateInput{
		Title:    input.Title,
		Category: input.Category,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

// remove deletes an owned session.
//
// DELETE /api/v1/sessions/{work_id}
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessionService.Delete(request.Context(), uid, requestutil.Param(request, "work_id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// categoryStats returns per-category totals over closed sessions.
//
// GET /api/v1/sessions/stats/category?from=&to=
func (handler *Handler) categoryStats(writer http.ResponseWriter, request *http.Request) {
	uid, err := requestutil.RequiredUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()
	totals, err := handler.sessionService.CategoryStats(request.Context(), uid, ListInput{
		From: query.Get("from"),
		To:   query.Get("to"),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, totals)
}
