// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package ranking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IamPoi/self-craft-back/internal/platform/respond"
	"github.com/IamPoi/self-craft-back/pkg/convert"
)

// Handler implements the ranking HTTP endpoint.
type Handler struct {
	rankingService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{rankingService: service}
}

// Routes returns a [chi.Router] for the /ranking mount. The leaderboard is
// public; no authentication is required.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.top)
	return router
}

/*
Top returns the leaderboard.

GET /api/v1/ranking?category=&limit=

Response:
  - 200: []Entry: Non-guest users ordered by level, exp, study time
  - 400: ErrInvalidJSON: Unknown category filter
*/
func (handler *Handler) top(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	entries, err := handler.rankingService.TopUsers(request.Context(), Query{
		Category: query.Get("category"),
		Limit:    convert.ToIntD(query.Get("limit"), DefaultLimit),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entries)
}
