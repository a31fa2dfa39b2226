// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/voting"
)

type ResultsHandler struct {
	aggregator *voting.Aggregator
}

func NewResultsHandler(aggregator *voting.Aggregator) *ResultsHandler {
	return &ResultsHandler{aggregator: aggregator}
}

// GetResults handles GET /polls/{id}/results. It returns the same payload
// that subscribers receive in poll_update messages.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.aggregator.PublishedResults(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, result)
}
