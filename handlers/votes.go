// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
	"github.com/danielhkuo/live-poll/voting"
)

type VoteHandler struct {
	store   *store.Store
	service *voting.Service
	cfg     cliparse.Config
}

func NewVoteHandler(st *store.Store, service *voting.Service, cfg cliparse.Config) *VoteHandler {
	return &VoteHandler{store: st, service: service, cfg: cfg}
}

// CastVote handles POST /polls/{id}/votes
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	vote, err := h.service.CastVote(r.Context(), pollID, req.OptionID, userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		Vote:    vote,
		Message: "vote recorded",
	})
}

// RetractVote handles DELETE /votes/{id}
func (h *VoteHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	voteID := r.PathValue("id")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	vote, err := h.service.RetractVote(r.Context(), voteID, userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RetractVoteResponse{
		VoteID:  vote.ID,
		Message: "vote retracted",
	})
}

// MyVote handles GET /polls/{id}/my-vote
func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	vote, err := h.service.MyVote(r.Context(), pollID, userID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, vote)
}
