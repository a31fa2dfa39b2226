// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
	"github.com/danielhkuo/live-poll/voting"
)

type PollHandler struct {
	store    *store.Store
	notifier voting.Notifier
	cfg      cliparse.Config
}

// NewPollHandler creates a PollHandler. Option changes on a poll are
// reported to notifier so live subscribers see the new option list.
func NewPollHandler(st *store.Store, notifier voting.Notifier, cfg cliparse.Config) *PollHandler {
	return &PollHandler{store: st, notifier: notifier, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question := store.NormalizeText(req.Question)
	if question == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Options) < store.MinOptions {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll must have at least 2 options")
		return
	}

	options := make([]string, 0, len(req.Options))
	for _, text := range req.Options {
		text = store.NormalizeText(text)
		if text == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "option text is required")
			return
		}
		options = append(options, text)
	}

	poll, err := h.store.CreatePoll(r.Context(), userID, question, options)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		middleware.ErrorResponse(w, http.StatusConflict, "option texts must be unique")
		return
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "unknown user")
		return
	case err != nil:
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", poll.Poll.ID, "creator_id", userID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID: poll.Poll.ID,
	})
}

// GetPoll handles GET /polls/{id}. Unpublished polls are visible to their
// creator only.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	userID, err := optionalUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	poll, err := h.store.GetPoll(r.Context(), pollID)
	if store.IsNotFound(err) || (err == nil && !poll.Published && poll.CreatorID != userID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	options, err := h.store.ListOptions(r.Context(), pollID)
	if err != nil {
		slog.Error("failed to query options", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithOptions{
		Poll:    poll,
		Options: options,
	})
}

// ownedPoll loads a poll the caller must have created
func (h *PollHandler) ownedPoll(ctx context.Context, pollID, userID string) (models.Poll, error) {
	poll, err := h.store.GetPoll(ctx, pollID)
	if store.IsNotFound(err) {
		return models.Poll{}, apperr.New(apperr.NotFound, "poll not found")
	}
	if err != nil {
		return models.Poll{}, apperr.Wrap(apperr.Internal, "failed to load poll", err)
	}
	if poll.CreatorID != userID {
		return models.Poll{}, apperr.New(apperr.Forbidden, "only the poll creator can modify this poll")
	}
	return poll, nil
}

// AddOption handles POST /polls/{id}/options
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	text := store.NormalizeText(req.Text)
	if text == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	if _, err := h.ownedPoll(r.Context(), pollID, userID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	opt, err := h.store.AddOption(r.Context(), pollID, text)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		middleware.ErrorResponse(w, http.StatusConflict, "an option with this text already exists")
		return
	case store.IsNotFound(err):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case err != nil:
		slog.Error("failed to insert option", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	slog.Info("option added", "poll_id", pollID, "option_id", opt.ID)
	h.notifier.Publish(pollID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddOptionResponse{
		OptionID: opt.ID,
	})
}

// DeleteOption handles DELETE /polls/{id}/options/{optionId}
func (h *PollHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	optionID := r.PathValue("optionId")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if _, err := h.ownedPoll(r.Context(), pollID, userID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	err = h.store.DeleteOption(r.Context(), pollID, optionID)
	switch {
	case store.IsNotFound(err):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	case errors.Is(err, store.ErrInUse):
		middleware.ErrorResponse(w, http.StatusConflict, "cannot delete an option that has votes")
		return
	case errors.Is(err, store.ErrTooFewOptions):
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll must keep at least 2 options")
		return
	case err != nil:
		slog.Error("failed to delete option", "error", err, "poll_id", pollID, "option_id", optionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete option")
		return
	}

	slog.Info("option deleted", "poll_id", pollID, "option_id", optionID)
	h.notifier.Publish(pollID)

	w.WriteHeader(http.StatusNoContent)
}

// PublishPoll handles POST /polls/{id}/publish
func (h *PollHandler) PublishPoll(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// UnpublishPoll handles POST /polls/{id}/unpublish. Existing votes are
// kept; new votes and subscriptions are refused until it is published again.
func (h *PollHandler) UnpublishPoll(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *PollHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	pollID := r.PathValue("id")

	userID, err := currentUser(r, h.store, h.cfg.TokenSalt)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if _, err := h.ownedPoll(r.Context(), pollID, userID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	err = h.store.SetPublished(r.Context(), pollID, published)
	if store.IsNotFound(err) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to update poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	slog.Info("poll publication changed", "poll_id", pollID, "published", published)

	middleware.JSONResponse(w, http.StatusOK, models.PublishPollResponse{
		PollID:    pollID,
		Published: published,
	})
}
