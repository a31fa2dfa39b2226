// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
)

type userLookup interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// currentUser authenticates the request and checks that the token's user
// still exists
func currentUser(r *http.Request, users userLookup, salt string) (string, error) {
	userID, err := middleware.Authenticate(r, salt)
	if err != nil {
		return "", err
	}

	_, err = users.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.New(apperr.Unauthorized, "unknown user")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	return userID, nil
}

// optionalUser is currentUser for endpoints that also serve anonymous
// callers. It returns "" when no token was sent.
func optionalUser(r *http.Request, users userLookup, salt string) (string, error) {
	if middleware.BearerToken(r) == "" {
		return "", nil
	}
	return currentUser(r, users, salt)
}
