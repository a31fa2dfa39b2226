// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).
The WebSocket endpoint is not wrapped; the hub logs connects and
disconnects itself.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type and Authorization.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Render a domain error with the status of its apperr kind:

	middleware.WriteError(w, r, err)

Internal errors are logged and answered with "internal server error".

# Authentication

Callers authenticate with the token returned at registration:

	Authorization: Bearer <user_id>.<signature>

	userID, err := middleware.Authenticate(r, cfg.TokenSalt)

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)
*/
package middleware
