// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the live-poll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{...}, cfg)

# Endpoints

Health and live stats:

	GET /health
	GET /stats

Users:

	POST /users - Register, returns a bearer token

Poll management (Authorization: Bearer, creator only):

	POST   /polls                          - Create poll with options
	GET    /polls/{id}                     - Poll and options
	POST   /polls/{id}/options             - Add option
	DELETE /polls/{id}/options/{optionId}  - Delete option
	POST   /polls/{id}/publish             - Open for voting
	POST   /polls/{id}/unpublish           - Stop voting

Voting (Authorization: Bearer):

	POST   /polls/{id}/votes   - Cast vote
	GET    /polls/{id}/my-vote - Caller's vote
	DELETE /votes/{id}         - Retract vote

Results (public, published polls only):

	GET /polls/{id}/results

Live updates:

	GET /ws - WebSocket, see package realtime

# Handler Initialization

The router creates handler instances from the shared components in Deps.
The WebSocket hub is mounted directly and is not wrapped in request logging.
*/
package router
