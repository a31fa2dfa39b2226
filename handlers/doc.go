// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the live-poll API.

# Handler Types

Each handler is a struct with its dependencies and config:

  - UserHandler: Registration and bearer tokens
  - PollHandler: Poll and option management
  - VoteHandler: Casting, retracting and reading votes
  - ResultsHandler: Current poll results

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(st, dispatcher, cfg)

# Authentication

Mutating endpoints need "Authorization: Bearer <token>" with the token
returned by POST /users. The token is checked against TOKEN_SALT and the
user must still exist. GET /polls/{id} accepts anonymous callers but hides
unpublished polls from everyone except their creator.

# Poll Lifecycle

Polls are created unpublished with at least two options:

	POST /polls                        → CreatePoll
	POST /polls/{id}/options           → AddOption
	DELETE /polls/{id}/options/{optId} → DeleteOption
	POST /polls/{id}/publish           → PublishPoll
	POST /polls/{id}/unpublish         → UnpublishPoll

Option texts are unique per poll ignoring case. An option with votes
cannot be deleted, and a poll never drops below two options.

# Voting

	POST /polls/{id}/votes   → CastVote
	DELETE /votes/{id}       → RetractVote
	GET /polls/{id}/my-vote  → MyVote

Vote rules live in package voting; its apperr kinds become HTTP statuses
through middleware.WriteError. Every accepted change is published to the
dispatcher, which pushes fresh results to WebSocket subscribers.
*/
package handlers
