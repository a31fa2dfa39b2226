// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterUserRequest: username
  - CreatePollRequest: question, options
  - AddOptionRequest: text
  - CastVoteRequest: option_id

# Response Types

Types for JSON responses:

  - RegisterUserResponse: user_id, token
  - CreatePollResponse: poll_id
  - AddOptionResponse: option_id
  - PublishPollResponse: poll_id, published
  - CastVoteResponse: vote, message
  - RetractVoteResponse: vote_id, message
  - StatsResponse: connections, polls
  - ErrorResponse: error, message

# Domain Types

Persisted records:

  - User: registered caller identity
  - Poll: question and publication flag
  - Option: selectable choice, ordered by position
  - Vote: one user's choice within one poll

Derived values:

  - OptionCount: option with its vote count, as read from storage
  - PollResult / OptionResult: tallies and rounded percentages

PollResult is also the data payload of the WebSocket poll_update message,
so its JSON uses camelCase keys (pollId, totalVotes, voteCount) while the
REST types use snake_case.
*/
package models
