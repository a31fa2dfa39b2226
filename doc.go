// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the live-poll API server.

live-poll runs single-choice polls and pushes live results to every
WebSocket client watching a poll as votes arrive.

# Starting the Server

The server reads CLI flags, environment variables, and an optional .env
file:

	DATABASE_URL=polls.db TOKEN_SALT=dev go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --token-salt dev

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - TOKEN_SALT (--token-salt): Secret for user bearer tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - RETRACTION_WINDOW (--retraction-window): How long votes can be retracted (default: 1h)
  - LOG_LEVEL (--log-level): debug, info, warn, error (default: info)
  - LOG_FORMAT (--log-format): text or json (default: text)

# Architecture

Components are built and started by package app:

  - voting: Vote admission and result aggregation
  - realtime: Subscription registry, WebSocket hub, broadcast dispatcher
  - store: SQL persistence
  - handlers: HTTP request handlers (users, polls, votes, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, bearer auth
  - apperr: Error kinds and their HTTP statuses
  - models: Request/response and domain types
  - auth: ID and token generation
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
