// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Connecting

Open registers both drivers (lib/pq and modernc.org/sqlite) and pings:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

SQLite connections are limited to one open connection with foreign keys
enabled.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same statements run on PostgreSQL and SQLite.

# Tables

  - app_user: registered users
  - poll: question, publication flag, creator
  - poll_option: choices of a poll, ordered by position
  - vote: one row per (user, poll)

# Relationships

	app_user 1──* poll
	poll 1──* poll_option
	poll 1──* vote
	poll_option 1──* vote
	app_user 1──* vote

Deleting a poll cascades to its options and votes. An option referenced by
a vote cannot be deleted.

# Constraints

  - vote UNIQUE (user_id, poll_id): the single-vote invariant
  - poll_option UNIQUE (poll_id, lower(text)): case-insensitive option text
  - app_user.username UNIQUE
*/
package db
