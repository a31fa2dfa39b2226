// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL connection string or SQLite file (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - TokenSalt: Secret for user token HMAC (required)
  - RetractionWindow: How long after casting a vote may be retracted (default: 1h)
  - LogLevel: debug, info, warn or error (default: info)
  - LogFormat: text or json (default: text)

# CLI Flags

	-p                  Server port
	-d                  Database URL
	-t                  Database type
	--token-salt        User token salt
	--retraction-window Retraction window (Go duration)
	--log-level         Log level
	--log-format        Log format

# Environment Variables

Flags fall back to environment variables:

	PORT              → -p
	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	TOKEN_SALT        → --token-salt
	RETRACTION_WINDOW → --retraction-window
	LOG_LEVEL         → --log-level
	LOG_FORMAT        → --log-format

CLI flags take precedence over environment variables. LoadDotEnv reads a
.env file into the environment first, without overriding variables that
are already set.

# Example

	// In main.go
	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
*/
package cliparse
