// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package app wires the live-poll components together.

New builds everything over an open database and is what tests use:

	a := app.New(conn, cfg)
	srv := httptest.NewServer(a.Handler)
	defer a.Close(ctx)

CreateApp wraps the same graph in an fx application for the server binary.
Start opens the database, creates the schema, and starts listening. Stop
runs in reverse: HTTP shutdown, then App.Close (drain the dispatcher,
disconnect WebSocket clients), then the database is closed.

	fx.New(app.CreateApp(cfg)).Run()
*/
package app
