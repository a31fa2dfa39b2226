// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime pushes live poll results to WebSocket clients.

# Components

  - Registry: which connection handles watch which polls
  - Hub: the live connections, served at GET /ws, and Broadcast
  - Dispatcher: turns vote changes into ordered, coalesced broadcasts

Wiring:

	registry := realtime.NewRegistry(st)
	hub := realtime.NewHub(registry)
	dispatcher := realtime.NewDispatcher(aggregator, hub)

The dispatcher is the voting.Notifier: every admitted or retracted vote
calls Publish(pollID), which returns immediately.

# Protocol

All frames are JSON text messages with a "type" field.

Client to server:

	{"type":"subscribe_to_poll","pollId":"..."}
	{"type":"unsubscribe_from_poll","pollId":"..."}
	{"type":"ping"}

Server to client:

	{"type":"subscription_confirmed","pollId":"...","message":"..."}
	{"type":"unsubscription_confirmed","pollId":"...","message":"..."}
	{"type":"poll_update","pollId":"...","data":{...},"timestamp":"..."}
	{"type":"pong","timestamp":"..."}
	{"type":"error","message":"...","timestamp":"..."}

Only published polls may be subscribed to. Malformed frames produce an
error message and leave the connection open. The server also sends
WebSocket pings and drops connections that stop answering.

# Delivery

Delivery is best effort. Broadcast never blocks: a client whose send buffer
is full misses that update and gets the next full snapshot. Each update
carries the complete result, so a missed one is never needed to interpret a
later one.

For a single poll, updates leave the dispatcher in the order they were
computed, and a change is always followed by at least one broadcast computed
after it was committed. A recompute that fails with an internal error is
retried with exponential backoff, capped at five seconds, until it succeeds
or the dispatcher is closed; a poll that no longer exists is dropped.
*/
package realtime
