// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
)

// ErrNotConnected is returned by Subscribe for a handle that was never
// connected or has already disconnected
var ErrNotConnected = errors.New("connection is not registered")

// PollLookup looks up polls for subscription checks
type PollLookup interface {
	GetPoll(ctx context.Context, id string) (models.Poll, error)
}

// Registry tracks which polls each live connection watches. Connections
// are known only by handle; the transport objects live in the Hub.
//
// Both directions are kept: conns for cleanup on disconnect, subs for
// broadcast lookup. Empty poll entries are pruned. The lock guards the maps
// only and is never held across a storage call.
type Registry struct {
	polls PollLookup

	mu    sync.RWMutex
	conns map[uuid.UUID]map[string]struct{}
	subs  map[string]map[uuid.UUID]struct{}
}

func NewRegistry(polls PollLookup) *Registry {
	return &Registry{
		polls: polls,
		conns: make(map[uuid.UUID]map[string]struct{}),
		subs:  make(map[string]map[uuid.UUID]struct{}),
	}
}

// Connect registers a live connection with no subscriptions
func (r *Registry) Connect(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		r.conns[id] = make(map[string]struct{})
	}
}

// Disconnect removes the connection and all of its subscriptions.
// It reports whether the connection was registered; repeated calls are no-ops.
func (r *Registry) Disconnect(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	polls, ok := r.conns[id]
	if !ok {
		return false
	}
	for pollID := range polls {
		r.removeLocked(id, pollID)
	}
	delete(r.conns, id)
	return true
}

// Subscribe adds pollID to the connection's subscriptions after checking
// that the poll exists and is published. Subscribing twice is a no-op.
func (r *Registry) Subscribe(ctx context.Context, id uuid.UUID, pollID string) error {
	if pollID == "" {
		return apperr.New(apperr.InvalidInput, "pollId is required")
	}

	// Storage first, without the lock
	poll, err := r.polls.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.NotFound, "poll not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to load poll", err)
	}
	if !poll.Published {
		return apperr.New(apperr.Forbidden, "cannot subscribe to unpublished poll")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The connection may have closed while the poll was being loaded
	polls, ok := r.conns[id]
	if !ok {
		return ErrNotConnected
	}
	polls[pollID] = struct{}{}

	set, ok := r.subs[pollID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.subs[pollID] = set
	}
	set[id] = struct{}{}
	return nil
}

// Unsubscribe removes one subscription. It reports whether one existed.
func (r *Registry) Unsubscribe(id uuid.UUID, pollID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	polls, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, ok := polls[pollID]; !ok {
		return false
	}
	delete(polls, pollID)
	r.removeLocked(id, pollID)
	return true
}

func (r *Registry) removeLocked(id uuid.UUID, pollID string) {
	set, ok := r.subs[pollID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.subs, pollID)
	}
}

// Subscribers returns a snapshot of the connections watching pollID.
// The slice is owned by the caller.
func (r *Registry) Subscribers(pollID string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.subs[pollID]
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Subscriptions returns the polls a connection watches
func (r *Registry) Subscriptions(id uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	polls := r.conns[id]
	out := make([]string, 0, len(polls))
	for pollID := range polls {
		out = append(out, pollID)
	}
	return out
}

// Stats returns the number of registered connections and of polls with at
// least one subscriber
func (r *Registry) Stats() models.StatsResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return models.StatsResponse{Connections: len(r.conns), Polls: len(r.subs)}
}
