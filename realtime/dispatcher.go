// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/models"
)

// ResultSource computes the current result of a poll
type ResultSource interface {
	Results(ctx context.Context, pollID string) (models.PollResult, error)
}

// Broadcaster delivers a result to a poll's subscribers
type Broadcaster interface {
	Broadcast(pollID string, result models.PollResult) int
}

const (
	defaultComputeTimeout = 5 * time.Second
	defaultRetryBackoff   = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// Dispatcher turns "poll changed" signals into result broadcasts without
// blocking the caller.
//
// Each poll has at most one worker. A Publish that arrives while the worker
// is busy marks the poll pending and the worker runs one more pass after the
// current one, so:
//   - updates for one poll are computed and sent in order, each from a fresh read
//   - the last broadcast always reflects every change published before it
//   - bursts collapse into fewer recomputations
//
// Internal failures are retried with capped exponential backoff until the
// recompute succeeds or the dispatcher is closed. Other kinds (a deleted
// poll) are dropped.
type Dispatcher struct {
	results ResultSource
	out     Broadcaster
	timeout time.Duration

	backoff    time.Duration
	maxBackoff time.Duration

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

type lane struct {
	pending bool
}

func NewDispatcher(results ResultSource, out Broadcaster) *Dispatcher {
	return &Dispatcher{
		results: results,
		out:     out,
		timeout: defaultComputeTimeout,

		backoff:    defaultRetryBackoff,
		maxBackoff: defaultMaxBackoff,

		lanes: make(map[string]*lane),
		stop:  make(chan struct{}),
	}
}

// Publish schedules a recompute and broadcast for pollID. It returns at once.
func (d *Dispatcher) Publish(pollID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		slog.Warn("dispatcher closed, dropping update", "poll_id", pollID)
		return
	}

	if l, ok := d.lanes[pollID]; ok {
		l.pending = true
		return
	}

	d.lanes[pollID] = &lane{}
	d.wg.Add(1)
	go d.run(pollID)
}

func (d *Dispatcher) run(pollID string) {
	defer d.wg.Done()

	for {
		d.deliver(pollID)

		d.mu.Lock()
		l := d.lanes[pollID]
		if !l.pending {
			delete(d.lanes, pollID)
			d.mu.Unlock()
			return
		}
		l.pending = false
		d.mu.Unlock()
	}
}

func (d *Dispatcher) deliver(pollID string) {
	wait := d.backoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		result, err := d.results.Results(ctx, pollID)
		cancel()

		if err == nil {
			d.out.Broadcast(pollID, result)
			return
		}
		if apperr.KindOf(err) != apperr.Internal {
			slog.Warn("dropping poll update", "error", err, "poll_id", pollID)
			return
		}

		slog.Error("failed to compute poll results, retrying",
			"error", err, "poll_id", pollID, "attempt", attempt, "backoff", wait)

		select {
		case <-d.stop:
			slog.Warn("dispatcher closed, abandoning retry", "poll_id", pollID)
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, d.maxBackoff)

		// The next attempt reads state committed before any Publish seen so far
		d.mu.Lock()
		d.lanes[pollID].pending = false
		d.mu.Unlock()
	}
}

// Close stops accepting work and waits for in-flight broadcasts until ctx
// is done. Lanes waiting to retry a failed recompute give up.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
