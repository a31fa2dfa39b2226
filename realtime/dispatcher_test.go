// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/models"
)

// counterSource reports the number of changes made so far as TotalVotes
type counterSource struct {
	changes atomic.Int32
	calls   atomic.Int32
	delay   time.Duration
	block   chan struct{}
	fail    atomic.Int32 // number of calls left to fail
	err     error
}

func (s *counterSource) Results(ctx context.Context, pollID string) (models.PollResult, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.fail.Load() > 0 {
		s.fail.Add(-1)
		return models.PollResult{}, s.err
	}
	total := int(s.changes.Load())
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return models.PollResult{PollID: pollID, TotalVotes: total}, nil
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[string][]int
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{sent: make(map[string][]int)}
}

func (b *recordingBroadcaster) Broadcast(pollID string, result models.PollResult) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[pollID] = append(b.sent[pollID], result.TotalVotes)
	return 1
}

func (b *recordingBroadcaster) totals(pollID string) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.sent[pollID]...)
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestDispatcher_OrderedAndComplete publishes many changes concurrently and
// checks that broadcasts for the poll never go backwards and the last one
// reflects every change
func TestDispatcher_OrderedAndComplete(t *testing.T) {
	src := &counterSource{delay: time.Millisecond}
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	const changes = 50
	var wg sync.WaitGroup
	for i := 0; i < changes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// The change is committed before it is published
			src.changes.Add(1)
			d.Publish("p1")
		}()
	}
	wg.Wait()
	closeDispatcher(t, d)

	totals := out.totals("p1")
	if len(totals) == 0 {
		t.Fatal("Expected at least one broadcast")
	}
	for i := 1; i < len(totals); i++ {
		if totals[i] < totals[i-1] {
			t.Fatalf("Broadcasts went backwards: %v", totals)
		}
	}
	if last := totals[len(totals)-1]; last != changes {
		t.Errorf("Expected last broadcast total %d, got %d", changes, last)
	}
}

func TestDispatcher_CoalescesBursts(t *testing.T) {
	src := &counterSource{block: make(chan struct{})}
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	d.Publish("p1")
	// Wait for the worker to be inside Results
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never started")
		}
		time.Sleep(time.Millisecond)
	}

	for i := 0; i < 10; i++ {
		src.changes.Add(1)
		d.Publish("p1")
	}
	close(src.block)
	closeDispatcher(t, d)

	// One pass in flight plus one for everything queued behind it
	if got := src.calls.Load(); got != 2 {
		t.Errorf("Expected 2 recomputations, got %d", got)
	}
	totals := out.totals("p1")
	if len(totals) != 2 || totals[1] != 10 {
		t.Errorf("Expected broadcasts [_ 10], got %v", totals)
	}
}

func TestDispatcher_PublishDoesNotBlock(t *testing.T) {
	src := &counterSource{block: make(chan struct{})}
	d := NewDispatcher(src, newRecordingBroadcaster())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Publish("p1")
			d.Publish("p2")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a busy worker")
	}

	close(src.block)
	closeDispatcher(t, d)
}

func TestDispatcher_IndependentPolls(t *testing.T) {
	src := &counterSource{}
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	src.changes.Add(1)
	d.Publish("p1")
	d.Publish("p2")
	closeDispatcher(t, d)

	if len(out.totals("p1")) == 0 || len(out.totals("p2")) == 0 {
		t.Errorf("Expected broadcasts for both polls, got %v", out.sent)
	}
}

func TestDispatcher_RetriesInternalErrors(t *testing.T) {
	src := &counterSource{err: errors.New("connection reset")}
	src.fail.Store(2)
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	d.Publish("p1")
	closeDispatcher(t, d)

	if got := src.calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
	if got := len(out.totals("p1")); got != 1 {
		t.Errorf("Expected 1 broadcast after retries, got %d", got)
	}
}

func TestDispatcher_KeepsRetryingUntilRecovered(t *testing.T) {
	src := &counterSource{err: errors.New("database unavailable")}
	src.fail.Store(8)
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)
	d.backoff = time.Millisecond
	d.maxBackoff = 5 * time.Millisecond

	src.changes.Add(1)
	d.Publish("p1")

	deadline := time.Now().Add(3 * time.Second)
	for len(out.totals("p1")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("No broadcast after %d failed recomputes", src.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	closeDispatcher(t, d)

	if got := src.calls.Load(); got != 9 {
		t.Errorf("Expected 9 recomputations, got %d", got)
	}
	if totals := out.totals("p1"); len(totals) != 1 || totals[0] != 1 {
		t.Errorf("Expected broadcasts [1], got %v", totals)
	}
}

func TestDispatcher_CloseStopsRetrying(t *testing.T) {
	src := &counterSource{err: errors.New("database unavailable")}
	src.fail.Store(1 << 30)
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)
	d.backoff = time.Hour

	d.Publish("p1")
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never started")
		}
		time.Sleep(time.Millisecond)
	}

	// Close must not wait out the backoff
	closeDispatcher(t, d)

	if got := len(out.totals("p1")); got != 0 {
		t.Errorf("Expected no broadcast, got %d", got)
	}
}

func TestDispatcher_NoRetryForMissingPoll(t *testing.T) {
	src := &counterSource{err: apperr.New(apperr.NotFound, "poll not found")}
	src.fail.Store(5)
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	d.Publish("gone")
	closeDispatcher(t, d)

	if got := src.calls.Load(); got != 1 {
		t.Errorf("Expected 1 attempt, got %d", got)
	}
	if got := len(out.totals("gone")); got != 0 {
		t.Errorf("Expected no broadcast, got %d", got)
	}
}

func TestDispatcher_ClosedDropsPublish(t *testing.T) {
	src := &counterSource{}
	out := newRecordingBroadcaster()
	d := NewDispatcher(src, out)

	closeDispatcher(t, d)
	d.Publish("p1")

	if got := src.calls.Load(); got != 0 {
		t.Errorf("Expected no work after Close, got %d calls", got)
	}
}

func TestDispatcher_CloseHonorsContext(t *testing.T) {
	src := &counterSource{block: make(chan struct{})}
	d := NewDispatcher(src, newRecordingBroadcaster())
	d.Publish("p1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}

	close(src.block)
	closeDispatcher(t, d)
}
