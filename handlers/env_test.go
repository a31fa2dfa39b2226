// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/store"
	"github.com/danielhkuo/live-poll/testutil"
	"github.com/danielhkuo/live-poll/voting"
)

// recordingNotifier collects Publish calls
type recordingNotifier struct {
	mu    sync.Mutex
	polls []string
}

func (n *recordingNotifier) Publish(pollID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.polls = append(n.polls, pollID)
}

func (n *recordingNotifier) count(pollID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, p := range n.polls {
		if p == pollID {
			c++
		}
	}
	return c
}

// testEnv wires every handler over one test database
type testEnv struct {
	db       *sql.DB
	store    *store.Store
	cfg      cliparse.Config
	notifier *recordingNotifier

	users   *UserHandler
	polls   *PollHandler
	votes   *VoteHandler
	results *ResultsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.New(db)
	cfg := testutil.GetTestConfig()
	notifier := &recordingNotifier{}
	service := voting.NewService(st, st, st, notifier, voting.WithRetractionWindow(cfg.RetractionWindow))

	return &testEnv{
		db:       db,
		store:    st,
		cfg:      cfg,
		notifier: notifier,
		users:    NewUserHandler(st, cfg),
		polls:    NewPollHandler(st, notifier, cfg),
		votes:    NewVoteHandler(st, service, cfg),
		results:  NewResultsHandler(voting.NewAggregator(st, st)),
	}
}

// publishedPoll creates a user and a published poll with the given options
func (e *testEnv) publishedPoll(t *testing.T, options ...string) (pollID, creatorToken string, optionIDs []string) {
	t.Helper()

	creatorID, creatorToken := testutil.CreateTestUser(t, e.db, "creator")
	pollID = testutil.CreateTestPoll(t, e.db, creatorID, true)
	for _, text := range options {
		optionIDs = append(optionIDs, testutil.AddTestOption(t, e.db, pollID, text))
	}
	return pollID, creatorToken, optionIDs
}

// serve runs handler with the given path values set on req
func serve(handler http.HandlerFunc, req *http.Request, pathValues map[string]string) *httptest.ResponseRecorder {
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
