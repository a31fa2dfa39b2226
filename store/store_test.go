// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("expected username alice, got %q", got.Username)
	}

	if _, err := s.CreateUser(ctx, "alice"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for taken username, got %v", err)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	userID, _ := testutil.CreateTestUser(t, db, "creator")

	created, err := s.CreatePoll(ctx, userID, "Lunch?", []string{"Pizza", "Sushi", "Tacos"})
	if err != nil {
		t.Fatalf("CreatePoll() error = %v", err)
	}
	if created.Poll.Published {
		t.Error("new polls should be unpublished")
	}
	if len(created.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(created.Options))
	}

	poll, err := s.GetPoll(ctx, created.Poll.ID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if poll.Question != "Lunch?" || poll.CreatorID != userID {
		t.Errorf("unexpected poll %+v", poll)
	}

	options, err := s.ListOptions(ctx, poll.ID)
	if err != nil {
		t.Fatalf("ListOptions() error = %v", err)
	}
	for i, want := range []string{"Pizza", "Sushi", "Tacos"} {
		if options[i].Text != want || options[i].Position != i+1 {
			t.Errorf("option %d = %+v, want %q at position %d", i, options[i], want, i+1)
		}
	}
}

func TestCreatePoll_DuplicateOptionIgnoresCase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	userID, _ := testutil.CreateTestUser(t, db, "creator")

	_, err := s.CreatePoll(context.Background(), userID, "Color?", []string{"Red", "red"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Nothing is left behind by the failed transaction
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM poll").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no polls after rollback, got %d", n)
	}
}

func TestAddOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	userID, _ := testutil.CreateTestUser(t, db, "creator")
	pollID := testutil.CreateTestPoll(t, db, userID, false)
	testutil.AddTestOption(t, db, pollID, "Yes")
	testutil.AddTestOption(t, db, pollID, "No")

	opt, err := s.AddOption(ctx, pollID, "Maybe")
	if err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	if opt.Position != 3 {
		t.Errorf("expected position 3, got %d", opt.Position)
	}

	if _, err := s.AddOption(ctx, pollID, "MAYBE"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.AddOption(ctx, "missing-poll", "Other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing poll, got %v", err)
	}
}

func TestDeleteOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	userID, _ := testutil.CreateTestUser(t, db, "creator")
	pollID := testutil.CreateTestPoll(t, db, userID, true)
	optA := testutil.AddTestOption(t, db, pollID, "A")
	optB := testutil.AddTestOption(t, db, pollID, "B")
	optC := testutil.AddTestOption(t, db, pollID, "C")
	testutil.CastTestVote(t, db, userID, pollID, optA, time.Now())

	if err := s.DeleteOption(ctx, pollID, optA); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse for option with votes, got %v", err)
	}
	if err := s.DeleteOption(ctx, "other-poll", optC); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for option of another poll, got %v", err)
	}
	if err := s.DeleteOption(ctx, pollID, optC); err != nil {
		t.Fatalf("DeleteOption() error = %v", err)
	}
	if err := s.DeleteOption(ctx, pollID, optB); !errors.Is(err, ErrTooFewOptions) {
		t.Errorf("expected ErrTooFewOptions, got %v", err)
	}

	options, _ := s.ListOptions(ctx, pollID)
	if len(options) != 2 {
		t.Errorf("expected 2 options to remain, got %d", len(options))
	}
}

func TestSetPublished(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	userID, _ := testutil.CreateTestUser(t, db, "creator")
	pollID := testutil.CreateTestPoll(t, db, userID, false)

	if err := s.SetPublished(ctx, pollID, true); err != nil {
		t.Fatalf("SetPublished() error = %v", err)
	}
	poll, _ := s.GetPoll(ctx, pollID)
	if !poll.Published {
		t.Error("expected poll to be published")
	}

	if err := s.SetPublished(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVoteLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	userID, _ := testutil.CreateTestUser(t, db, "voter")
	pollID := testutil.CreateTestPoll(t, db, userID, true)
	optA := testutil.AddTestOption(t, db, pollID, "A")
	optB := testutil.AddTestOption(t, db, pollID, "B")

	exists, err := s.VoteExistsForUserAndPoll(ctx, userID, pollID)
	if err != nil || exists {
		t.Fatalf("expected no vote yet, got exists=%v err=%v", exists, err)
	}

	vote := &models.Vote{UserID: userID, PollID: pollID, OptionID: optA}
	if err := s.CreateVote(ctx, vote); err != nil {
		t.Fatalf("CreateVote() error = %v", err)
	}
	if vote.ID == "" || vote.CreatedAt.IsZero() {
		t.Errorf("CreateVote() should fill ID and CreatedAt, got %+v", vote)
	}

	// Same user, other option of the same poll: rejected by UNIQUE(user_id, poll_id)
	second := &models.Vote{UserID: userID, PollID: pollID, OptionID: optB}
	if err := s.CreateVote(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetVote(ctx, vote.ID)
	if err != nil {
		t.Fatalf("GetVote() error = %v", err)
	}
	if got.OptionID != optA || got.PollID != pollID {
		t.Errorf("unexpected vote %+v", got)
	}
	if d := got.CreatedAt.Sub(vote.CreatedAt); d > time.Second || d < -time.Second {
		t.Errorf("created_at did not round trip: %v vs %v", got.CreatedAt, vote.CreatedAt)
	}

	mine, err := s.GetVoteForUserAndPoll(ctx, userID, pollID)
	if err != nil || mine.ID != vote.ID {
		t.Errorf("GetVoteForUserAndPoll() = %+v, %v", mine, err)
	}

	counts, err := s.OptionsWithVoteCounts(ctx, pollID)
	if err != nil {
		t.Fatalf("OptionsWithVoteCounts() error = %v", err)
	}
	if len(counts) != 2 || counts[0].Votes != 1 || counts[1].Votes != 0 {
		t.Errorf("unexpected counts %+v", counts)
	}

	if err := s.DeleteVote(ctx, vote.ID); err != nil {
		t.Fatalf("DeleteVote() error = %v", err)
	}
	if err := s.DeleteVote(ctx, vote.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateVote_MissingOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	userID, _ := testutil.CreateTestUser(t, db, "voter")
	pollID := testutil.CreateTestPoll(t, db, userID, true)

	err := s.CreateVote(context.Background(), &models.Vote{UserID: userID, PollID: pollID, OptionID: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing option, got %v", err)
	}
}

// TestCreateVote_OptionOfAnotherPoll checks the database itself rejects a
// vote whose option belongs to a different poll
func TestCreateVote_OptionOfAnotherPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	userID, _ := testutil.CreateTestUser(t, db, "voter")
	pollID := testutil.CreateTestPoll(t, db, userID, true)
	testutil.AddTestOption(t, db, pollID, "A")
	otherPoll := testutil.CreateTestPoll(t, db, userID, true)
	foreign := testutil.AddTestOption(t, db, otherPoll, "Elsewhere")

	err := s.CreateVote(context.Background(), &models.Vote{UserID: userID, PollID: pollID, OptionID: foreign})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for option of another poll, got %v", err)
	}
	if n := testutil.CountVotes(t, db, pollID); n != 0 {
		t.Errorf("expected no vote rows, got %d", n)
	}
}

// TestConcurrentDeleteOption deletes every option of a three-option poll at
// once; only one delete may succeed
func TestConcurrentDeleteOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	userID, _ := testutil.CreateTestUser(t, db, "creator")
	pollID := testutil.CreateTestPoll(t, db, userID, false)
	optionIDs := []string{
		testutil.AddTestOption(t, db, pollID, "A"),
		testutil.AddTestOption(t, db, pollID, "B"),
		testutil.AddTestOption(t, db, pollID, "C"),
	}

	var okCount, tooFewCount atomic.Int32
	var wg sync.WaitGroup
	for _, optionID := range optionIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.DeleteOption(context.Background(), pollID, id)
			switch {
			case err == nil:
				okCount.Add(1)
			case errors.Is(err, ErrTooFewOptions):
				tooFewCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(optionID)
	}
	wg.Wait()

	if okCount.Load() != 1 || tooFewCount.Load() != 2 {
		t.Errorf("expected 1 success and 2 ErrTooFewOptions, got %d and %d", okCount.Load(), tooFewCount.Load())
	}
	options, err := s.ListOptions(context.Background(), pollID)
	if err != nil {
		t.Fatalf("ListOptions() error = %v", err)
	}
	if len(options) != MinOptions {
		t.Errorf("expected %d options to remain, got %d", MinOptions, len(options))
	}
}

// TestConcurrentCreateVote verifies that the storage constraint alone lets
// exactly one of several simultaneous inserts for one (user, poll) through
func TestConcurrentCreateVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	userID, _ := testutil.CreateTestUser(t, db, "racer")
	pollID := testutil.CreateTestPoll(t, db, userID, true)
	optA := testutil.AddTestOption(t, db, pollID, "A")
	optB := testutil.AddTestOption(t, db, pollID, "B")

	var okCount, dupCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			opt := optA
			if idx%2 == 1 {
				opt = optB
			}
			err := s.CreateVote(context.Background(), &models.Vote{UserID: userID, PollID: pollID, OptionID: opt})
			switch {
			case err == nil:
				okCount.Add(1)
			case errors.Is(err, ErrDuplicate):
				dupCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if okCount.Load() != 1 || dupCount.Load() != 7 {
		t.Errorf("expected 1 success and 7 duplicates, got %d and %d", okCount.Load(), dupCount.Load())
	}
	if n := testutil.CountVotes(t, db, pollID); n != 1 {
		t.Errorf("expected exactly 1 vote row, got %d", n)
	}
}
