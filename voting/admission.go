// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
)

// DefaultRetractionWindow is how long after casting a vote may be retracted
const DefaultRetractionWindow = time.Hour

// Service admits and retracts votes. A successful change is reported to the
// Notifier, which recomputes and broadcasts results off the caller's path.
type Service struct {
	polls    PollStore
	options  OptionStore
	votes    VoteStore
	notifier Notifier

	window time.Duration
	now    func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRetractionWindow overrides DefaultRetractionWindow
func WithRetractionWindow(d time.Duration) ServiceOption {
	return func(s *Service) { s.window = d }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(polls PollStore, options OptionStore, votes VoteStore, notifier Notifier, opts ...ServiceOption) *Service {
	s := &Service{
		polls:    polls,
		options:  options,
		votes:    votes,
		notifier: notifier,
		window:   DefaultRetractionWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CastVote records userID's choice of optionID in pollID.
//
// Checks, in order: the poll exists (NotFound), is published (Forbidden),
// the option belongs to it (InvalidInput), and the user has not voted on it
// yet (Conflict). The last check is repeated atomically by the storage
// constraint on (user, poll), so two racing requests cannot both succeed.
func (s *Service) CastVote(ctx context.Context, pollID, optionID, userID string) (models.Vote, error) {
	if pollID == "" || optionID == "" || userID == "" {
		return models.Vote{}, apperr.New(apperr.InvalidInput, "poll id, option id and user id are required")
	}

	poll, err := s.polls.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Vote{}, apperr.New(apperr.NotFound, "poll not found")
	}
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to load poll", err)
	}

	if !poll.Published {
		return models.Vote{}, apperr.New(apperr.Forbidden, "cannot vote on unpublished poll")
	}

	belongs, err := s.options.OptionBelongsToPoll(ctx, optionID, pollID)
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to check option", err)
	}
	if !belongs {
		return models.Vote{}, apperr.New(apperr.InvalidInput, "option does not belong to this poll")
	}

	voted, err := s.votes.VoteExistsForUserAndPoll(ctx, userID, pollID)
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to check existing vote", err)
	}
	if voted {
		return models.Vote{}, apperr.New(apperr.Conflict, "already voted")
	}

	vote := models.Vote{
		UserID:    userID,
		PollID:    pollID,
		OptionID:  optionID,
		CreatedAt: s.now().UTC(),
	}
	err = s.votes.CreateVote(ctx, &vote)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		// lost the race against a concurrent request from the same user
		return models.Vote{}, apperr.New(apperr.Conflict, "already voted")
	case errors.Is(err, store.ErrNotFound):
		// option deleted after the check
		return models.Vote{}, apperr.New(apperr.InvalidInput, "option does not belong to this poll")
	case err != nil:
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to create vote", err)
	}

	slog.Info("vote cast", "poll_id", pollID, "option_id", optionID, "vote_id", vote.ID)
	s.notifier.Publish(pollID)

	return vote, nil
}

// RetractVote deletes a vote owned by userID if it was cast within the
// retraction window
func (s *Service) RetractVote(ctx context.Context, voteID, userID string) (models.Vote, error) {
	if voteID == "" || userID == "" {
		return models.Vote{}, apperr.New(apperr.InvalidInput, "vote id and user id are required")
	}

	vote, err := s.votes.GetVote(ctx, voteID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Vote{}, apperr.New(apperr.NotFound, "vote not found")
	}
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to load vote", err)
	}

	if vote.UserID != userID {
		return models.Vote{}, apperr.New(apperr.Forbidden, "cannot retract another user's vote")
	}

	if s.now().Sub(vote.CreatedAt) > s.window {
		return models.Vote{}, apperr.New(apperr.Forbidden, "retraction window has expired")
	}

	err = s.votes.DeleteVote(ctx, voteID)
	if errors.Is(err, store.ErrNotFound) {
		// retracted concurrently
		return models.Vote{}, apperr.New(apperr.NotFound, "vote not found")
	}
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to delete vote", err)
	}

	slog.Info("vote retracted", "poll_id", vote.PollID, "vote_id", vote.ID)
	s.notifier.Publish(vote.PollID)

	return vote, nil
}

// MyVote returns userID's current vote on pollID
func (s *Service) MyVote(ctx context.Context, pollID, userID string) (models.Vote, error) {
	vote, err := s.votes.GetVoteForUserAndPoll(ctx, userID, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Vote{}, apperr.New(apperr.NotFound, "no vote on this poll")
	}
	if err != nil {
		return models.Vote{}, apperr.Wrap(apperr.Internal, "failed to load vote", err)
	}
	return vote, nil
}
