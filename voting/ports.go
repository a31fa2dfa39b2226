// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"

	"github.com/danielhkuo/live-poll/models"
)

// PollStore reads polls. GetPoll returns store.ErrNotFound for a missing poll.
type PollStore interface {
	GetPoll(ctx context.Context, id string) (models.Poll, error)
}

// OptionStore reads options and their tallies
type OptionStore interface {
	OptionBelongsToPoll(ctx context.Context, optionID, pollID string) (bool, error)
	OptionsWithVoteCounts(ctx context.Context, pollID string) ([]models.OptionCount, error)
}

// VoteStore persists votes. CreateVote must fail with store.ErrDuplicate
// when the (user, poll) pair already has a vote, atomically with the insert.
type VoteStore interface {
	VoteExistsForUserAndPoll(ctx context.Context, userID, pollID string) (bool, error)
	CreateVote(ctx context.Context, v *models.Vote) error
	GetVote(ctx context.Context, id string) (models.Vote, error)
	GetVoteForUserAndPoll(ctx context.Context, userID, pollID string) (models.Vote, error)
	DeleteVote(ctx context.Context, id string) error
}

// Notifier is told about every poll whose tally changed. Publish must not
// block on delivery.
type Notifier interface {
	Publish(pollID string)
}
