// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"math"

	"github.com/danielhkuo/live-poll/apperr"
	"github.com/danielhkuo/live-poll/models"
	"github.com/danielhkuo/live-poll/store"
)

// Aggregator computes poll results from the persisted votes. It holds no
// state of its own and is safe for concurrent use.
type Aggregator struct {
	polls   PollStore
	options OptionStore
}

func NewAggregator(polls PollStore, options OptionStore) *Aggregator {
	return &Aggregator{polls: polls, options: options}
}

// Results returns the current tally for a poll
func (a *Aggregator) Results(ctx context.Context, pollID string) (models.PollResult, error) {
	return a.results(ctx, pollID, false)
}

// PublishedResults is Results for public readers: unpublished polls are
// refused with Forbidden
func (a *Aggregator) PublishedResults(ctx context.Context, pollID string) (models.PollResult, error) {
	return a.results(ctx, pollID, true)
}

func (a *Aggregator) results(ctx context.Context, pollID string, publishedOnly bool) (models.PollResult, error) {
	if pollID == "" {
		return models.PollResult{}, apperr.New(apperr.InvalidInput, "poll id is required")
	}

	poll, err := a.polls.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PollResult{}, apperr.New(apperr.NotFound, "poll not found")
	}
	if err != nil {
		return models.PollResult{}, apperr.Wrap(apperr.Internal, "failed to load poll", err)
	}

	if publishedOnly && !poll.Published {
		return models.PollResult{}, apperr.New(apperr.Forbidden, "results are only available for published polls")
	}

	counts, err := a.options.OptionsWithVoteCounts(ctx, pollID)
	if err != nil {
		return models.PollResult{}, apperr.Wrap(apperr.Internal, "failed to load vote counts", err)
	}

	return Tally(poll, counts), nil
}

// Tally builds a PollResult from option counts. Percentages are rounded
// half away from zero and are all 0 when nobody voted.
func Tally(poll models.Poll, counts []models.OptionCount) models.PollResult {
	total := 0
	for _, c := range counts {
		total += c.Votes
	}

	result := models.PollResult{
		PollID:     poll.ID,
		Question:   poll.Question,
		TotalVotes: total,
		Options:    make([]models.OptionResult, 0, len(counts)),
	}
	for _, c := range counts {
		result.Options = append(result.Options, models.OptionResult{
			ID:         c.ID,
			Text:       c.Text,
			VoteCount:  c.Votes,
			Percentage: percentage(c.Votes, total),
		})
	}

	return result
}

func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
