// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting admits votes and computes poll results.

# Admission

Service enforces one vote per user per poll:

	svc := voting.NewService(st, st, st, dispatcher)
	vote, err := svc.CastVote(ctx, pollID, optionID, userID)

The existing-vote lookup only fails fast. Correctness comes from the
UNIQUE (user_id, poll_id) constraint; a violation reported by the store
as store.ErrDuplicate becomes an apperr.Conflict.

Votes may be retracted by their owner within the retraction window
(one hour unless configured with WithRetractionWindow):

	vote, err := svc.RetractVote(ctx, voteID, userID)

Every successful cast or retraction calls Notifier.Publish with the poll ID.

# Results

Aggregator reads option tallies and derives percentages:

	agg := voting.NewAggregator(st, st)
	result, err := agg.Results(ctx, pollID)

Tally is the pure part, usable without storage.

# Errors

All returned errors are *apperr.Error values with kinds NotFound,
InvalidInput, Forbidden, Conflict, or Internal for storage faults.
*/
package voting
