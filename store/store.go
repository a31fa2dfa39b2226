// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/live-poll/auth"
	"github.com/danielhkuo/live-poll/models"
)

// Store is the SQL persistence layer for users, polls, options and votes.
// It works against PostgreSQL and SQLite with the same statements.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func now() time.Time {
	return time.Now().UTC()
}

// Users

// CreateUser registers a username; ErrDuplicate if it is taken
func (s *Store) CreateUser(ctx context.Context, username string) (models.User, error) {
	id, err := auth.GenerateID(16)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{ID: id, Username: username, CreatedAt: now()}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_user (id, username, created_at)
		VALUES ($1, $2, $3)
	`, user.ID, user.Username, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at FROM app_user WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Polls

// CreatePoll inserts an unpublished poll together with its options.
// Option texts must be unique per poll, ignoring case (ErrDuplicate).
func (s *Store) CreatePoll(ctx context.Context, creatorID, question string, optionTexts []string) (models.PollWithOptions, error) {
	pollID, err := auth.GenerateID(16)
	if err != nil {
		return models.PollWithOptions{}, err
	}

	created := now()
	poll := models.Poll{
		ID:        pollID,
		Question:  question,
		Published: false,
		CreatorID: creatorID,
		CreatedAt: created,
		UpdatedAt: created,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, published, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, poll.ID, poll.Question, poll.Published, poll.CreatorID, poll.CreatedAt, poll.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.PollWithOptions{}, ErrNotFound
		}
		return models.PollWithOptions{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	options := make([]models.Option, 0, len(optionTexts))
	for i, text := range optionTexts {
		optionID, err := auth.GenerateID(12)
		if err != nil {
			return models.PollWithOptions{}, err
		}

		opt := models.Option{ID: optionID, PollID: pollID, Text: text, Position: i + 1}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (id, poll_id, text, position, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, opt.ID, opt.PollID, opt.Text, opt.Position, created)
		if err != nil {
			if isUniqueViolation(err) {
				return models.PollWithOptions{}, ErrDuplicate
			}
			return models.PollWithOptions{}, fmt.Errorf("failed to insert option: %w", err)
		}
		options = append(options, opt)
	}

	if err := tx.Commit(); err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to commit poll: %w", err)
	}

	return models.PollWithOptions{Poll: poll, Options: options}, nil
}

func (s *Store) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	var poll models.Poll
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question, published, creator_id, created_at, updated_at
		FROM poll
		WHERE id = $1
	`, id).Scan(&poll.ID, &poll.Question, &poll.Published, &poll.CreatorID, &poll.CreatedAt, &poll.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	return poll, nil
}

// SetPublished toggles whether a poll accepts votes and subscriptions
func (s *Store) SetPublished(ctx context.Context, pollID string, published bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE poll SET published = $1, updated_at = $2 WHERE id = $3
	`, published, now(), pollID)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}
	return expectRow(res)
}

// Options

func (s *Store) ListOptions(ctx context.Context, pollID string) ([]models.Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, text, position
		FROM poll_option
		WHERE poll_id = $1
		ORDER BY position, id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// OptionBelongsToPoll reports whether optionID exists and belongs to pollID
func (s *Store) OptionBelongsToPoll(ctx context.Context, optionID, pollID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM poll_option WHERE id = $1 AND poll_id = $2
		)
	`, optionID, pollID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check option: %w", err)
	}
	return exists, nil
}

// AddOption appends an option to a poll; ErrDuplicate if the text is
// already used in the poll, ignoring case
func (s *Store) AddOption(ctx context.Context, pollID, text string) (models.Option, error) {
	optionID, err := auth.GenerateID(12)
	if err != nil {
		return models.Option{}, err
	}

	opt := models.Option{ID: optionID, PollID: pollID, Text: text}
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) + 1 FROM poll_option WHERE poll_id = $1
	`, pollID).Scan(&opt.Position)
	if err != nil {
		return models.Option{}, fmt.Errorf("failed to query option position: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO poll_option (id, poll_id, text, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, opt.ID, opt.PollID, opt.Text, opt.Position, now())
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Option{}, ErrDuplicate
		case isForeignKeyViolation(err):
			return models.Option{}, ErrNotFound
		}
		return models.Option{}, fmt.Errorf("failed to insert option: %w", err)
	}

	return opt, nil
}

// DeleteOption removes an option. It fails with ErrInUse when the option has
// votes and with ErrTooFewOptions when the poll would drop below MinOptions.
func (s *Store) DeleteOption(ctx context.Context, pollID, optionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the poll row so concurrent deletes on the same poll serialize
	// and each one counts the options left by the others
	res, err := tx.ExecContext(ctx, `
		UPDATE poll SET updated_at = $1 WHERE id = $2
	`, now(), pollID)
	if err != nil {
		return fmt.Errorf("failed to lock poll: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}

	var belongs bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM poll_option WHERE id = $1 AND poll_id = $2)
	`, optionID, pollID).Scan(&belongs)
	if err != nil {
		return fmt.Errorf("failed to check option: %w", err)
	}
	if !belongs {
		return ErrNotFound
	}

	var voteCount int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE option_id = $1
	`, optionID).Scan(&voteCount)
	if err != nil {
		return fmt.Errorf("failed to count votes: %w", err)
	}
	if voteCount > 0 {
		return ErrInUse
	}

	var optionCount int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM poll_option WHERE poll_id = $1
	`, pollID).Scan(&optionCount)
	if err != nil {
		return fmt.Errorf("failed to count options: %w", err)
	}
	if optionCount <= MinOptions {
		return ErrTooFewOptions
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM poll_option WHERE id = $1`, optionID)
	if err != nil {
		// a vote landed between the count and the delete
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete option: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to commit option delete: %w", err)
	}
	return nil
}

// OptionsWithVoteCounts returns every option of a poll with its vote count,
// in display order. Options without votes are included with zero.
func (s *Store) OptionsWithVoteCounts(ctx context.Context, pollID string) ([]models.OptionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.poll_id, o.text, o.position, COUNT(v.id)
		FROM poll_option o
		LEFT JOIN vote v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.poll_id, o.text, o.position
		ORDER BY o.position, o.id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option counts: %w", err)
	}
	defer rows.Close()

	counts := []models.OptionCount{}
	for rows.Next() {
		var oc models.OptionCount
		if err := rows.Scan(&oc.ID, &oc.PollID, &oc.Text, &oc.Position, &oc.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option count: %w", err)
		}
		counts = append(counts, oc)
	}
	return counts, rows.Err()
}

// Votes

// VoteExistsForUserAndPoll reports whether the user already voted on the poll
func (s *Store) VoteExistsForUserAndPoll(ctx context.Context, userID, pollID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM vote WHERE user_id = $1 AND poll_id = $2
		)
	`, userID, pollID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return exists, nil
}

// CreateVote inserts a vote. A second vote by the same user on the same
// poll fails with ErrDuplicate; a vote for a missing option or user fails
// with ErrNotFound. ID and CreatedAt are filled in when empty.
func (s *Store) CreateVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		id, err := auth.GenerateID(16)
		if err != nil {
			return err
		}
		v.ID = id
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vote (id, user_id, poll_id, option_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ID, v.UserID, v.PollID, v.OptionID, v.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicate
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *Store) GetVote(ctx context.Context, id string) (models.Vote, error) {
	return s.scanVote(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, poll_id, option_id, created_at FROM vote WHERE id = $1
	`, id))
}

func (s *Store) GetVoteForUserAndPoll(ctx context.Context, userID, pollID string) (models.Vote, error) {
	return s.scanVote(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, poll_id, option_id, created_at
		FROM vote
		WHERE user_id = $1 AND poll_id = $2
	`, userID, pollID))
}

func (s *Store) scanVote(row *sql.Row) (models.Vote, error) {
	var v models.Vote
	err := row.Scan(&v.ID, &v.UserID, &v.PollID, &v.OptionID, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Vote{}, ErrNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query vote: %w", err)
	}
	return v, nil
}

// DeleteVote removes a vote; ErrNotFound if it was already gone
func (s *Store) DeleteVote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vote WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NormalizeText trims option and question text for storage
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound)
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
