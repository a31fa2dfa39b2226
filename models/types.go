package models

import "time"

// Request types

type RegisterUserRequest struct {
	Username string `json:"username"`
}

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type AddOptionRequest struct {
	Text string `json:"text"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

// Response types

type RegisterUserResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type CreatePollResponse struct {
	PollID string `json:"poll_id"`
}

type AddOptionResponse struct {
	OptionID string `json:"option_id"`
}

type PublishPollResponse struct {
	PollID    string `json:"poll_id"`
	Published bool   `json:"published"`
}

type CastVoteResponse struct {
	Vote    Vote   `json:"vote"`
	Message string `json:"message"`
}

type RetractVoteResponse struct {
	VoteID  string `json:"vote_id"`
	Message string `json:"message"`
}

type StatsResponse struct {
	Connections int `json:"connections"`
	Polls       int `json:"polls"`
}

// Domain types

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Published bool      `json:"published"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Option struct {
	ID       string `json:"id"`
	PollID   string `json:"poll_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

// Vote carries PollID alongside OptionID so storage can enforce one
// vote per (user, poll).
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OptionCount is an option with its current number of votes
type OptionCount struct {
	Option
	Votes int
}

// Result types (shared with the WebSocket protocol, hence camelCase)

type OptionResult struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	VoteCount  int    `json:"voteCount"`
	Percentage int    `json:"percentage"`
}

type PollResult struct {
	PollID     string         `json:"pollId"`
	Question   string         `json:"question"`
	TotalVotes int            `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
