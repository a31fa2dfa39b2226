// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/live-poll/auth"
	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/db"
)

// TestDBURL is an in-memory SQLite database, private to each connection pool
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema.
// The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      TestDBURL,
		DatabaseType:     cliparse.DatabaseSQLite,
		TokenSalt:        "test-token-salt",
		RetractionWindow: time.Hour,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// CreateTestUser inserts a user and returns its ID and bearer token
func CreateTestUser(t *testing.T, db *sql.DB, username string) (userID, token string) {
	t.Helper()

	userID, _ = auth.GenerateID(16)
	_, err := db.Exec(`
		INSERT INTO app_user (id, username, created_at)
		VALUES ($1, $2, $3)
	`, userID, username, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID, auth.GenerateUserToken(userID, GetTestConfig().TokenSalt)
}

// CreateTestPoll creates a poll owned by creatorID and returns its ID
func CreateTestPoll(t *testing.T, db *sql.DB, creatorID string, published bool) string {
	t.Helper()

	pollID, _ := auth.GenerateID(16)
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO poll (id, question, published, creator_id, created_at, updated_at)
		VALUES ($1, 'Test question?', $2, $3, $4, $4)
	`, pollID, published, creatorID, now)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, db *sql.DB, pollID, text string) string {
	t.Helper()

	optionID, _ := auth.GenerateID(12)
	_, err := db.Exec(`
		INSERT INTO poll_option (id, poll_id, text, position, created_at)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM poll_option WHERE poll_id = $2),
			$4)
	`, optionID, pollID, text, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CastTestVote inserts a vote directly, bypassing admission checks
func CastTestVote(t *testing.T, db *sql.DB, userID, pollID, optionID string, createdAt time.Time) string {
	t.Helper()

	voteID, _ := auth.GenerateID(16)
	_, err := db.Exec(`
		INSERT INTO vote (id, user_id, poll_id, option_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, userID, pollID, optionID, createdAt.UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// CountVotes returns the number of vote rows for a poll
func CountVotes(t *testing.T, db *sql.DB, pollID string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM vote WHERE poll_id = $1`, pollID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// BearerHeader returns request headers carrying a user token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
