// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrBadSignature = errors.New("invalid token signature")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// sign returns the URL-safe HMAC of userID under salt
func sign(userID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(userID))
	sum := h.Sum(nil)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// GenerateUserToken creates a bearer token of the form "<userID>.<signature>".
// It is deterministic, so it never needs to be stored.
func GenerateUserToken(userID, salt string) string {
	return userID + "." + sign(userID, salt)
}

// ParseUserToken verifies a token produced by GenerateUserToken and returns
// the user ID it was issued for
func ParseUserToken(token, salt string) (string, error) {
	userID, sig, ok := strings.Cut(token, ".")
	if !ok || userID == "" || sig == "" {
		return "", ErrInvalidToken
	}

	expected := sign(userID, salt)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", ErrBadSignature
	}
	return userID, nil
}
