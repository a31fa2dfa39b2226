// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides ID generation and caller authentication.

# User Tokens

User tokens bind a user ID to an HMAC-SHA256 signature:

	token := auth.GenerateUserToken(userID, salt)
	userID, err := auth.ParseUserToken(token, salt)

The token is "<userID>.<signature>" with the signature URL-safe base64
encoded without padding. Since it's deterministic, the same user ID and salt
always produce the same token. This allows validation without storing the
token in the database. Clients send it as "Authorization: Bearer <token>".

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
