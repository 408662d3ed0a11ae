package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTokenMalformed marks an access token whose payload cannot be decoded.
//
// Callers treat it the same as "no token": the session is simply not valid.
var ErrTokenMalformed = errors.New("malformed token")

// Claims is the decoded access token payload.
//
// The signature is NOT verified here; the server remains the authority on
// token validity. The client only reads the payload to know when to renew.
type Claims struct {
	// Exp is the expiry as unix seconds.
	Exp int64
	// UserID is the authenticated user id, when the payload carries one.
	UserID int64
	// TokenType is the token class the backend issued (e.g. "access").
	TokenType string
}

type rawClaims struct {
	Exp       *json.Number `json:"exp"`
	UserID    json.Number  `json:"user_id"`
	TokenType string       `json:"token_type"`
}

// DecodeClaims extracts the claims from a JWT-shaped access token.
//
// The token must have at least two dot-separated segments; the second is the
// base64 (URL alphabet, padded or not) JSON payload. exp is required and must
// be an integer. Every malformed input yields an error wrapping
// ErrTokenMalformed, never a panic.
func DecodeClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return Claims{}, fmt.Errorf("%w: expected dot-separated segments", ErrTokenMalformed)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return Claims{}, fmt.Errorf("%w: payload is not base64", ErrTokenMalformed)
		}
	}

	var raw rawClaims
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not JSON", ErrTokenMalformed)
	}
	if raw.Exp == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	exp, err := raw.Exp.Int64()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: exp is not an integer", ErrTokenMalformed)
	}

	claims := Claims{Exp: exp, TokenType: raw.TokenType}
	if raw.UserID != "" {
		// user_id is informational only; a bad value does not invalidate
		// the token.
		if id, err := raw.UserID.Int64(); err == nil {
			claims.UserID = id
		}
	}
	return claims, nil
}
