package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TokenPair is an access/refresh token pair as issued by the backend.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User is the backend's user profile representation. The read-only
// metadata fields (isActive, createdAt, lastLogin) only appear in profile
// responses, login responses omit them.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	UserType    string `json:"user_type"`
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
	Active      bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	LastLogin   string `json:"lastLogin"`
}

// FullName joins the user's first and last name, falling back to the
// username when neither is set.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// LoginResult carries everything the backend returns on a successful login.
type LoginResult struct {
	Message string
	Tokens  TokenPair
	User    User
}

// Login exchanges credentials for a token pair. The username field also
// accepts the account's email address.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/users/login/", payload)
	if err != nil {
		return nil, err
	}

	// Older backend revisions only send the top-level token fields, newer
	// ones add the nested tokens object. Prefer the nested form.
	var resp struct {
		Message string     `json:"message"`
		Access  string     `json:"access"`
		Refresh string     `json:"refresh"`
		Tokens  *TokenPair `json:"tokens"`
		User    User       `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	tokens := TokenPair{Access: resp.Access, Refresh: resp.Refresh}
	if resp.Tokens != nil {
		tokens = *resp.Tokens
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return nil, fmt.Errorf("login response missing token pair")
	}

	return &LoginResult{
		Message: resp.Message,
		Tokens:  tokens,
		User:    resp.User,
	}, nil
}

// RefreshTokens trades a refresh token for a new token pair. The backend
// rotates the refresh token, so both fields of the result replace the
// stored pair.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	payload := map[string]string{
		"refresh": refreshToken,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/users/auth/refresh/", payload)
	if err != nil {
		return TokenPair{}, err
	}

	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return TokenPair{}, fmt.Errorf("refresh response missing token pair")
	}
	return pair, nil
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	UserType        string `json:"user_type"`
	PhoneNumber     string `json:"phone_number"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// Register creates a new account. Registration does not sign the account
// in, callers follow up with Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/users/register/", req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Message string `json:"message"`
		User    User   `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse register response: %w", err)
	}
	return &resp.User, nil
}
