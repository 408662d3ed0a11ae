package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/users/profile/", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		User User `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	return &resp.User, nil
}

// ProfileUpdate holds the writable profile fields. Empty fields are left
// unchanged server side.
type ProfileUpdate struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// UpdateProfile applies a partial profile update and returns the resulting
// profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/users/profile/update/", update)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Message string `json:"message"`
		User    User   `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse profile update response: %w", err)
	}
	return &resp.User, nil
}
