package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func staticToken(token string) TokenFunc {
	return func() (string, bool) {
		return token, token != ""
	}
}

func TestLoginPrefersNestedTokens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/users/login/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.Empty(t, r.Header.Get("Authorization"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "alice", creds["username"])
		require.Equal(t, "hunter2", creds["password"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"message": "Login successful",
			"access": "legacy-access",
			"refresh": "legacy-refresh",
			"tokens": {"access": "nested-access", "refresh": "nested-refresh"},
			"user": {"id": 7, "username": "alice", "user_type": "student"}
		}`)
	}))
	defer server.Close()

	client := New(server.URL+"/api", time.Second, nil)
	result, err := client.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "nested-access", result.Tokens.Access)
	require.Equal(t, "nested-refresh", result.Tokens.Refresh)
	require.Equal(t, "Login successful", result.Message)
	require.EqualValues(t, 7, result.User.ID)
	require.Equal(t, "student", result.User.UserType)
}

func TestLoginFallsBackToTopLevelTokens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message": "ok", "access": "a1", "refresh": "r1", "user": {"id": 1}}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	result, err := client.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "a1", result.Tokens.Access)
	require.Equal(t, "r1", result.Tokens.Refresh)
}

func TestLoginRejectsMissingTokens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message": "ok", "user": {"id": 1}}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	_, err := client.Login(context.Background(), "alice", "hunter2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing token pair")
}

func TestLoginSurfacesErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message": "Invalid username/email or password."}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "Invalid username/email or password")
}

func TestRefreshTokens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/auth/refresh/", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "old-refresh", payload["refresh"])

		io.WriteString(w, `{"access": "new-access", "refresh": "new-refresh", "message": "Token refreshed"}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	pair, err := client.RefreshTokens(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, TokenPair{Access: "new-access", Refresh: "new-refresh"}, pair)
}

func TestRefreshTokensRejectsIncompletePair(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access": "new-access"}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	_, err := client.RefreshTokens(context.Background(), "old-refresh")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing token pair")
}

func TestAuthorizationHeader(t *testing.T) {
	t.Parallel()

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"user": {
			"id": 1, "username": "alice", "status": "active",
			"isActive": true, "createdAt": "2025-09-01T10:00:00Z"
		}}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, staticToken("tok-123"))
	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.True(t, user.Active)
	require.Equal(t, "active", user.Status)
	require.Equal(t, "2025-09-01T10:00:00Z", user.CreatedAt)

	// Signed out: the header is omitted entirely.
	client = New(server.URL, time.Second, staticToken(""))
	_, err = client.Profile(context.Background())
	require.NoError(t, err)
	require.Empty(t, gotAuth)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/users/profile/update/", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"phone_number": "0241234567"}`, string(body))

		io.WriteString(w, `{"message": "Profile updated", "user": {"id": 1, "phone_number": "0241234567"}}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, staticToken("tok"))
	user, err := client.UpdateProfile(context.Background(), ProfileUpdate{PhoneNumber: "0241234567"})
	require.NoError(t, err)
	require.Equal(t, "0241234567", user.PhoneNumber)
}

func TestServicesPaginated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/services/", r.URL.Path)
		io.WriteString(w, `{
			"count": 2,
			"results": [
				{"id": 1, "service_name": "Laundry", "base_price": "15.00", "is_available": true},
				{"id": 2, "service_name": "Printing", "base_price": "0.50", "is_available": false}
			]
		}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, staticToken("tok"))
	services, err := client.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	require.Equal(t, "Laundry", services[0].Name)
	require.Equal(t, "15.00", services[0].BasePrice)
	require.False(t, services[1].Available)
}

func TestServicesBareArray(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id": 3, "service_name": "Tutoring", "base_price": "20.00"}]`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, staticToken("tok"))
	services, err := client.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.Equal(t, "Tutoring", services[0].Name)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/register/", r.URL.Path)

		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bob", req.Username)
		require.Equal(t, req.Password, req.PasswordConfirm)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"message": "User created", "user": {"id": 9, "username": "bob", "user_type": "student"}}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	user, err := client.Register(context.Background(), RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.edu",
		Password:        "hunter22",
		PasswordConfirm: "hunter22",
		UserType:        "student",
		PhoneNumber:     "0201234567",
	})
	require.NoError(t, err)
	require.EqualValues(t, 9, user.ID)
}

func TestExcerptTruncatesLongBodies(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 500)
	got := excerpt([]byte(long))
	require.Len(t, got, maxErrorExcerpt+3)
	require.True(t, strings.HasSuffix(got, "..."))
}
