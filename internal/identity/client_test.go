package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{URL: srv.URL, AnonKey: "anon", ClientInfo: "storefront/test"}, log)
}

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestSignInWithPassword(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Unix()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		assert.Equal(t, "storefront/test", r.Header.Get("X-Client-Info"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "secret1", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok",
			"token_type":    "bearer",
			"expires_at":    expiresAt,
			"refresh_token": "ref",
			"user": map[string]any{
				"id":            "user-1",
				"email":         "ada@example.com",
				"user_metadata": map[string]any{"full_name": "Ada Lovelace"},
			},
		})
	})

	s, err := c.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, "ref", s.RefreshToken)
	assert.Equal(t, expiresAt, s.ExpiresAt.Unix())
	assert.Equal(t, "user-1", s.User.ID)
	assert.Equal(t, "Ada Lovelace", s.User.FullName)
}

func TestRefreshSession(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Unix()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-1", body["refresh_token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-2",
			"expires_at":    expiresAt,
			"refresh_token": "ref-2",
			"user":          map[string]any{"id": "user-1", "email": "ada@example.com"},
		})
	})

	s, err := c.RefreshSession(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", s.AccessToken)
	assert.Equal(t, "ref-2", s.RefreshToken)
	assert.Equal(t, expiresAt, s.ExpiresAt.Unix())
	assert.Equal(t, "user-1", s.User.ID)
}

func TestRefreshSession_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`))
	})

	_, err := c.RefreshSession(context.Background(), "used")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestSignInWithPassword_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "error_code shape",
			status:   http.StatusBadRequest,
			body:     `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`,
			wantCode: "invalid_credentials",
			wantMsg:  "Invalid email or password.",
		},
		{
			name:     "oauth shape",
			status:   http.StatusBadRequest,
			body:     `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			wantCode: "invalid_grant",
			wantMsg:  "Invalid email or password.",
		},
		{
			name:     "rate limited without code",
			status:   http.StatusTooManyRequests,
			body:     `{"message":"slow down"}`,
			wantCode: "",
			wantMsg:  "Too many attempts. Please wait a few minutes before trying again.",
		},
		{
			name:     "unknown code",
			status:   http.StatusInternalServerError,
			body:     `not json`,
			wantCode: "",
			wantMsg:  GenericMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
			require.Error(t, err)

			var ierr *Error
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.status, ierr.Status)
			assert.Equal(t, tt.wantCode, ierr.Code)
			assert.Equal(t, tt.wantMsg, Message(err))
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{URL: url, AnonKey: "anon"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := c.SignInWithOTP(context.Background(), "ada@example.com", "")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNetwork))
	assert.Equal(t, NetworkMessage, Message(err))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestSignInWithOTP(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "storefront://auth/callback", r.URL.Query().Get("redirect_to"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, true, body["create_user"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.SignInWithOTP(context.Background(), "ada@example.com", "storefront://auth/callback"))
}

func TestVerifyOTP_ClaimsFallback(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signedToken(t, "user-9", "grace@example.com", exp)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/verify", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "email", body["type"])
		assert.Equal(t, "123456", body["token"])

		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": token, "token_type": "bearer"})
	})

	s, err := c.VerifyOTP(context.Background(), VerifyEmail, "grace@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "user-9", s.User.ID)
	assert.Equal(t, "grace@example.com", s.User.Email)
	assert.True(t, s.ExpiresAt.Equal(exp))
}

func TestSignUp(t *testing.T) {
	t.Run("confirmation required", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			data, ok := body["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "Ada", data["full_name"])

			_, _ = w.Write([]byte(`{"id":"u1","email":"ada@example.com","identities":[{"id":"i1"}]}`))
		})

		res, err := c.SignUp(context.Background(), SignUpParams{
			Email:    "ada@example.com",
			Password: "Secret12",
			Data:     map[string]any{"full_name": "Ada"},
		})
		require.NoError(t, err)
		assert.Equal(t, "u1", res.User.ID)
		assert.Equal(t, 1, res.Identities)
		assert.Nil(t, res.Session)
	})

	t.Run("already registered", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u1","email":"ada@example.com","identities":[]}`))
		})

		res, err := c.SignUp(context.Background(), SignUpParams{Email: "ada@example.com", Password: "Secret12"})
		require.NoError(t, err)
		assert.Zero(t, res.Identities)
	})

	t.Run("autoconfirm returns session", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"user":{"id":"u2","email":"b@example.com","identities":[{"id":"i"}]}}`))
		})

		res, err := c.SignUp(context.Background(), SignUpParams{Email: "b@example.com", Password: "Secret12"})
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.Equal(t, "u2", res.User.ID)
		assert.Equal(t, 1, res.Identities)
		assert.Equal(t, "tok", res.Session.AccessToken)
		assert.True(t, res.Session.ExpiresAt.After(time.Now()))
	})
}

func TestUserEndpointsUseAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/auth/v1/user":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "NewPass1", body["password"])
			_, _ = w.Write([]byte(`{"id":"u1","email":"ada@example.com"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"ada@example.com"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	u, err := c.UpdatePassword(ctx, "user-token", "NewPass1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = c.GetUser(ctx, "user-token")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	require.NoError(t, c.SignOut(ctx, "user-token"))
}

func TestResendAndRecover(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		if r.URL.Path == "/auth/v1/resend" {
			assert.Equal(t, "signup", body["type"])
		}
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	require.NoError(t, c.Resend(ctx, ResendSignup, "ada@example.com", ""))
	require.NoError(t, c.ResetPasswordForEmail(ctx, "ada@example.com", "storefront://reset"))
	assert.Equal(t, []string{"/auth/v1/resend", "/auth/v1/recover"}, paths)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(&Error{Status: 400, Code: "invalid_credentials"}))
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(&Error{Status: 429}))
	assert.Equal(t, http.StatusBadGateway, StatusOf(&Error{Status: 500}))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
