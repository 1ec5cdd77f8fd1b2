// Package identity is a client for the hosted identity service
// (a GoTrue-compatible REST API). It issues and revokes sessions; every
// credential check happens remotely.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

const maxResponseBytes = 1 << 20

// Config describes how to reach the identity service.
type Config struct {
	URL        string
	AnonKey    string
	ClientInfo string
	Timeout    time.Duration
}

// Client talks to the identity service REST API.
type Client struct {
	baseURL    string
	anonKey    string
	clientInfo string
	http       *http.Client
	log        *slog.Logger
}

// NewClient creates a new identity client
func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		clientInfo: cfg.ClientInfo,
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
}

// VerifyType selects which kind of one-time token VerifyOTP checks.
type VerifyType string

const (
	VerifyEmail    VerifyType = "email"
	VerifyRecovery VerifyType = "recovery"
)

// ResendType selects which e-mail Resend sends again.
type ResendType string

const ResendSignup ResendType = "signup"

// SignUpParams are the fields sent when creating an account.
type SignUpParams struct {
	Email      string
	Password   string
	Data       map[string]any
	RedirectTo string
}

// SignUpResult is the outcome of SignUp. Session is nil until the address is confirmed.
// Identities is zero when the address already belongs to an account.
type SignUpResult struct {
	User       models.User
	Identities int
	Session    *models.Session
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	Identities   []struct {
		ID string `json:"id"`
	} `json:"identities"`
}

func (u userResponse) toModel() models.User {
	user := models.User{ID: u.ID, Email: u.Email}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		user.FullName = name
	}
	return user
}

type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// signUpResponse covers both shapes: a session when confirmation is off,
// a bare user when it is on.
type signUpResponse struct {
	sessionResponse
	userResponse
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignInWithPassword exchanges e-mail and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "identity.SignInWithPassword"

	var resp sessionResponse
	body := map[string]string{"email": email, "password": password}
	query := url.Values{"grant_type": {"password"}}
	if err := c.do(ctx, http.MethodPost, "/token", query, "", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.toSession(resp), nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	const op = "identity.RefreshSession"

	var resp sessionResponse
	body := map[string]string{"refresh_token": refreshToken}
	query := url.Values{"grant_type": {"refresh_token"}}
	if err := c.do(ctx, http.MethodPost, "/token", query, "", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.toSession(resp), nil
}

// SignInWithOTP e-mails a magic link and one-time code. New addresses get an account.
func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	const op = "identity.SignInWithOTP"

	body := map[string]any{"email": email, "create_user": true}
	if err := c.do(ctx, http.MethodPost, "/otp", redirect(redirectTo), "", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyOTP checks a one-time code and returns the session it unlocks.
func (c *Client) VerifyOTP(ctx context.Context, typ VerifyType, email, token string) (*models.Session, error) {
	const op = "identity.VerifyOTP"

	var resp sessionResponse
	body := map[string]string{"type": string(typ), "email": email, "token": token}
	if err := c.do(ctx, http.MethodPost, "/verify", nil, "", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.toSession(resp), nil
}

// SignUp creates an account and triggers the confirmation e-mail.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*SignUpResult, error) {
	const op = "identity.SignUp"

	var resp signUpResponse
	body := map[string]any{"email": p.Email, "password": p.Password}
	if len(p.Data) > 0 {
		body["data"] = p.Data
	}
	if err := c.do(ctx, http.MethodPost, "/signup", redirect(p.RedirectTo), "", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &SignUpResult{}
	u := resp.userResponse
	if resp.sessionResponse.User != nil {
		u = *resp.sessionResponse.User
	}
	result.User = u.toModel()
	result.Identities = len(u.Identities)
	if resp.AccessToken != "" {
		result.Session = c.toSession(resp.sessionResponse)
	}
	return result, nil
}

// ResetPasswordForEmail sends a password recovery e-mail.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	const op = "identity.ResetPasswordForEmail"

	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/recover", redirect(redirectTo), "", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Resend sends the message selected by typ again.
func (c *Client) Resend(ctx context.Context, typ ResendType, email, redirectTo string) error {
	const op = "identity.Resend"

	body := map[string]string{"type": string(typ), "email": email}
	if err := c.do(ctx, http.MethodPost, "/resend", redirect(redirectTo), "", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePassword sets a new password for the session's user.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (*models.User, error) {
	const op = "identity.UpdatePassword"

	var resp userResponse
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPut, "/user", nil, accessToken, body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := resp.toModel()
	return &user, nil
}

// GetUser returns the user behind accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "identity.GetUser"

	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := resp.toModel()
	return &user, nil
}

// SignOut revokes the session's refresh tokens.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	const op = "identity.SignOut"

	if err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func redirect(to string) url.Values {
	if to == "" {
		return nil
	}
	return url.Values{"redirect_to": {to}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	bearer := c.anonKey
	if token != "" {
		bearer = token
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if c.clientInfo != "" {
		req.Header.Set("X-Client-Info", c.clientInfo)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("identity request failed", "method", method, "path", path, "error", err)
		return &Error{Code: CodeNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Status: resp.StatusCode, Code: CodeNetwork, Message: err.Error(), Err: err}
	}

	c.log.Debug("identity request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) toSession(r sessionResponse) *models.Session {
	s := &models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if r.User != nil {
		s.User = r.User.toModel()
	}

	if s.ExpiresAt.IsZero() || s.User.ID == "" {
		claims := &accessClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(r.AccessToken, claims); err != nil {
			c.log.Warn("access token claims unreadable", "error", err)
			return s
		}
		if s.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		if s.User.ID == "" {
			s.User.ID = claims.Subject
		}
		if s.User.Email == "" {
			s.User.Email = claims.Email
		}
	}
	return s
}
