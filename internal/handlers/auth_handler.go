package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/service"
)

// AuthHandler handles sign-in, sign-up and password requests.
type AuthHandler struct {
	auth *service.AuthService
	log  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type,omitempty"`
}

type signUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type resendRequest struct {
	Email string             `json:"email"`
	Kind  service.ResendKind `json:"kind"`
}

type passwordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SessionResponse is the session state the presentation layer gates screens on.
type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Session       *models.Session `json:"session,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{Authenticated: true, Session: sess}, h.log)
}

// SendMagicLink handles POST /api/auth/otp
func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.SendMagicLink(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Check your email for the login link and code"}, h.log)
}

// Verify handles POST /api/auth/verify. Type "recovery" completes a password reset.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		sess *models.Session
		err  error
	)
	switch req.Type {
	case "", "email":
		sess, err = h.auth.VerifyCode(r.Context(), req.Email, req.Code)
	case "recovery":
		sess, err = h.auth.VerifyRecovery(r.Context(), req.Email, req.Code)
	default:
		WriteError(w, http.StatusBadRequest, "Unknown verification type", h.log)
		return
	}
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{Authenticated: true, Session: sess}, h.log)
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.auth.SignUp(r.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusCreated, out, h.log)
}

// ResetPassword handles POST /api/auth/recover
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Password reset instructions have been sent to your email"}, h.log)
}

// Resend handles POST /api/auth/resend
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.Resend(r.Context(), req.Email, req.Kind); err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Email sent again"}, h.log)
}

// UpdatePassword handles PUT /api/auth/password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.UpdatePassword(r.Context(), req.Password, req.ConfirmPassword); err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Password updated"}, h.log)
}

// ChangePassword handles POST /api/auth/password/change
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.auth.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Password changed"}, h.log)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut(r.Context())
	WriteJSON(w, http.StatusOK, SessionResponse{Authenticated: false}, h.log)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.auth.Session()
	if !ok {
		WriteJSON(w, http.StatusOK, SessionResponse{Authenticated: false}, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{Authenticated: true, Session: &sess}, h.log)
}

// User handles GET /api/auth/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.User(r.Context())
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, user, h.log)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		h.log.Warn("failed to decode auth request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return false
	}
	return true
}
