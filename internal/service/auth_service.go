package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/identity"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/internal/validation"
)

var (
	ErrNotAuthenticated  = errors.New("not signed in")
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrInvalidResendKind = errors.New("unknown resend kind")
	ErrIncorrectPassword = &validation.Error{Field: "currentPassword", Message: "Current password is incorrect"}

	errCurrentPasswordMissing = &validation.Error{Field: "currentPassword", Message: "Please enter your current password"}
	errPasswordUnchanged      = &validation.Error{Field: "newPassword", Message: "New password must be different from your current password"}
)

// ResendKind selects which e-mail Resend sends again.
type ResendKind string

const (
	ResendMagicLink ResendKind = "magic_link"
	ResendSignup    ResendKind = "signup"
	ResendReset     ResendKind = "reset"
)

// IdentityProvider is the remote identity service.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	VerifyOTP(ctx context.Context, typ identity.VerifyType, email, token string) (*models.Session, error)
	SignUp(ctx context.Context, p identity.SignUpParams) (*identity.SignUpResult, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	Resend(ctx context.Context, typ identity.ResendType, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*models.User, error)
	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthConfig holds the values sent along with identity requests.
type AuthConfig struct {
	AppName          string
	RedirectURL      string
	ResetRedirectURL string
}

// SignUpOutcome reports whether the new account still needs its e-mail confirmed.
type SignUpOutcome struct {
	User                 models.User `json:"user"`
	ConfirmationRequired bool        `json:"confirmationRequired"`
}

// AuthService validates auth forms locally and delegates to the identity service.
type AuthService struct {
	idp      IdentityProvider
	sessions *session.Manager
	cfg      AuthConfig
	log      *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(idp IdentityProvider, sessions *session.Manager, cfg AuthConfig, log *slog.Logger) *AuthService {
	return &AuthService{
		idp:      idp,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

// SignInWithPassword signs in with e-mail and password.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "AuthService.SignInWithPassword"

	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &validation.Error{Field: "password", Message: "Please enter your password"}
	}

	sess, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.log.WarnContext(ctx, "password sign-in failed", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.sessions.Set(session.SignedIn, *sess)
	s.log.InfoContext(ctx, "user signed in", "user_id", sess.User.ID, "method", "password")
	return sess, nil
}

// SendMagicLink e-mails a magic link and one-time code.
func (s *AuthService) SendMagicLink(ctx context.Context, email string) error {
	const op = "AuthService.SendMagicLink"

	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return err
	}
	if err := s.idp.SignInWithOTP(ctx, email, s.cfg.RedirectURL); err != nil {
		s.log.WarnContext(ctx, "magic link not sent", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.InfoContext(ctx, "magic link sent")
	return nil
}

// VerifyCode completes a magic link sign-in with the e-mailed code.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*models.Session, error) {
	return s.verify(ctx, identity.VerifyEmail, session.SignedIn, email, code)
}

// VerifyRecovery completes a password reset with the e-mailed code.
// The session it returns may only be used to set a new password.
func (s *AuthService) VerifyRecovery(ctx context.Context, email, code string) (*models.Session, error) {
	return s.verify(ctx, identity.VerifyRecovery, session.PasswordRecovery, email, code)
}

func (s *AuthService) verify(ctx context.Context, typ identity.VerifyType, evt session.EventType, email, code string) (*models.Session, error) {
	const op = "AuthService.verify"

	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if err := validation.Code(code); err != nil {
		return nil, err
	}

	sess, err := s.idp.VerifyOTP(ctx, typ, email, code)
	if err != nil {
		s.log.WarnContext(ctx, "code verification failed", "type", typ, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.sessions.Set(evt, *sess)
	s.log.InfoContext(ctx, "code verified", "user_id", sess.User.ID, "type", typ)
	return sess, nil
}

// SignUp creates an account. Unless the identity service auto-confirms,
// the user must confirm the e-mail before signing in.
func (s *AuthService) SignUp(ctx context.Context, name, email, password, confirm string) (*SignUpOutcome, error) {
	const op = "AuthService.SignUp"

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validation.Required("name", name, "Please enter your full name"); err != nil {
		return nil, err
	}
	if err := validation.Email(email); err != nil {
		return nil, err
	}
	if err := validation.NewPassword(password, confirm, true); err != nil {
		return nil, err
	}

	res, err := s.idp.SignUp(ctx, identity.SignUpParams{
		Email:    email,
		Password: password,
		Data: map[string]any{
			"full_name":     name,
			"signup_method": "email",
			"app_name":      s.cfg.AppName,
		},
		RedirectTo: s.cfg.RedirectURL,
	})
	if err != nil {
		s.log.WarnContext(ctx, "sign-up failed", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res.Identities == 0 {
		return nil, ErrAlreadyRegistered
	}

	if res.Session != nil {
		s.sessions.Set(session.SignedIn, *res.Session)
	}
	s.log.InfoContext(ctx, "user signed up", "user_id", res.User.ID, "confirmed", res.Session != nil)
	return &SignUpOutcome{User: res.User, ConfirmationRequired: res.Session == nil}, nil
}

// ResetPassword e-mails a password recovery link.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	const op = "AuthService.ResetPassword"

	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return err
	}
	if err := s.idp.ResetPasswordForEmail(ctx, email, s.cfg.ResetRedirectURL); err != nil {
		s.log.WarnContext(ctx, "password reset not sent", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Resend sends the magic link, signup confirmation or reset e-mail again.
func (s *AuthService) Resend(ctx context.Context, email string, kind ResendKind) error {
	const op = "AuthService.Resend"

	email = strings.TrimSpace(email)
	if err := validation.Email(email); err != nil {
		return err
	}

	var err error
	switch kind {
	case ResendMagicLink:
		err = s.idp.SignInWithOTP(ctx, email, s.cfg.RedirectURL)
	case ResendSignup:
		err = s.idp.Resend(ctx, identity.ResendSignup, email, s.cfg.RedirectURL)
	case ResendReset:
		err = s.idp.ResetPasswordForEmail(ctx, email, s.cfg.ResetRedirectURL)
	default:
		return ErrInvalidResendKind
	}
	if err != nil {
		s.log.WarnContext(ctx, "resend failed", "kind", kind, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePassword sets a new password for the signed-in user, e.g. after recovery.
func (s *AuthService) UpdatePassword(ctx context.Context, password, confirm string) error {
	const op = "AuthService.UpdatePassword"

	sess, ok := s.sessions.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if err := validation.NewPassword(password, confirm, false); err != nil {
		return err
	}

	if err := s.setPassword(ctx, sess, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangePassword replaces the password after proving the current one.
func (s *AuthService) ChangePassword(ctx context.Context, current, password, confirm string) error {
	const op = "AuthService.ChangePassword"

	sess, ok := s.sessions.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if current == "" {
		return errCurrentPasswordMissing
	}
	if err := validation.NewPassword(password, confirm, false); err != nil {
		return err
	}
	if password == current {
		return errPasswordUnchanged
	}

	fresh, err := s.idp.SignInWithPassword(ctx, sess.User.Email, current)
	if err != nil {
		if identity.IsCode(err, "invalid_credentials") || identity.IsCode(err, "invalid_grant") {
			return ErrIncorrectPassword
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.setPassword(ctx, *fresh, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, sess models.Session, password string) error {
	user, err := s.idp.UpdatePassword(ctx, sess.AccessToken, password)
	if err != nil {
		s.log.WarnContext(ctx, "password update failed", "error", err)
		return err
	}
	if user.ID != "" {
		sess.User = *user
	}
	s.sessions.Set(session.UserUpdated, sess)
	s.log.InfoContext(ctx, "password updated", "user_id", sess.User.ID)
	return nil
}

// SignOut ends the session. The local session is dropped even if revoking it remotely fails.
func (s *AuthService) SignOut(ctx context.Context) {
	sess, ok := s.sessions.Current()
	if ok {
		if err := s.idp.SignOut(ctx, sess.AccessToken); err != nil {
			s.log.WarnContext(ctx, "remote sign-out failed", "error", err)
		}
	}
	s.sessions.Clear()
}

// User loads the signed-in user from the identity service and stores the
// result in the session. A rejected access token ends the session.
func (s *AuthService) User(ctx context.Context) (*models.User, error) {
	const op = "AuthService.User"

	sess, ok := s.sessions.CurrentContext(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	user, err := s.idp.GetUser(ctx, sess.AccessToken)
	if err != nil {
		if identity.StatusOf(err) == http.StatusUnauthorized {
			s.log.InfoContext(ctx, "access token rejected, signing out", "user_id", sess.User.ID)
			s.sessions.Clear()
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess.User = *user
	s.sessions.Set(session.UserUpdated, sess)
	return user, nil
}

// Session returns the current session, if any.
func (s *AuthService) Session() (models.Session, bool) {
	return s.sessions.Current()
}
