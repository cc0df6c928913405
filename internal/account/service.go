// Package account implements the register, login and dashboard flows on top
// of the identity provider, the profile store and the session store.
package account

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/accountdesk/accountdesk/internal/identity"
	"github.com/accountdesk/accountdesk/internal/profiles"
	"github.com/accountdesk/accountdesk/internal/sessions"
	"github.com/accountdesk/accountdesk/internal/storage"
	"github.com/accountdesk/accountdesk/pkg/apperrors"
	"github.com/accountdesk/accountdesk/pkg/logger"
	"github.com/accountdesk/accountdesk/pkg/metrics"
)

// AvatarStore uploads avatar images and returns a URL for them.
type AvatarStore interface {
	PutAvatar(ctx context.Context, uid string, r io.Reader, size int64, contentType string) (string, error)
}

type Options struct {
	MinPasswordLength    int
	RequireVerifiedEmail bool
}

// Service encapsulates the account flows
type Service struct {
	provider identity.Provider
	profiles *profiles.Service
	sessions *sessions.Service
	avatars  AvatarStore
	opts     Options
}

// NewService wires the flows. avatars may be nil, which disables photo uploads.
func NewService(p identity.Provider, prof *profiles.Service, sess *sessions.Service, avatars AvatarStore, opts Options) *Service {
	if opts.MinPasswordLength < 1 {
		opts.MinPasswordLength = 6
	}
	return &Service{provider: p, profiles: prof, sessions: sess, avatars: avatars, opts: opts}
}

// AvatarsEnabled reports whether photo uploads are configured.
func (s *Service) AvatarsEnabled() bool { return s.avatars != nil }

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type RegisterResult struct {
	UID              string `json:"uid"`
	Email            string `json:"email"`
	VerificationSent bool   `json:"verificationSent"`
	Redirect         string `json:"redirect"`
}

// Register creates the provider account and its profile record, then signs
// the new account out so the user logs in explicitly. A failed profile write
// deletes the provider account again.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	defer func() { metrics.Outcome("register", err) }()

	if verr := ValidateRegistration(in.Email, in.Password, s.opts.MinPasswordLength); verr != nil {
		return nil, verr
	}
	var name string
	if strings.TrimSpace(in.DisplayName) != "" {
		n, verr := NormalizeDisplayName(in.DisplayName)
		if verr != nil {
			return nil, verr
		}
		name = n
	}
	email := strings.TrimSpace(in.Email)

	creds, err := s.provider.SignUp(ctx, email, in.Password)
	if err != nil {
		return nil, providerError(err)
	}
	log := logger.With("uid", creds.UID)
	if creds.IDToken == "" {
		// the follow-up calls below all need an ID token
		uid := creds.UID
		creds, err = s.provider.SignIn(ctx, email, in.Password)
		if err != nil {
			log.Errorw("sign-in after sign-up failed, account left without profile", "error", err)
			return nil, providerError(err).WithDetail("step", "provider")
		}
		if creds.UID == "" {
			creds.UID = uid
		}
	}

	if name != "" {
		if err := s.provider.UpdateProfile(ctx, creds.IDToken, identity.ProfileUpdate{DisplayName: &name}); err != nil {
			s.compensate(ctx, creds)
			return nil, providerError(err).WithDetail("step", "provider")
		}
	}

	sent := true
	if err := s.provider.SendEmailVerification(ctx, creds.IDToken); err != nil {
		log.Warnw("verification email not sent", "error", err)
		sent = false
	}

	if _, err := s.profiles.Create(ctx, creds.UID, email, name); err != nil {
		s.compensate(ctx, creds)
		return nil, storeError("store", err)
	}

	if err := s.provider.SignOut(ctx, creds.UID); err != nil {
		log.Warnw("sign-out after registration failed", "error", err)
	}
	log.Infow("account registered", "verificationSent", sent)
	return &RegisterResult{UID: creds.UID, Email: email, VerificationSent: sent, Redirect: LoginPath}, nil
}

func (s *Service) compensate(ctx context.Context, creds *identity.Credentials) {
	if err := s.provider.DeleteAccount(ctx, creds.IDToken); err != nil {
		logger.Errorf("account: could not delete half-registered account %s: %v", creds.UID, err)
		return
	}
	logger.Warnf("account: deleted half-registered account %s", creds.UID)
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Session  *sessions.Session
	Redirect string
}

// Login signs in with email and password and opens a session. Empty fields
// are rejected without contacting the provider.
func (s *Service) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	defer func() { metrics.Outcome("login", err) }()

	if verr := ValidateCredentials(in.Email, in.Password); verr != nil {
		return nil, verr
	}
	creds, err := s.provider.SignIn(ctx, strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		return nil, providerError(err)
	}

	if s.opts.RequireVerifiedEmail {
		acct, err := s.provider.Lookup(ctx, creds.IDToken)
		if err != nil {
			return nil, providerError(err)
		}
		if !acct.EmailVerified {
			return nil, &apperrors.AppError{
				Type:       apperrors.ErrorTypeAuthentication,
				Message:    ErrEmailNotVerified.Error(),
				StatusCode: http.StatusForbidden,
				Internal:   ErrEmailNotVerified,
			}
		}
	}

	sess, err := s.sessions.Create(ctx, creds)
	if err != nil {
		return nil, &apperrors.AppError{
			Type:       apperrors.ErrorTypeUnavailable,
			Message:    "session store unavailable",
			StatusCode: http.StatusServiceUnavailable,
			Internal:   err,
		}
	}
	if err := s.profiles.RecordLogin(ctx, creds.UID); err != nil {
		logger.Warnf("account: record login for %s: %v", creds.UID, err)
	}
	return &LoginResult{Session: sess, Redirect: DashboardPath}, nil
}

// DashboardView is what the dashboard screen shows.
type DashboardView struct {
	Account *identity.Account `json:"account"`
	Profile *profiles.Profile `json:"profile"`
}

// Dashboard loads the provider account and its profile, creating a default
// profile when none exists yet.
func (s *Service) Dashboard(ctx context.Context, sess *sessions.Session) (*DashboardView, error) {
	acct, err := s.provider.Lookup(ctx, sess.IDToken)
	if err != nil {
		return nil, providerError(err)
	}
	p, err := s.profiles.Ensure(ctx, acct.UID, acct.Email, acct.DisplayName, acct.EmailVerified)
	if err != nil {
		return nil, storeError("store", err)
	}
	return &DashboardView{Account: acct, Profile: p}, nil
}

// UpdateDisplayName writes the provider profile first, then the store. There
// is no rollback: a store failure after a provider success is reported with
// step "store".
func (s *Service) UpdateDisplayName(ctx context.Context, sess *sessions.Session, name string) (_ string, err error) {
	defer func() { metrics.Outcome("update_name", err) }()

	name, verr := NormalizeDisplayName(name)
	if verr != nil {
		return "", verr
	}
	if err := s.provider.UpdateProfile(ctx, sess.IDToken, identity.ProfileUpdate{DisplayName: &name}); err != nil {
		return "", providerError(err).WithDetail("step", "provider")
	}
	if err := s.profiles.SetDisplayName(ctx, sess.UID, name); err != nil {
		if !errors.Is(err, profiles.ErrNotFound) {
			return "", storeError("store", err)
		}
		if _, err := s.profiles.Create(ctx, sess.UID, sess.Email, name); err != nil {
			return "", storeError("store", err)
		}
	}
	return name, nil
}

// ResendVerification sends another verification email unless the address is
// already verified.
func (s *Service) ResendVerification(ctx context.Context, sess *sessions.Session) (err error) {
	defer func() { metrics.Outcome("send_verification", err) }()

	acct, err := s.provider.Lookup(ctx, sess.IDToken)
	if err != nil {
		return providerError(err)
	}
	if acct.EmailVerified {
		return apperrors.NewConflictError("email already verified", nil)
	}
	if err := s.provider.SendEmailVerification(ctx, sess.IDToken); err != nil {
		return providerError(err)
	}
	return nil
}

// UploadPhoto stores an avatar image and points the provider and store
// photo fields at it.
func (s *Service) UploadPhoto(ctx context.Context, sess *sessions.Session, r io.Reader, size int64, contentType string) (_ string, err error) {
	defer func() { metrics.Outcome("upload_photo", err) }()

	if s.avatars == nil {
		return "", apperrors.NewUnavailableError("photo uploads are not configured")
	}
	if size <= 0 || size > storage.MaxAvatarBytes {
		return "", apperrors.NewValidationError("image must be between 1 byte and 2 MiB", map[string]interface{}{"maxBytes": storage.MaxAvatarBytes})
	}
	if _, ok := storage.AvatarExtension(contentType); !ok {
		return "", apperrors.NewValidationError("unsupported image type", map[string]interface{}{"contentType": contentType})
	}
	url, err := s.avatars.PutAvatar(ctx, sess.UID, r, size, contentType)
	if err != nil {
		return "", apperrors.NewExternalError("avatar upload failed", err)
	}
	if err := s.provider.UpdateProfile(ctx, sess.IDToken, identity.ProfileUpdate{PhotoURL: &url}); err != nil {
		return "", providerError(err).WithDetail("step", "provider")
	}
	if err := s.profiles.SetPhotoURL(ctx, sess.UID, url); err != nil {
		return "", storeError("store", err)
	}
	return url, nil
}

// Logout blacklists the ID token for the rest of its life, drops the session,
// revokes provider refresh tokens and records the logout. Only the session
// delete is fatal.
func (s *Service) Logout(ctx context.Context, sess *sessions.Session) (err error) {
	defer func() { metrics.Outcome("logout", err) }()

	if err := sessions.BlacklistToken(ctx, sess.IDToken, time.Until(sess.ExpiresAt)); err != nil {
		logger.Warnf("account: blacklist token for %s: %v", sess.UID, err)
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return apperrors.NewUnavailableError("session store unavailable")
	}
	if err := s.provider.SignOut(ctx, sess.UID); err != nil {
		logger.Warnf("account: revoke tokens for %s: %v", sess.UID, err)
	}
	if err := s.profiles.RecordLogout(ctx, sess.UID); err != nil {
		logger.Warnf("account: record logout for %s: %v", sess.UID, err)
	}
	return nil
}

// Refresh exchanges the session's refresh token for a new ID token. A
// rejected refresh token ends the session.
func (s *Service) Refresh(ctx context.Context, sess *sessions.Session) (_ *sessions.Session, err error) {
	defer func() { metrics.Outcome("refresh", err) }()

	if sess.RefreshToken == "" {
		return nil, apperrors.NewAuthenticationError("session cannot be refreshed", nil).WithDetail("redirect", LoginPath)
	}
	creds, err := s.provider.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidSession) {
			_ = s.sessions.Delete(ctx, sess.ID)
		}
		return nil, providerError(err)
	}
	if err := s.sessions.Rotate(ctx, sess, creds); err != nil {
		return nil, apperrors.NewUnavailableError("session store unavailable")
	}
	return sess, nil
}
