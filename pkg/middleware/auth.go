package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/accountdesk/accountdesk/internal/identity"
	"github.com/accountdesk/accountdesk/internal/sessions"
	"github.com/accountdesk/accountdesk/pkg/apperrors"
	"github.com/accountdesk/accountdesk/pkg/logger"
)

// Gin context keys set by RequireSession.
const (
	ContextSession = "session"
	ContextUID     = "uid"
	ContextClaims  = "claims"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Refresher exchanges a refresh token for new provider credentials.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*identity.Credentials, error)
}

// SessionOptions configures RequireSession. Verifier and Refresher may be nil.
type SessionOptions struct {
	Sessions   *sessions.Service
	Verifier   Verifier
	Refresher  Refresher
	CookieName string
}

// SessionToken returns the opaque session token from "Authorization: Bearer"
// or, failing that, the session cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	v, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return v
}

// Unauthenticated builds the 401 that tells the browser to go to the login screen.
func Unauthenticated(message string, internal error) *apperrors.AppError {
	return apperrors.NewAuthenticationError(message, internal).WithDetail("redirect", LoginPath)
}

// RequireSession resolves the session token to a stored session, refreshes
// the provider ID token when it has expired and re-verifies it. A session
// whose token can no longer be verified is deleted.
func RequireSession(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw := SessionToken(c, opts.CookieName)
		if raw == "" {
			apperrors.Write(c, Unauthenticated("not signed in", nil))
			return
		}
		sess, err := opts.Sessions.Resolve(ctx, raw)
		if err != nil {
			apperrors.Write(c, apperrors.NewUnavailableError("session store unavailable"))
			return
		}
		if sess == nil {
			apperrors.Write(c, Unauthenticated("session expired", nil))
			return
		}

		drop := func(reason string, cause error) {
			logger.Infof("session %s for %s dropped: %s: %v", shortID(sess.ID), sess.UID, reason, cause)
			_ = opts.Sessions.Delete(ctx, sess.ID)
			apperrors.Write(c, Unauthenticated("session expired", cause))
		}

		if sess.TokenExpired(time.Now()) {
			if opts.Refresher == nil || sess.RefreshToken == "" {
				drop("token expired", nil)
				return
			}
			creds, err := opts.Refresher.Refresh(ctx, sess.RefreshToken)
			if err != nil {
				if errors.Is(err, identity.ErrInvalidSession) {
					drop("refresh rejected", err)
					return
				}
				apperrors.Write(c, apperrors.NewExternalError("could not refresh session", err))
				return
			}
			if err := opts.Sessions.Rotate(ctx, sess, creds); err != nil {
				drop("rotate", err)
				return
			}
		}

		blacklisted, err := sessions.IsTokenBlacklisted(ctx, sess.IDToken)
		if err != nil {
			logger.Warnf("blacklist check failed: %v", err)
		}
		if blacklisted {
			drop("token revoked", nil)
			return
		}

		claims := map[string]interface{}{"sub": sess.UID, "email": sess.Email}
		if opts.Verifier != nil {
			tok, err := opts.Verifier.Verify(ctx, sess.IDToken)
			if err != nil {
				drop("verification failed", err)
				return
			}
			if err := tok.Claims(&claims); err != nil {
				drop("claims", err)
				return
			}
			if sub, _ := claims["sub"].(string); sub != sess.UID {
				drop("subject mismatch", nil)
				return
			}
		}

		c.Set(ContextSession, sess)
		c.Set(ContextUID, sess.UID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) (*sessions.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil, false
	}
	s, ok := v.(*sessions.Session)
	return s, ok && s != nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
