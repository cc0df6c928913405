// Package sessions stores server-side sessions that map an opaque token held
// by the browser to the provider's ID and refresh tokens.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/accountdesk/accountdesk/internal/identity"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	ttl  time.Duration
}

// NewService returns a Service whose sessions last at most ttl.
func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{repo: r, ttl: ttl}
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create stores a new session for freshly issued provider credentials.
func (s *Service) Create(ctx context.Context, creds *identity.Credentials) (*Session, error) {
	if creds == nil || creds.UID == "" || creds.IDToken == "" {
		return nil, fmt.Errorf("sessions: credentials missing uid or id token")
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:           id,
		UID:          creds.UID,
		Email:        creds.Email,
		IDToken:      creds.IDToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
		EndsAt:       now.Add(s.ttl),
		CreatedAt:    now,
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve returns the session for id, or nil when it is unknown or has ended.
func (s *Service) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Ended(time.Now().UTC()) {
		// cleanup ended session
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// Rotate replaces the cached provider tokens after a refresh. The session ID
// and lifetime stay the same.
func (s *Service) Rotate(ctx context.Context, sess *Session, creds *identity.Credentials) error {
	if creds.UID != "" && creds.UID != sess.UID {
		return fmt.Errorf("sessions: refreshed token belongs to %s, not %s", creds.UID, sess.UID)
	}
	sess.IDToken = creds.IDToken
	if creds.RefreshToken != "" {
		sess.RefreshToken = creds.RefreshToken
	}
	sess.ExpiresAt = creds.ExpiresAt
	return s.repo.Save(ctx, sess)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
