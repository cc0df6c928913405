// Package profiles keeps the per-account document that mirrors the identity
// provider's user record alongside activity timestamps.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accountdesk/accountdesk/pkg/logger"
)

// Service encapsulates profile-related business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// Create writes the initial record for a freshly registered account.
func (s *Service) Create(ctx context.Context, uid, email, displayName string) (*Profile, error) {
	if uid == "" {
		return nil, fmt.Errorf("profiles: uid is required")
	}
	p := &Profile{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the stored profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, uid string) (*Profile, error) {
	return s.repo.Get(ctx, uid)
}

// Ensure returns the stored profile, creating a default one when the account
// predates the store. The verified flag is copied from the provider when it
// has drifted.
func (s *Service) Ensure(ctx context.Context, uid, email, displayName string, verified bool) (*Profile, error) {
	p, err := s.repo.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		logger.Infof("profiles: creating default profile for %s", uid)
		p = &Profile{
			UID:           uid,
			Email:         email,
			DisplayName:   displayName,
			EmailVerified: verified,
			Active:        true,
			CreatedAt:     s.now(),
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	if p.EmailVerified != verified {
		if err := s.repo.Update(ctx, uid, Fields{EmailVerified: &verified}); err != nil {
			logger.Warnf("profiles: mirror verified flag for %s: %v", uid, err)
		} else {
			p.EmailVerified = verified
		}
	}
	return p, nil
}

func (s *Service) RecordLogin(ctx context.Context, uid string) error {
	now, active := s.now(), true
	return s.repo.Update(ctx, uid, Fields{LastLoginAt: &now, Active: &active})
}

func (s *Service) RecordLogout(ctx context.Context, uid string) error {
	now, active := s.now(), false
	return s.repo.Update(ctx, uid, Fields{LastLogoutAt: &now, Active: &active})
}

func (s *Service) SetDisplayName(ctx context.Context, uid, name string) error {
	return s.repo.Update(ctx, uid, Fields{DisplayName: &name})
}

func (s *Service) SetPhotoURL(ctx context.Context, uid, url string) error {
	return s.repo.Update(ctx, uid, Fields{PhotoURL: &url})
}
