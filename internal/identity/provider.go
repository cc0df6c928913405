// Package identity is the single client for the hosted identity provider.
// It covers account creation, password sign-in, session lookup, verification
// email, profile field updates, account deletion and token refresh.
package identity

import (
	"context"
	"time"
)

// Credentials is what the provider hands back after sign-up, sign-in or refresh.
type Credentials struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Account is the provider's view of a user.
type Account struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Disabled      bool      `json:"disabled"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginAt   time.Time `json:"lastLoginAt,omitzero"`
}

// ProfileUpdate carries provider profile fields to change; nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// Provider is the surface of the hosted identity service used by the account flows.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
	Lookup(ctx context.Context, idToken string) (*Account, error)
	SendEmailVerification(ctx context.Context, idToken string) error
	UpdateProfile(ctx context.Context, idToken string, upd ProfileUpdate) error
	DeleteAccount(ctx context.Context, idToken string) error
	// SignOut revokes the account's refresh tokens where the provider allows it.
	SignOut(ctx context.Context, uid string) error
}
