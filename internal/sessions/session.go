package sessions

import "time"

// Session binds an opaque browser-held ID to the provider tokens it stands for.
// ExpiresAt is the ID token expiry; EndsAt is when the session itself lapses,
// however often the ID token is refreshed.
type Session struct {
	ID           string    `bson:"_id" json:"id"`
	UID          string    `bson:"uid" json:"uid"`
	Email        string    `bson:"email" json:"email"`
	IDToken      string    `bson:"idToken" json:"idToken"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	EndsAt       time.Time `bson:"endsAt" json:"endsAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// TokenExpired reports whether the cached ID token has passed its expiry.
func (s *Session) TokenExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Ended reports whether the session has run past its lifetime.
func (s *Session) Ended(now time.Time) bool {
	return !s.EndsAt.IsZero() && !now.Before(s.EndsAt)
}
