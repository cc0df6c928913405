package profiles

import "time"

// Profile is the per-account record kept in the document store, keyed by the
// provider UID.
type Profile struct {
	UID           string    `json:"uid" bson:"_id" firestore:"uid"`
	Email         string    `json:"email" bson:"email" firestore:"email"`
	DisplayName   string    `json:"displayName" bson:"displayName" firestore:"displayName"`
	PhotoURL      string    `json:"photoURL,omitempty" bson:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	EmailVerified bool      `json:"emailVerified" bson:"emailVerified" firestore:"emailVerified"`
	Active        bool      `json:"active" bson:"active" firestore:"active"`
	LastLoginAt   time.Time `json:"lastLoginAt,omitzero" bson:"lastLoginAt,omitempty" firestore:"lastLoginAt,omitempty"`
	LastLogoutAt  time.Time `json:"lastLogoutAt,omitzero" bson:"lastLogoutAt,omitempty" firestore:"lastLogoutAt,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

// Fields is a partial update; nil members are left unchanged.
type Fields struct {
	DisplayName   *string
	PhotoURL      *string
	EmailVerified *bool
	Active        *bool
	LastLoginAt   *time.Time
	LastLogoutAt  *time.Time
}

// field is one changed attribute with its document key and SQL column.
type field struct {
	key    string
	column string
	value  interface{}
}

func (f Fields) list() []field {
	var out []field
	if f.DisplayName != nil {
		out = append(out, field{"displayName", "display_name", *f.DisplayName})
	}
	if f.PhotoURL != nil {
		out = append(out, field{"photoURL", "photo_url", *f.PhotoURL})
	}
	if f.EmailVerified != nil {
		out = append(out, field{"emailVerified", "email_verified", *f.EmailVerified})
	}
	if f.Active != nil {
		out = append(out, field{"active", "active", *f.Active})
	}
	if f.LastLoginAt != nil {
		out = append(out, field{"lastLoginAt", "last_login_at", *f.LastLoginAt})
	}
	if f.LastLogoutAt != nil {
		out = append(out, field{"lastLogoutAt", "last_logout_at", *f.LastLogoutAt})
	}
	return out
}

// Empty reports whether the update changes nothing.
func (f Fields) Empty() bool { return len(f.list()) == 0 }

func (f Fields) apply(p *Profile) {
	if f.DisplayName != nil {
		p.DisplayName = *f.DisplayName
	}
	if f.PhotoURL != nil {
		p.PhotoURL = *f.PhotoURL
	}
	if f.EmailVerified != nil {
		p.EmailVerified = *f.EmailVerified
	}
	if f.Active != nil {
		p.Active = *f.Active
	}
	if f.LastLoginAt != nil {
		p.LastLoginAt = *f.LastLoginAt
	}
	if f.LastLogoutAt != nil {
		p.LastLogoutAt = *f.LastLogoutAt
	}
}
