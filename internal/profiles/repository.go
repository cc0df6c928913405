package profiles

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("profile not found")

// Repository defines persistence operations for profiles.
// Create overwrites an existing record with the same UID.
type Repository interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, uid string, f Fields) error
}
