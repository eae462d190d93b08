package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the profile record does not exist yet.
var ErrNotFound = errors.New("profile not found")

// Repo persists the profile record.
type Repo interface {
	Get(ctx context.Context, id string) (Profile, error)
	// Update loads id, or a placeholder when it is missing, applies fn and
	// stores the result as one atomic read-modify-write. fn may inspect
	// CreatedAt.IsZero() to detect a brand new record. An error from fn
	// aborts without writing.
	Update(ctx context.Context, id string, fn func(p *Profile) error) (Profile, error)
}
