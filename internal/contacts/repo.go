package contacts

import "context"

// Repo persists contact submissions.
type Repo interface {
	Create(ctx context.Context, c *Contact) error
	Get(ctx context.Context, id string) (Contact, error)
	// Update applies fn to the current record and persists it atomically.
	// An error from fn aborts without writing.
	Update(ctx context.Context, id string, fn func(c *Contact) error) (Contact, error)
	List(ctx context.Context, f Filter) ([]Contact, int, error)
	Stats(ctx context.Context) (Stats, error)
}
