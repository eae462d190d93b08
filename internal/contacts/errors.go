package contacts

import (
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/shared/server/respond"
)

var (
	// ErrNotFound covers both unknown and malformed identifiers.
	ErrNotFound = errors.New("contact not found")
	// ErrRateLimited matches any *RateLimitError.
	ErrRateLimited = errors.New("contact rate limited")
	// ErrInvalidTransition matches any *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError carries itemized field failures. Nothing was persisted.
type ValidationError struct {
	Fields []respond.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contact validation failed: %d field(s)", len(e.Fields))
}

// RateLimitError reports a throttled submission.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("contact rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// TransitionError reports a status change the lifecycle forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
