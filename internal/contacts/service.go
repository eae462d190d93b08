package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/ratelimit"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
)

// Notifier announces a persisted submission. Implementations must not block
// the caller on delivery and must not report delivery failures back.
type Notifier interface {
	Notify(ctx context.Context, c Contact)
}

// SubmitInput is one contact form submission with its origin.
type SubmitInput struct {
	Payload    Submission
	SourceAddr string
	UserAgent  string
}

// Service runs the contact intake pipeline and the admin operations.
type Service struct {
	Repo     Repo
	Limiter  *ratelimit.Window
	Notifier Notifier

	now   func() time.Time
	newID func() string
}

// NewService constructs a Service. A nil limiter disables throttling and a
// nil notifier skips notification.
func NewService(repo Repo, limiter *ratelimit.Window, notifier Notifier) *Service {
	return &Service{
		Repo:     repo,
		Limiter:  limiter,
		Notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Admit charges one attempt to addr against the submission limit.
func (s *Service) Admit(addr string) error {
	allowed, retryAfter := s.Limiter.Allow(strings.TrimSpace(addr))
	if allowed {
		return nil
	}
	metrics.IncRateLimited("contact")
	telemetry.Warn("contact.rate_limited", map[string]any{
		"ip_hash":     util.ShortHash(addr),
		"retry_after": retryAfter.String(),
	})
	return &RateLimitError{RetryAfter: retryAfter}
}

// Submit throttles, validates, persists and then hands the record to the
// notifier. Only the persistence outcome decides the result.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Receipt, error) {
	if s == nil || s.Repo == nil {
		return Receipt{}, errors.New("contact service not configured")
	}
	if err := s.Admit(in.SourceAddr); err != nil {
		return Receipt{}, err
	}

	payload := in.Payload
	budget, fields := payload.check()
	if len(fields) > 0 {
		metrics.IncContactRejected()
		return Receipt{}, &ValidationError{Fields: fields}
	}

	c := Contact{
		ID:          s.newID(),
		Name:        payload.Name,
		Email:       payload.Email,
		Subject:     payload.Subject,
		Message:     payload.Message,
		Phone:       payload.Phone,
		Company:     payload.Company,
		ProjectType: orDefault(payload.ProjectType, DefaultProjectType),
		Budget:      budget,
		Currency:    orDefault(payload.Currency, DefaultCurrency),
		Timeline:    orDefault(payload.Timeline, DefaultTimeline),
		Status:      StatusNew,
		Priority:    PriorityMedium,
		IPAddress:   strings.TrimSpace(in.SourceAddr),
		UserAgent:   in.UserAgent,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.Create(ctx, &c); err != nil {
		return Receipt{}, err
	}
	metrics.IncContactSubmitted()
	telemetry.Info("contact.submitted", map[string]any{
		"contact_id":   c.ID,
		"project_type": c.ProjectType,
		"ip_hash":      util.ShortHash(c.IPAddress),
		"request_id":   middleware.RequestIDFrom(ctx),
	})

	if s.Notifier != nil {
		s.Notifier.Notify(context.WithoutCancel(ctx), c)
	}
	return Receipt{ID: c.ID, SubmittedAt: c.CreatedAt}, nil
}

// List returns one page of contacts.
func (s *Service) List(ctx context.Context, opts ListOptions) (Page, error) {
	f, fields := opts.filter()
	if len(fields) > 0 {
		return Page{}, &ValidationError{Fields: fields}
	}
	items, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items: items,
		Pagination: Pagination{
			Current:       f.Offset/f.Limit + 1,
			Total:         (total + f.Limit - 1) / f.Limit,
			Count:         len(items),
			TotalContacts: total,
		},
	}, nil
}

// Get returns a contact and marks it read. A new contact also moves to read.
func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	id, ok := parseID(id)
	if !ok {
		return Contact{}, ErrNotFound
	}
	c, err := s.Repo.Get(ctx, id)
	if err != nil || c.IsRead {
		return c, err
	}
	return s.Repo.Update(ctx, id, func(c *Contact) error {
		c.IsRead = true
		if c.Status == StatusNew {
			c.Status = StatusRead
		}
		return nil
	})
}

// Update validates in and applies it. Nothing is written when validation or
// the status lifecycle rejects the change.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Contact, error) {
	id, ok := parseID(id)
	if !ok {
		return Contact{}, ErrNotFound
	}
	in.normalize()
	if fields := validateUpdate(in); len(fields) > 0 {
		return Contact{}, &ValidationError{Fields: fields}
	}

	updated, err := s.Repo.Update(ctx, id, func(c *Contact) error {
		if in.Status != "" && in.Status != c.Status {
			if !CanTransition(c.Status, in.Status) {
				return &TransitionError{From: c.Status, To: in.Status}
			}
			c.Status = in.Status
			if in.Status != StatusNew {
				c.IsRead = true
			}
		}
		if in.Priority != "" {
			c.Priority = in.Priority
		}
		if in.Notes != nil {
			c.Notes = *in.Notes
		}
		if in.Reply != nil {
			c.Reply = *in.Reply
			at := s.now()
			c.RepliedAt = &at
		}
		return nil
	})
	if err != nil {
		return Contact{}, err
	}
	telemetry.Info("contact.updated", map[string]any{
		"contact_id": updated.ID,
		"status":     string(updated.Status),
		"replied":    in.Reply != nil,
	})
	return updated, nil
}

// Stats returns the facet counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Repo.Stats(ctx)
}

func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
