package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolio-backend/internal/contacts"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/telemetry"
)

// DefaultTimeout bounds one background delivery.
const DefaultTimeout = 5 * time.Second

// Sender renders and delivers both emails for a contact.
type Sender struct {
	Mailer   Mailer
	Composer Composer
}

// Send attempts the admin email and the auto-reply independently; one
// failing does not stop the other. The first error is returned.
func (s *Sender) Send(ctx context.Context, c contacts.Contact) error {
	if s == nil || s.Mailer == nil {
		return errors.New("mailer not configured")
	}
	var g errgroup.Group
	if s.Composer.Admin != "" {
		g.Go(func() error { return s.deliver(ctx, c, KindAdmin, s.Composer.AdminEmail) })
	} else {
		telemetry.Warn("notify.admin_skipped", map[string]any{"contact_id": c.ID, "reason": "no admin address"})
	}
	g.Go(func() error { return s.deliver(ctx, c, KindAutoReply, s.Composer.AutoReply) })
	return g.Wait()
}

func (s *Sender) deliver(ctx context.Context, c contacts.Contact, kind string, build func(contacts.Contact) (Email, error)) error {
	e, err := build(c)
	if err == nil {
		err = s.Mailer.Send(ctx, e)
	}
	if err != nil {
		metrics.IncNotifyFailed(kind)
		telemetry.Warn("notify.email_failed", map[string]any{
			"contact_id": c.ID,
			"kind":       kind,
			"error":      err,
		})
		return fmt.Errorf("%s email: %w", kind, err)
	}
	metrics.IncNotifySent(kind)
	return nil
}

// inflight tracks background jobs so shutdown can wait for them.
type inflight struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// spawn runs fn in the background unless Close has begun.
func (f *inflight) spawn(name, contactID string, fn func()) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		telemetry.Warn("notify.dropped", map[string]any{"contact_id": contactID, "dispatcher": name, "reason": "closed"})
		return false
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("notify.panic", map[string]any{"contact_id": contactID, "dispatcher": name, "panic": fmt.Sprint(r)})
			}
		}()
		fn()
	}()
	return true
}

// Close stops accepting work and waits for running jobs or ctx.
func (f *inflight) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify shutdown: %w", ctx.Err())
	}
}

// AsyncDispatcher sends emails from a goroutine per contact.
type AsyncDispatcher struct {
	inflight
	Sender  *Sender
	Timeout time.Duration
}

// NewAsyncDispatcher constructs an AsyncDispatcher. timeout <= 0 uses DefaultTimeout.
func NewAsyncDispatcher(sender *Sender, timeout time.Duration) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AsyncDispatcher{Sender: sender, Timeout: timeout}
}

// Notify returns immediately; delivery errors are only logged.
func (d *AsyncDispatcher) Notify(ctx context.Context, c contacts.Contact) {
	d.spawn("async", c.ID, func() {
		sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		defer cancel()
		_ = d.Sender.Send(sendCtx, c)
	})
}

// QueueDispatcher hands contacts to a worker through a queue.
type QueueDispatcher struct {
	inflight
	Queue   queue.Client
	Timeout time.Duration
	now     func() time.Time
}

// NewQueueDispatcher constructs a QueueDispatcher. timeout <= 0 uses DefaultTimeout.
func NewQueueDispatcher(q queue.Client, timeout time.Duration) *QueueDispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &QueueDispatcher{Queue: q, Timeout: timeout, now: time.Now}
}

// Notify enqueues c in the background. Enqueue failures are logged only.
func (d *QueueDispatcher) Notify(ctx context.Context, c contacts.Contact) {
	msg := queue.Message{
		ContactID:  c.ID,
		RequestID:  middleware.RequestIDFrom(ctx),
		EnqueuedAt: d.now().UTC().Format(time.RFC3339),
		Version:    queue.CurrentVersion,
	}
	d.spawn("queue", c.ID, func() {
		sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		defer cancel()
		if err := d.Queue.Send(sendCtx, msg); err != nil {
			metrics.IncNotifyFailed("enqueue")
			telemetry.Warn("notify.enqueue_failed", map[string]any{
				"contact_id": c.ID,
				"request_id": msg.RequestID,
				"error":      err,
			})
			return
		}
		telemetry.Info("notify.enqueued", map[string]any{"contact_id": c.ID, "request_id": msg.RequestID})
	})
}

var (
	_ contacts.Notifier = (*AsyncDispatcher)(nil)
	_ contacts.Notifier = (*QueueDispatcher)(nil)
)
