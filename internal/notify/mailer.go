package notify

import (
	"context"

	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
)

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct{}

// Send logs the envelope of e.
func (LogMailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("notify.email.logged", map[string]any{
		"to_hash":  util.ShortHash(e.To),
		"subject":  e.Subject,
		"text_len": len(e.Text),
	})
	return nil
}
