// Command worker long-polls the notification queue and sends the emails for
// each saved contact. Use it when the API runs as a server; on Lambda the
// lambda-worker binary consumes the same queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/workerproc"
)

const (
	attrReceiveCount = "ApproximateReceiveCount"
	longPollSeconds  = 20
	maxBatch         = 10
)

func main() {
	telemetry.Setup(os.Stdout, os.Getenv("LOG_LEVEL"))
	if err := run(); err != nil {
		telemetry.Error("worker.fatal", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	queueURL := strings.TrimSpace(cfg.NotifyQueueURL)
	if queueURL == "" {
		return errors.New("NOTIFY_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close(context.Background())
	if app.DB == nil {
		return errors.New("worker requires DATABASE_URL; queued contacts live in Postgres")
	}

	p := &poller{
		sqs:        sqs.NewFromConfig(awsCfg),
		queueURL:   queueURL,
		proc:       app.Processor,
		visibility: envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", 120),
		workers:    envInt("WORKER_CONCURRENCY", 4),
		grace:      time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
	}
	p.run(ctx)
	return nil
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// messageHandler delivers the notifications for one decoded message.
type messageHandler interface {
	Handle(ctx context.Context, msg queue.Message) error
}

type poller struct {
	sqs        sqsAPI
	queueURL   string
	proc       messageHandler
	visibility int
	workers    int
	grace      time.Duration
}

// run receives until ctx is cancelled, then waits up to grace for jobs
// already handed to a worker.
func (p *poller) run(ctx context.Context) {
	var jobs errgroup.Group
	jobs.SetLimit(max(1, p.workers))

	telemetry.Info("worker.started", map[string]any{
		"queue":       p.queueURL,
		"concurrency": p.workers,
		"visibility":  p.visibility,
	})

	for ctx.Err() == nil {
		out, err := p.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(p.queueURL),
			MaxNumberOfMessages:   maxBatch,
			WaitTimeSeconds:       longPollSeconds,
			VisibilityTimeout:     int32(p.visibility),
			MessageAttributeNames: []string{queue.AttrContactID},
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, m := range out.Messages {
			metrics.IncNotifyJobsReceived()
			// Jobs outlive the signal so a half-sent notification is finished.
			jobCtx := context.WithoutCancel(ctx)
			jobs.Go(func() error {
				p.handle(jobCtx, m)
				return nil
			})
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": p.grace.String()})
	done := make(chan struct{})
	go func() {
		_ = jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.grace):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// handle acknowledges the message once it succeeded or can never succeed.
// Transient failures stay on the queue until the visibility timeout lapses.
func (p *poller) handle(ctx context.Context, m sqstypes.Message) {
	decoded, meta, err := workerproc.ParseMessage(aws.ToString(m.Body))
	if err != nil {
		fields := logFields(m, queue.Message{})
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		var missing workerproc.ErrMissingContactID
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.bad_message", fields)
		if p.ack(ctx, m, queue.Message{}) {
			metrics.IncNotifyJobsDropped()
		}
		return
	}

	telemetry.Info("worker.notify.received", logFields(m, decoded))
	err = p.proc.Handle(ctx, decoded)
	switch {
	case err == nil:
		if p.ack(ctx, m, decoded) {
			telemetry.Info("worker.notify.completed", logFields(m, decoded))
		}
	case workerproc.Unrecoverable(err):
		fields := logFields(m, decoded)
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.dropped", fields)
		if p.ack(ctx, m, decoded) {
			metrics.IncNotifyJobsDropped()
		}
	default:
		fields := logFields(m, decoded)
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.failed", fields)
	}
}

func (p *poller) ack(ctx context.Context, m sqstypes.Message, job queue.Message) bool {
	err := errors.New("missing receipt handle")
	if receipt := aws.ToString(m.ReceiptHandle); receipt != "" {
		_, err = p.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(p.queueURL),
			ReceiptHandle: aws.String(receipt),
		})
	}
	if err != nil {
		fields := logFields(m, job)
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.delete_failed", fields)
		return false
	}
	return true
}

func logFields(m sqstypes.Message, job queue.Message) map[string]any {
	contactID := job.ContactID
	if contactID == "" {
		if attr, ok := m.MessageAttributes[queue.AttrContactID]; ok {
			contactID = aws.ToString(attr.StringValue)
		}
	}
	fields := map[string]any{
		"contact_id":     contactID,
		"sqs_message_id": aws.ToString(m.MessageId),
	}
	if n, err := strconv.Atoi(m.Attributes[attrReceiveCount]); err == nil {
		fields["receive_count"] = n
	}
	if job.RequestID != "" {
		fields["request_id"] = job.RequestID
	}
	return fields
}

// envInt reads a positive integer, falling back to def.
func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
