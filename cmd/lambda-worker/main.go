// Command lambda-worker consumes the notification queue as an SQS event
// source.
//
//	GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker
package main

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/workerproc"
)

type bodyHandler interface {
	HandleMessage(ctx context.Context, body string) error
}

var processor = sync.OnceValues(func() (bodyHandler, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	if app.DB == nil {
		return nil, errors.New("lambda worker requires DATABASE_URL")
	}
	return app.Processor, nil
})

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	proc, err := processor()
	if err != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": err.Error()})
		return retryAll(event), err
	}
	return processBatch(ctx, proc, event), nil
}

// processBatch reports transient failures as batch item failures so SQS
// retries only those records. Unrecoverable records are acknowledged.
func processBatch(ctx context.Context, proc bodyHandler, event events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, rec := range event.Records {
		metrics.IncNotifyJobsReceived()
		err := proc.HandleMessage(ctx, rec.Body)
		if err == nil {
			continue
		}
		fields := map[string]any{"sqs_message_id": rec.MessageId, "error": err.Error()}
		if attr, ok := rec.MessageAttributes["contact_id"]; ok && attr.StringValue != nil {
			fields["contact_id"] = *attr.StringValue
		}
		if workerproc.Unrecoverable(err) {
			metrics.IncNotifyJobsDropped()
			telemetry.Error("lambda_worker.dropped", fields)
			continue
		}
		telemetry.Error("lambda_worker.failed", fields)
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
	}
	return resp
}

func retryAll(event events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, rec := range event.Records {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
	}
	return resp
}

func main() {
	lambda.Start(handler)
}
