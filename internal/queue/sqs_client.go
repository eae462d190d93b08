package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Client enqueues notification jobs for saved contacts.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ErrMissingContact is returned when a job carries no contact id.
var ErrMissingContact = errors.New("queue message has no contact id")

// Attribute names copied onto every SQS message so consoles and DLQ
// tooling can find a job without decoding its body.
const (
	AttrContactID = "contact_id"
	AttrVersion   = "version"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes contact notification jobs to one SQS queue.
type SQSClient struct {
	api      sqsSender
	queueURL string
}

// NewSQSClient loads the default AWS chain, optionally pinned to region.
func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("NOTIFY_QUEUE_URL is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{api: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Send enqueues the job for msg.ContactID.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ContactID) == "" {
		return ErrMissingContact
	}
	if msg.Version == 0 {
		msg.Version = CurrentVersion
	}
	body, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode job for contact %s: %w", msg.ContactID, err)
	}

	_, err = s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttrContactID: {DataType: aws.String("String"), StringValue: aws.String(msg.ContactID)},
			AttrVersion:   {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(msg.Version))},
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue job for contact %s: %w", msg.ContactID, err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
