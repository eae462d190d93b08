package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"portfolio-backend/internal/contacts"
	"portfolio-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingContactID indicates a message without a contact id.
type ErrMissingContactID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingContactID) Error() string { return "missing contact id" }

// ErrUnknownContact indicates the referenced contact no longer exists.
// Retrying cannot help, so the message should be dropped.
type ErrUnknownContact struct {
	ContactID string
	RequestID string
}

func (e ErrUnknownContact) Error() string { return "unknown contact " + e.ContactID }

// ErrProcess indicates delivery failed after the message was understood.
type ErrProcess struct {
	ContactID string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingContactID, ErrUnknownContact:
		return true
	default:
		return false
	}
}

// ContactLoader fetches the contact a message refers to.
type ContactLoader interface {
	Get(ctx context.Context, id string) (contacts.Contact, error)
}

// ContactSender delivers the notifications for a contact.
type ContactSender interface {
	Send(ctx context.Context, c contacts.Contact) error
}

// Processor turns queue messages into sent emails.
type Processor struct {
	Contacts ContactLoader
	Sender   ContactSender
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ContactID) == "" {
		return msg, meta, ErrMissingContactID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Handle processes an already parsed message.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if p == nil || p.Contacts == nil || p.Sender == nil {
		return errors.New("notification processor not configured")
	}
	if _, err := uuid.Parse(msg.ContactID); err != nil {
		return ErrUnknownContact{ContactID: msg.ContactID, RequestID: msg.RequestID}
	}
	c, err := p.Contacts.Get(ctx, msg.ContactID)
	if errors.Is(err, contacts.ErrNotFound) {
		return ErrUnknownContact{ContactID: msg.ContactID, RequestID: msg.RequestID}
	}
	if err != nil {
		return ErrProcess{ContactID: msg.ContactID, RequestID: msg.RequestID, Err: err}
	}
	if err := p.Sender.Send(ctx, c); err != nil {
		return ErrProcess{ContactID: msg.ContactID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// HandleMessage parses, validates, and processes a message payload.
func (p *Processor) HandleMessage(ctx context.Context, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return p.Handle(ctx, msg)
}
