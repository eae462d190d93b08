package queue

import (
	"encoding/json"
	"fmt"
)

// CurrentVersion is stamped on every message this build produces.
const CurrentVersion = 1

// Message asks a worker to deliver the notifications for one contact.
type Message struct {
	ContactID  string `json:"contactId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. Versions newer than
// CurrentVersion are rejected so an old worker never half-handles them.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version > CurrentVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
