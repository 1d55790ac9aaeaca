// Package broker is the message-queue layer between job intake and the
// validation worker. Delivery is at-least-once and unordered across jobs.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ValidationRequest is the queue message published by intake and consumed by
// the worker. The field set is fixed; payloads with unknown fields are
// rejected on receipt.
type ValidationRequest struct {
	ID          string `json:"id"`
	InputString string `json:"inputString"`
	Pattern     string `json:"pattern"`
}

// Message is one delivery from the broker. ID identifies the delivery for
// acknowledgment, not the job.
type Message struct {
	ID   string
	Body []byte
}

// Publisher enqueues validation requests.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Consumer receives and acknowledges deliveries. Receive blocks until a
// message is available or ctx is cancelled. Implementations must tolerate
// concurrent callers.
type Consumer interface {
	Receive(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, messageID string) error
}

// EncodeValidationRequest serializes a request for publishing.
func EncodeValidationRequest(req ValidationRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode validation request: %w", err)
	}
	return body, nil
}

// DecodeValidationRequest parses a queue payload into a strict schema.
// Unknown fields, an unparseable job id, or an empty pattern all fail
// decoding; callers treat any error here as a malformed message.
func DecodeValidationRequest(body []byte) (ValidationRequest, uuid.UUID, error) {
	var req ValidationRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ValidationRequest{}, uuid.Nil, fmt.Errorf("decode validation request: %w", err)
	}

	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return ValidationRequest{}, uuid.Nil, fmt.Errorf("parse job id %q: %w", req.ID, err)
	}
	if req.Pattern == "" {
		return ValidationRequest{}, uuid.Nil, fmt.Errorf("validation request for job %s has no pattern", req.ID)
	}
	return req, jobID, nil
}
