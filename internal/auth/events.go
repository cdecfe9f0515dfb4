package auth

import (
	"encoding/json"
	"fmt"
)

// Event names on the wire.
const (
	EventAuthenticate = "authenticate"
	EventAuthResult   = "authResult"
)

// Envelope is one JSON text frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthenticateRequest is the payload of an authenticate event.
type AuthenticateRequest struct {
	FaceEmbedding []float32 `json:"faceEmbedding"`
}

// AuthResult is the payload of an authResult event. User is set only on success.
type AuthResult struct {
	Success bool   `json:"success"`
	User    string `json:"user,omitempty"`
}

// NewEnvelope encodes v as the data of an event.
func NewEnvelope(event string, v any) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// ResultEnvelope wraps a result in an authResult event.
func ResultEnvelope(r AuthResult) Envelope {
	return mustEnvelope(EventAuthResult, r)
}

// mustEnvelope is NewEnvelope for payloads that cannot fail to encode.
func mustEnvelope(event string, v any) Envelope {
	env, err := NewEnvelope(event, v)
	if err != nil {
		panic(err)
	}
	return env
}

// DecodeAuthenticate parses authenticate event data.
func DecodeAuthenticate(data json.RawMessage) (AuthenticateRequest, error) {
	var req AuthenticateRequest
	if len(data) == 0 {
		return req, fmt.Errorf("missing data")
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decoding authenticate: %w", err)
	}
	return req, nil
}
