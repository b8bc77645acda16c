// Package server defines the JSON event envelope exchanged over each
// WebSocket connection.
package server

import (
	"encoding/json"
	"errors"
)

// Envelope is the wire frame carrying one named event per WebSocket text
// message: {"event": "...", "data": ...}. Data stays raw until the hub knows
// which payload type the event name calls for.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var errMissingEvent = errors.New("envelope missing event name")

func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, errMissingEvent
	}
	return env, nil
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
