package socket

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrQueueFull = errors.New("socket: send queue is full")
	ErrClosed    = errors.New("socket: connection closed")
)

// Envelope - один текстовый фрейм: {"event": "click", "data": {...}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode упаковывает payload в фрейм события
func Encode(event string, payload interface{}) ([]byte, error) {
	if event == "" {
		return nil, errors.New("socket: empty event name")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("socket: encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("socket: decode frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("socket: frame has no event name")
	}
	return env, nil
}
