package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finanzas/internal/core"
)

// CompensationMessage asks the worker to delete rows a failed upload left
// behind.
type CompensationMessage struct {
	core.CompensationRequest
	Timestamp time.Time `json:"timestamp"`
}

// NewCompensationMessage wraps req with the current time
func NewCompensationMessage(req core.CompensationRequest) *CompensationMessage {
	return &CompensationMessage{
		CompensationRequest: req,
		Timestamp:           time.Now(),
	}
}

// Retry returns a copy for the next delivery attempt
func (m *CompensationMessage) Retry() *CompensationMessage {
	next := *m
	next.IDs = append([]string(nil), m.IDs...)
	next.Attempt = m.Attempt + 1
	next.Timestamp = time.Now()
	return &next
}

func (m *CompensationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CompensationMessageFromJSON decodes and sanity checks a message body
func CompensationMessageFromJSON(data []byte) (*CompensationMessage, error) {
	var msg CompensationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("compensation message without user_id")
	}
	if len(msg.IDs) == 0 {
		return nil, errors.New("compensation message without ids")
	}
	return &msg, nil
}
