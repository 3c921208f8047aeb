package events

import (
	"encoding/json"
	"time"
)

// NotificationMessage is the fan-out payload for a stored notification.
// Consumers look the record up by ID when they need more than the text.
type NotificationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RoutingKey returns the key the message is published under.
func (m *NotificationMessage) RoutingKey() string {
	return "notification." + m.Kind
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message published by ToJSON.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
