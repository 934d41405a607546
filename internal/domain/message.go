package domain

import "time"

// Kind tags a wire frame.
type Kind string

const (
	KindMessage   Kind = "message"
	KindLeave     Kind = "leave"
	KindHeartbeat Kind = "heartbeat"
	KindError     Kind = "error"
)

// Message is the JSON frame exchanged with clients and persisted in the
// room history. Timestamp is RFC 3339 in UTC.
type Message struct {
	Type      Kind   `json:"type"`
	Sender    string `json:"sender,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Data      string `json:"data"`
	ClientID  string `json:"clientId"`
	Timestamp string `json:"timestamp"`
}

// NewMessage stamps a frame with the current time.
func NewMessage(kind Kind, clientID, sender, avatar, data string) Message {
	return Message{
		Type:      kind,
		Sender:    sender,
		Avatar:    avatar,
		Data:      data,
		ClientID:  clientID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
