package core

import "time"

// client is one registered connection inside a room. Owned by the room;
// all fields are guarded by the room mutex.
type client struct {
	token        string
	session      string
	conn         *Conn
	joinedAt     time.Time
	lastActive   time.Time
	messagesSent int
}

// ClientInfo is a read-only snapshot of a registered client. Session is
// the browser-scoped gateway token; ID is unique per connection.
type ClientInfo struct {
	ID           string    `json:"id"`
	Session      string    `json:"session,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActive   time.Time `json:"lastActive"`
	MessagesSent int       `json:"messagesSent"`
}
