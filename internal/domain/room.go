// Package domain contains entities without logic, just meta-data
package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
)

const (
	// MaxRoomNameLen bounds free-form room names; anything longer that is
	// not already a canonical id is rejected.
	MaxRoomNameLen = 32

	// RoomIDLen is the length of a canonical hex-encoded room id.
	RoomIDLen = 64
)

var (
	ErrNameTooLong = errors.New("room name too long")
	ErrNameEmpty   = errors.New("room name empty")
)

var canonicalID = regexp.MustCompile(`^[0-9a-f]{64}$`)

// RoomID is the canonical address of a room: 64 lowercase hex characters.
type RoomID string

// NewRoomID allocates a fresh, collision-resistant room id. Each call
// yields a distinct room.
func NewRoomID() RoomID {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return RoomID(hex.EncodeToString(b[:]))
}

// RoomIDFromName maps a human-supplied name onto a canonical id.
// The same name always maps to the same room. Canonical ids pass through
// unchanged so clients can address a room created anonymously.
func RoomIDFromName(name string) (RoomID, error) {
	if name == "" {
		return "", ErrNameEmpty
	}
	if canonicalID.MatchString(name) {
		return RoomID(name), nil
	}
	if len(name) > MaxRoomNameLen {
		return "", ErrNameTooLong
	}
	sum := sha256.Sum256([]byte(name))
	return RoomID(hex.EncodeToString(sum[:])), nil
}

func (id RoomID) String() string { return string(id) }

// Valid reports whether id is in canonical form.
func (id RoomID) Valid() bool { return canonicalID.MatchString(string(id)) }
