package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomIDFromName_Deterministic(t *testing.T) {
	req := require.New(t)

	a, err := RoomIDFromName("lobby")
	req.NoError(err)
	b, err := RoomIDFromName("lobby")
	req.NoError(err)
	req.Equal(a, b)
	req.True(a.Valid())

	other, err := RoomIDFromName("not-lobby")
	req.NoError(err)
	req.NotEqual(a, other)
}

func TestRoomIDFromName_CanonicalPassthrough(t *testing.T) {
	req := require.New(t)

	id := NewRoomID()
	got, err := RoomIDFromName(id.String())
	req.NoError(err)
	req.Equal(id, got)
}

func TestRoomIDFromName_TooLong(t *testing.T) {
	req := require.New(t)

	// 33 chars, not canonical hex
	_, err := RoomIDFromName(strings.Repeat("x", 33))
	req.ErrorIs(err, ErrNameTooLong)

	// 64 chars but not hex is also too long, not canonical
	_, err = RoomIDFromName(strings.Repeat("z", 64))
	req.ErrorIs(err, ErrNameTooLong)
}

func TestRoomIDFromName_Empty(t *testing.T) {
	_, err := RoomIDFromName("")
	require.ErrorIs(t, err, ErrNameEmpty)
}

func TestNewRoomID_FreshAndCanonical(t *testing.T) {
	req := require.New(t)

	seen := make(map[RoomID]bool)
	for i := 0; i < 100; i++ {
		id := NewRoomID()
		req.True(id.Valid())
		req.False(seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRoomIDFromName_MaxLenBoundary(t *testing.T) {
	req := require.New(t)

	id, err := RoomIDFromName(strings.Repeat("a", 32))
	req.NoError(err)
	req.True(id.Valid())
}
