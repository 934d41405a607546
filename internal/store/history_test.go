package store

import (
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"roomcast/internal/domain"
)

// setupTestDB initializes a temporary Badger instance for testing
func setupTestDB(t *testing.T) *badger.DB {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerHistory_LoadAbsent(t *testing.T) {
	req := require.New(t)
	hist := NewBadgerHistory(setupTestDB(t), 20)

	msgs, found, err := hist.Load(domain.NewRoomID())
	req.NoError(err)
	req.False(found)
	req.Empty(msgs)
}

func TestBadgerHistory_AppendAndLoad(t *testing.T) {
	req := require.New(t)
	hist := NewBadgerHistory(setupTestDB(t), 20)
	room := domain.NewRoomID()

	msg := domain.NewMessage(domain.KindMessage, "c1", "alice", "", "hi")
	committed, err := hist.Append(room, msg)
	req.NoError(err)
	req.Len(committed, 1)
	req.Equal("hi", committed[0].Data)

	loaded, found, err := hist.Load(room)
	req.NoError(err)
	req.True(found)
	req.Equal(committed, loaded)
}

func TestBadgerHistory_CapacityEviction(t *testing.T) {
	req := require.New(t)
	hist := NewBadgerHistory(setupTestDB(t), 20)
	room := domain.NewRoomID()

	// 25 sequential messages; only the last 20 survive, oldest-first
	for i := 0; i < 25; i++ {
		_, err := hist.Append(room, domain.NewMessage(domain.KindMessage, "c1", "alice", "", fmt.Sprintf("msg-%d", i)))
		req.NoError(err)
	}

	msgs, found, err := hist.Load(room)
	req.NoError(err)
	req.True(found)
	req.Len(msgs, 20)
	req.Equal("msg-5", msgs[0].Data)
	req.Equal("msg-24", msgs[19].Data)
}

func TestBadgerHistory_RoomsAreIndependent(t *testing.T) {
	req := require.New(t)
	hist := NewBadgerHistory(setupTestDB(t), 20)
	roomA := domain.NewRoomID()
	roomB := domain.NewRoomID()

	_, err := hist.Append(roomA, domain.NewMessage(domain.KindMessage, "c1", "alice", "", "only in A"))
	req.NoError(err)

	_, found, err := hist.Load(roomB)
	req.NoError(err)
	req.False(found)

	msgs, found, err := hist.Load(roomA)
	req.NoError(err)
	req.True(found)
	req.Len(msgs, 1)
}
