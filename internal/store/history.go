// Package store persists per-room message history in BadgerDB.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"roomcast/internal/domain"
)

// History is the durable slot a room rehydrates from. Load reports absence
// via its second return; Append is a single transactional read-modify-write
// so the committed buffer never diverges from what the caller broadcasts.
type History interface {
	Load(id domain.RoomID) ([]domain.Message, bool, error)
	Append(id domain.RoomID, msg domain.Message) ([]domain.Message, error)
}

type BadgerHistory struct {
	db    *badger.DB
	limit int
}

func NewBadgerHistory(db *badger.DB, limit int) *BadgerHistory {
	return &BadgerHistory{db: db, limit: limit}
}

func historyKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("room:history:%s", id))
}

// Load fetches the persisted buffer for a room, if any.
func (h *BadgerHistory) Load(id domain.RoomID) ([]domain.Message, bool, error) {
	var msgs []domain.Message
	found := false

	err := h.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(historyKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &msgs)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("load history %s: %w", id, err)
	}
	return msgs, found, nil
}

// Append adds msg to the room's buffer inside one transaction, evicting the
// oldest entries beyond the capacity, and returns the committed buffer.
func (h *BadgerHistory) Append(id domain.RoomID, msg domain.Message) ([]domain.Message, error) {
	var committed []domain.Message

	err := h.db.Update(func(txn *badger.Txn) error {
		var msgs []domain.Message

		item, err := txn.Get(historyKey(id))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// first message for this room
		case err != nil:
			return err
		default:
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &msgs)
			}); err != nil {
				return err
			}
		}

		msgs = append(msgs, msg)
		if len(msgs) > h.limit {
			msgs = msgs[len(msgs)-h.limit:]
		}

		data, err := json.Marshal(msgs)
		if err != nil {
			return err
		}
		if err := txn.Set(historyKey(id), data); err != nil {
			return err
		}
		committed = msgs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append history %s: %w", id, err)
	}
	return committed, nil
}
