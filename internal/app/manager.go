// Package app hosts the room registry: one live actor per room id,
// created on first use.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"roomcast/internal/core"
	"roomcast/internal/domain"
	"roomcast/internal/store"
)

// RoomInfo is a summary row for the rooms listing.
type RoomInfo struct {
	ID      domain.RoomID `json:"id"`
	Clients int           `json:"clients"`
}

// Manager maps room ids to live actors. Rooms are independent; the manager
// lock only covers the map itself, never room internals.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	hist   store.History
	opts   core.Options

	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewManager(parent context.Context, hist store.History, opts core.Options) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		hist:   hist,
		opts:   opts,
		rooms:  make(map[domain.RoomID]*core.Room),
	}
}

// GetOrCreate returns the live actor for id, creating it on first use.
func (m *Manager) GetOrCreate(id domain.RoomID) *core.Room {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room
	}
	room = core.NewRoom(m.ctx, id, m.hist, m.opts)
	m.rooms[id] = room
	log.Info().Str("module", "app.manager").Str("room", string(id)).Msg("room created")
	return room
}

func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.MapToSlice(m.rooms, func(id domain.RoomID, r *core.Room) RoomInfo {
		return RoomInfo{ID: id, Clients: r.ClientCount()}
	})
}

// Stop shuts every room down. Durable history is untouched.
func (m *Manager) Stop() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
	log.Info().Str("module", "app.manager").Msg("all rooms stopped")
}
