// Package core owns the live state of a room: its connection registry,
// its view of the persisted history, broadcast and the idle reaper.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"roomcast/internal/domain"
	"roomcast/internal/store"
)

// Options carries the per-room runtime knobs, taken from config.
type Options struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	PingPeriod    time.Duration
	SendBuffer    int
	ReadLimit     int64
}

// Room is the single-writer authority over one broadcast domain. All
// registry and buffer mutations happen under mu; persistence is serialized
// per room through persistMu so concurrent senders cannot tear the
// read-modify-write of the durable buffer.
type Room struct {
	id   domain.RoomID
	hist store.History
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	clients map[string]*client
	buffer  []domain.Message
	loaded  bool

	persistMu sync.Mutex
}

func NewRoom(parent context.Context, id domain.RoomID, hist store.History, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:      id,
		hist:    hist,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[string]*client),
	}
	// Exactly one reaper per room lifetime, stopped with the room context.
	go r.run()
	return r
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ActiveClients returns a snapshot of the registry for the members listing.
func (r *Room) ActiveClients() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.clients, func(_ string, c *client) ClientInfo {
		return ClientInfo{
			ID:           c.token,
			Session:      c.session,
			JoinedAt:     c.joinedAt,
			LastActive:   c.lastActive,
			MessagesSent: c.messagesSent,
		}
	})
}

// Join registers an upgraded websocket with the room. It rehydrates the
// history buffer on first use, replays it to the new connection oldest-first
// and starts the read/write pumps. session is the gateway's browser-scoped
// token, kept as metadata; the returned client token is unique per
// connection.
func (r *Room) Join(ws *websocket.Conn, session string) string {
	token := uuid.NewString()
	ws.SetReadLimit(r.opts.ReadLimit)
	conn := NewConn(ws, r.opts.SendBuffer)

	now := time.Now()
	c := &client{
		token:      token,
		session:    session,
		conn:       conn,
		joinedAt:   now,
		lastActive: now,
	}

	replay := r.register(c)
	for _, msg := range replay {
		r.send(conn, msg)
	}

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("client", token).Str("session", session).Msg("client joined")

	go r.writePump(conn)
	go r.readPump(token, conn)
	return token
}

// register inserts the client and returns the history to replay to it.
// The buffer is rehydrated from durable state when absent, so a room
// recreated after a restart serves the persisted window.
func (r *Room) register(c *client) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		msgs, found, err := r.hist.Load(r.id)
		if err != nil {
			log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("history rehydrate failed")
		} else {
			if found {
				r.buffer = msgs
			}
			r.loaded = true
		}
	}

	r.clients[c.token] = c

	replay := make([]domain.Message, len(r.buffer))
	copy(replay, r.buffer)
	return replay
}

// handleFrame processes one inbound frame from an open connection.
func (r *Room) handleFrame(token string, data []byte) {
	var in struct {
		Type   domain.Kind `json:"type"`
		Sender string      `json:"sender"`
		Avatar string      `json:"avatar"`
		Data   string      `json:"data"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.id)).Str("client", token).Msg("malformed frame")
		r.replyError(token, "error processing your message")
		return
	}

	r.mu.Lock()
	c, ok := r.clients[token]
	if ok {
		c.lastActive = time.Now()
	}
	r.mu.Unlock()
	if !ok {
		// frame raced a removal; the connection is already closed
		return
	}

	switch in.Type {
	case domain.KindLeave:
		r.leave(token, in.Sender)
	case domain.KindHeartbeat:
		// activity already refreshed, nothing to persist or fan out
	default:
		r.ingest(c, in.Sender, in.Avatar, in.Data)
	}
}

// ingest persists the message and, only once committed, fans it out to
// every client including the sender. Persistence failure means the message
// was never delivered: the sender gets an error frame and nobody else
// sees the payload.
func (r *Room) ingest(c *client, sender, avatar, data string) {
	msg := domain.NewMessage(domain.KindMessage, c.token, sender, avatar, data)

	r.persistMu.Lock()
	committed, err := r.hist.Append(r.id, msg)
	if err == nil {
		r.mu.Lock()
		r.buffer = committed
		c.messagesSent++
		r.mu.Unlock()
	}
	r.persistMu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Str("client", c.token).Msg("persist failed, message dropped")
		r.replyError(c.token, "message not delivered")
		return
	}

	r.Broadcast(msg, "")
}

// leave removes the client on an explicit leave frame and notifies the
// remaining members. The leaving client does not receive the notice.
func (r *Room) leave(token, sender string) {
	r.mu.Lock()
	c, ok := r.clients[token]
	delete(r.clients, token)
	r.mu.Unlock()
	if !ok {
		return
	}
	c.conn.Close()

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("client", token).Msg("client left")

	who := sender
	if who == "" {
		who = token
	}
	note := domain.NewMessage(domain.KindLeave, token, "server", "", fmt.Sprintf("Client %s left the chat", who))
	r.Broadcast(note, token)
}

// Drop removes a client after a transport-level close. Fire-and-forget:
// no notification is sent.
func (r *Room) Drop(token string) {
	r.mu.Lock()
	c, ok := r.clients[token]
	delete(r.clients, token)
	r.mu.Unlock()
	if ok {
		c.conn.Close()
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("client", token).Msg("client disconnected")
	}
}

// Broadcast fans msg out to every registered client except exclude. A send
// failure evicts that recipient and the pass continues; failure never
// propagates to other clients.
func (r *Room) Broadcast(msg domain.Message, exclude string) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("broadcast marshal")
		return
	}

	r.mu.RLock()
	targets := make([]*client, 0, len(r.clients))
	for token, c := range r.clients {
		if token == exclude {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	var dropped []*client
	sent := 0
	for _, c := range targets {
		if err := c.conn.TrySend(data); err != nil {
			// A full send buffer is a slow reader, not a dead transport.
			// Best-effort delivery: drop the frame, keep the client.
			if errors.Is(err, ErrBackpressure) {
				log.Warn().Str("module", "core.room").Str("room", string(r.id)).Str("client", c.token).Msg("send buffer full, frame dropped")
				continue
			}
			dropped = append(dropped, c)
			continue
		}
		sent++
	}

	for _, c := range dropped {
		r.mu.Lock()
		delete(r.clients, c.token)
		r.mu.Unlock()
		c.conn.Close()
		log.Warn().Str("module", "core.room").Str("room", string(r.id)).Str("client", c.token).Msg("send failed, client evicted")
	}

	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", sent).Int("dropped", len(dropped)).Msg("broadcast result")
}

func (r *Room) replyError(token, reason string) {
	r.mu.RLock()
	c, ok := r.clients[token]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.send(c.conn, domain.NewMessage(domain.KindError, token, "server", "", reason))
}

func (r *Room) send(conn *Conn, msg domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("send marshal")
		return
	}
	_ = conn.TrySend(data)
}

// run drives the periodic idle sweep until the room is stopped.
func (r *Room) run() {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap evicts clients idle beyond the threshold and tells the remaining
// members. Victims are collected under the lock, then closed and announced
// outside it so the sweep never holds up message handling.
func (r *Room) reap() {
	cutoff := time.Now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	var victims []*client
	for token, c := range r.clients {
		if c.lastActive.Before(cutoff) {
			delete(r.clients, token)
			victims = append(victims, c)
		}
	}
	r.mu.Unlock()

	for _, c := range victims {
		c.conn.Close()
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("client", c.token).Msg("idle client reaped")
		note := domain.NewMessage(domain.KindLeave, c.token, "server", "", fmt.Sprintf("Client %s timed out", c.token))
		r.Broadcast(note, "")
	}
}

// Stop tears down the reaper and every live connection. Durable history
// survives; a later Join recreates the room from it.
func (r *Room) Stop() {
	r.cancel()
	r.mu.Lock()
	for token, c := range r.clients {
		delete(r.clients, token)
		c.conn.Close()
	}
	r.mu.Unlock()
}
