package core

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"roomcast/internal/domain"
)

const writeWait = 5 * time.Second

// writePump drains the outbound queue onto the socket and emits a server
// heartbeat frame on the ping period. A write error ends the pump; the
// read side notices the dead socket and unregisters the client.
func (r *Room) writePump(c *Conn) {
	ping := time.NewTicker(r.opts.PingPeriod)
	defer ping.Stop()

	heartbeat, _ := json.Marshal(domain.Message{Type: domain.KindHeartbeat, Sender: "server"})

	for {
		select {
		case <-r.ctx.Done():
			log.Info().Str("module", "core.io").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "core.io").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "core.io").Msg("writePump write error")
				return
			}
		case <-ping.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, heartbeat); err != nil {
				log.Warn().Err(err).Str("module", "core.io").Msg("writePump heartbeat error")
				return
			}
		}
	}
}

// readPump feeds inbound frames into the room until the socket dies or the
// room stops, then removes the client.
func (r *Room) readPump(token string, c *Conn) {
	defer func() {
		log.Info().Str("module", "core.io").Str("client", token).Msg("readPump closing")
		c.Close()
		r.Drop(token)
	}()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "core.io").Str("client", token).Msg("readPump read error")
				return
			}
			r.handleFrame(token, data)
		}
	}
}
