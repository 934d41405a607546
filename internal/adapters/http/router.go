// Package http is the stateless front door: it resolves room addresses and
// forwards upgrade requests to the addressed room actor.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"roomcast/internal/app"
	"roomcast/internal/config"
	"roomcast/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Gateway struct {
	rooms *app.Manager
}

func SetupRouter(cfg *config.Config, rooms *app.Manager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RoomcastSessions", store))
	r.Use(ClientTokenMiddleware())

	gw := &Gateway{rooms: rooms}

	api := r.Group("/api")
	api.POST("/room", gw.createRoom)
	api.GET("/room/:name", gw.joinRoom)
	api.GET("/room/:name/*rest", gw.joinRoom)
	api.GET("/rooms", gw.listRooms)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

// createRoom mints a fresh room id. No actor state is allocated yet; the
// room comes alive on its first connection.
func (gw *Gateway) createRoom(c *gin.Context) {
	id := domain.NewRoomID()
	log.Info().Str("module", "adapters.http").Str("room", string(id)).Msg("room created")
	c.String(http.StatusCreated, id.String())
}

// joinRoom resolves the room address and hands the connection to the actor.
// Canonical 64-hex ids address a room directly; shorter names hash to a
// stable id; anything else is rejected.
func (gw *Gateway) joinRoom(c *gin.Context) {
	name := c.Param("name")

	id, err := domain.RoomIDFromName(name)
	if err != nil {
		if errors.Is(err, domain.ErrNameTooLong) {
			c.String(http.StatusBadRequest, "Name too long")
			return
		}
		c.String(http.StatusBadRequest, "Invalid room name")
		return
	}

	if c.Param("rest") == "/members" && !websocket.IsWebSocketUpgrade(c.Request) {
		gw.listMembers(c, id)
		return
	}

	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusUpgradeRequired, "Expected WebSocket")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
		return
	}

	room := gw.rooms.GetOrCreate(id)
	token := room.Join(ws, c.GetString("client_token"))
	log.Info().Str("module", "adapters.http").Str("room", string(id)).Str("client", token).Msg("connection forwarded")
}

// listMembers reports the active clients of a room without joining it.
func (gw *Gateway) listMembers(c *gin.Context, id domain.RoomID) {
	room := gw.rooms.GetOrCreate(id)
	c.JSON(http.StatusOK, gin.H{"members": room.ActiveClients()})
}

func (gw *Gateway) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": gw.rooms.List()})
}
