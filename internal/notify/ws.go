package notify

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/journal-submission-api/internal/auth"
)

var welcome = []byte(`{"type":"welcome","transport":"websocket"}` + "\n")

// WSHandler upgrades the request and streams events until the peer goes
// away. ?submission=<id> narrows the stream to one submission. Events are
// filtered by the caller's identity, so the route should sit behind
// auth.OptionalAuth.
func WSHandler(hub *Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		var submission int64
		if raw := c.Query("submission"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PARAMETER", "message": "submission must be a positive integer"})
				return
			}
			submission = id
		}
		actor := auth.ActorFrom(c)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug().Err(err).Msg("Websocket upgrade failed")
			return
		}

		client := hub.register(ws, actor, submission, welcome)
		hub.log.Info().Int64("user_id", actor.UserID).Int64("submission", submission).Msg("Websocket client connected")

		// Incoming messages are ignored; the read loop only detects disconnects.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.unregister(client)
		hub.log.Info().Int64("user_id", actor.UserID).Msg("Websocket client disconnected")
	}
}
