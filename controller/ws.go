package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"collab-docs/hub"
	"collab-docs/middleware"
)

var upgradeConnection = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and pumps inbound frames into the hub until
// the transport closes. Leave happens exactly once, on the way out.
func ServeWS(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		connection, err := upgradeConnection.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade refused", "err", err)
			return
		}

		session := h.Connect(connection, middleware.CurrentPrincipal(c))
		defer h.Disconnect(session)

		for {
			_, message, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("websocket read failed", "session", session.ID, "err", err)
				}
				return
			}
			h.HandleMessage(session, message)
		}
	}
}
