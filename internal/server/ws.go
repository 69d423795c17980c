package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browsers connect from a separately hosted frontend, so origin checking
	// is left to the reverse proxy in front of this server.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades the request and hands the connection to the hub.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "err", err)
			return
		}

		conn := hub.NewConn(ws)
		hub.Register <- conn

		go conn.WritePump()
		go conn.ReadPump()
	}
}
