package room

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the desktop shell and arbitrary LAN hosts.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to the watch-together channel.
// The media identifier comes from the mediaId query parameter; identity
// comes from the request context when a valid token was presented.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID := r.URL.Query().Get("mediaId")
		if mediaID == "" {
			http.Error(w, "mediaId query parameter is required", http.StatusBadRequest)
			return
		}

		var identity *Identity
		if claims := auth.GetClaims(r.Context()); claims != nil {
			identity = &Identity{UserID: claims.UserID, Username: claims.Username}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		m := hub.Join(mediaID, identity)
		go writePump(conn, m)
		go readPump(conn, m)
	}
}

// readPump relays inbound events to the room until the connection
// closes, then triggers the leave transition.
func readPump(conn *websocket.Conn, m *Member) {
	defer func() {
		m.Leave()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil || ev.Type == "" {
			// Malformed events are dropped; the connection stays open.
			logging.Debug("dropping malformed room message", zap.Error(err))
			continue
		}
		m.Handle(ev)
	}
}

// writePump forwards queued events to the connection and keeps it
// alive with pings.
func writePump(conn *websocket.Conn, m *Member) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-m.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-m.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
