package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guilledk/telos-works/worksmachine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 5 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// handleFeed streams every committed command to the client until either side goes away.
// The feed is write only, anything the client sends is discarded.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	// subscribe first so nothing committed after the handshake is missed
	feed, cancel := s.conductor.Subscribe()
	defer cancel()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		worksmachine.LogCLI("failed to upgrade websocket", 3)
		return
	}
	defer conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// reader
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					worksmachine.LogCLI("unexpected close of websocket", 3)
				}
				return
			}
		}
	}()

	// writer
	for {
		select {
		case committed, ok := <-feed:
			if !ok {
				s.closeFeed(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(committed); err != nil {
				worksmachine.LogCLI(err.Error(), 3)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				worksmachine.LogCLI("couldn't ping, exterminating socket", 3)
				return
			}
		case <-s.done:
			s.closeFeed(conn)
			return
		case <-gone:
			return
		}
	}
}

func (s *Server) closeFeed(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
