package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/api"
	"clipforge/internal/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to loopback; browser clients connect from file://
	// or a dev server, so origin checks are not useful here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams job events to the client until either side goes
// away. Subscribers that stop reading are dropped by the hub rather than
// allowed to stall merge progress.
func (s *apiServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	sub := s.daemon.hub.Subscribe()
	log := s.log().With(logging.String("remote", conn.RemoteAddr().String()))
	log.Debug("websocket subscriber connected")

	done := make(chan struct{})

	// Reader: the client sends nothing meaningful, but reading is required
	// to notice disconnects and process control frames.
	go func() {
		defer close(done)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		s.daemon.hub.Unsubscribe(sub)
		_ = conn.Close()
		log.Debug("websocket subscriber disconnected")
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if writeErr := conn.WriteJSON(api.FromEvent(ev)); writeErr != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if pingErr := conn.WriteMessage(websocket.PingMessage, nil); pingErr != nil {
				return
			}
		case <-done:
			return
		}
	}
}
