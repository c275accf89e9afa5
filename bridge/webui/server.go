package webui

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades a request at /stream to a websocket and registers
// it with the hub, writing every broadcast frame as a binary message
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("webui: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := &Client{
		Out:    make(chan []byte, 64),
		Closed: make(chan struct{}),
	}
	h.Add(client)
	defer h.Remove(client)

	go h.readLoop(conn, client)

	for {
		select {
		case frame, ok := <-client.Out:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-client.Closed:
			return
		}
	}
}

// readLoop discards inbound messages (the dashboard is read-only) but
// must keep reading so gorilla/websocket's control-frame handling and
// disconnect detection still run.
func (h *Hub) readLoop(conn *websocket.Conn, client *Client) {
	defer client.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ListenAndServe starts an HTTP server on addr exposing the hub at
// /stream. It returns immediately; the caller owns the returned
// server's lifecycle (Shutdown/Close).
func (h *Hub) ListenAndServe(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/stream", h)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("webui: server error: %v", err)
		}
	}()
	return srv
}
