// Websocket streaming log transport.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendQueue  = 16
)

// WebsocketAppender streams drained mirror contents to connected websocket
// clients. Loop is serviced by the maintenance supervisor's flush tick; a
// client whose send queue is full misses that broadcast rather than
// blocking the supervisor.
type WebsocketAppender struct {
	mirror   *Mirror
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebsocketAppender returns an appender draining the given mirror.
func NewWebsocketAppender(mirror *Mirror) *WebsocketAppender {
	return &WebsocketAppender{
		mirror: mirror,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades a request to a websocket log stream.
func (a *WebsocketAppender) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendQueue)}

	a.mu.Lock()
	a.clients[c] = struct{}{}
	a.mu.Unlock()

	go a.writePump(c)
	go a.readPump(c)
}

// Loop drains the mirror and broadcasts its contents. Called periodically;
// a no-op when the mirror is empty or contended.
func (a *WebsocketAppender) Loop() {
	msg := a.mirror.GetAndClear()
	if msg == "" {
		return
	}
	payload := []byte(msg)

	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.clients {
		select {
		case c.send <- payload:
		default:
			// Slow client, skip this broadcast.
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (a *WebsocketAppender) ClientCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// Close disconnects all clients.
func (a *WebsocketAppender) Close() {
	a.mu.Lock()
	clients := make([]*wsClient, 0, len(a.clients))
	for c := range a.clients {
		clients = append(clients, c)
	}
	a.clients = make(map[*wsClient]struct{})
	a.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

func (a *WebsocketAppender) remove(c *wsClient) {
	a.mu.Lock()
	if _, ok := a.clients[c]; ok {
		delete(a.clients, c)
		close(c.send)
	}
	a.mu.Unlock()
}

// readPump discards inbound frames and detects disconnects.
func (a *WebsocketAppender) readPump(c *wsClient) {
	defer func() {
		a.remove(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				GetLogger("log.ws").Debug("websocket read: %v", err)
			}
			return
		}
	}
}

// writePump delivers queued broadcasts and keeps the connection alive.
func (a *WebsocketAppender) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
