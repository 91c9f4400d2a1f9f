package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livetemplate/newyear/internal/session"
)

const writeWait = 10 * time.Second

// Message types sent to clients
const (
	MessageState = "state"
	MessageError = "error"
)

// Message is a server-to-client WebSocket frame. Clients send
// session.Action frames: {"action": "...", "data": {...}}.
type Message struct {
	Type  string        `json:"type"`
	State *session.View `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}

// wsClient is one connection bound to one session.
type wsClient struct {
	conn    *websocket.Conn
	session *session.Session
	debug   bool

	mu sync.Mutex // serializes writes
}

func (c *wsClient) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsClient) sendState() {
	view := c.session.View()
	if err := c.send(Message{Type: MessageState, State: &view}); err != nil && c.debug {
		log.Printf("[WS] Failed to send state to %s: %v", c.conn.RemoteAddr(), err)
	}
}

func (c *wsClient) sendError(err error) {
	if werr := c.send(Message{Type: MessageError, Error: err.Error()}); werr != nil && c.debug {
		log.Printf("[WS] Failed to send error to %s: %v", c.conn.RemoteAddr(), werr)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.cfg.API.GetCORSOrigins()
	origin := r.Header.Get("Origin")
	if len(origins) == 0 || origin == "" {
		return true
	}
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// serveWebSocket runs one session for the lifetime of the connection.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}

	if !s.beginHandler() {
		refuse(conn)
		return
	}
	defer s.handlers.Done()

	sess := s.sessions.Create()
	client := &wsClient{conn: conn, session: sess, debug: s.cfg.Server.Debug}
	unsubscribe := sess.OnChange(client.sendState)

	if !s.registerClient(client) {
		unsubscribe()
		s.sessions.Remove(sess.ID)
		refuse(conn)
		return
	}
	defer func() {
		s.unregisterClient(client)
		unsubscribe()
		s.sessions.Remove(sess.ID)
		conn.Close()
	}()

	if s.cfg.Server.Debug {
		log.Printf("[WS] Client connected: %s (session %s)", conn.RemoteAddr(), sess.ID)
	}

	client.sendState()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}

		var action session.Action
		if err := json.Unmarshal(data, &action); err != nil {
			client.sendError(errInvalidMessage)
			continue
		}
		if s.cfg.Server.Debug {
			log.Printf("[WS] Session %s: %s", sess.ID, action.Name)
		}

		if _, err := sess.Dispatch(action); err != nil {
			client.sendError(err)
			continue
		}
		client.sendState()
	}

	if s.cfg.Server.Debug {
		log.Printf("[WS] Client disconnected: %s", conn.RemoteAddr())
	}
}

func refuse(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	conn.Close()
}

// beginHandler counts a connection handler in, unless the server is closing.
func (s *Server) beginHandler() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.closing {
		return false
	}
	s.handlers.Add(1)
	return true
}

// registerClient reports false once the server is closing.
func (s *Server) registerClient(c *wsClient) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.clients))
	return true
}

func (s *Server) unregisterClient(c *wsClient) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.clients, c)
	log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.clients))
}

// closeClients disconnects every client and waits until their read loops
// have returned, so no action is dispatched after it.
func (s *Server) closeClients() {
	s.connMu.Lock()
	s.closing = true
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.connMu.Unlock()

	if len(clients) > 0 {
		log.Printf("[Server] Closing %d WebSocket connections", len(clients))
	}
	for _, c := range clients {
		c.conn.Close()
	}
	s.handlers.Wait()
}

// broadcastState pushes a fresh view to every connected session.
func (s *Server) broadcastState() {
	s.connMu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.connMu.RUnlock()

	if len(clients) > 0 {
		log.Printf("[Server] Broadcasting state to %d connections", len(clients))
	}
	for _, c := range clients {
		c.sendState()
	}
}
