package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"example.com/bc-solo/internal/auth"
	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/metrics"
)

const (
	authWait       = 10 * time.Second
	pingInterval   = 25 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // MVP
}

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

// trySend never blocks: a client that does not keep up loses messages.
func (c *ClientConn) trySend(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writeLoop owns the socket: it flushes queued messages after Close and
// then closes ws, which also unblocks the reader.
func (c *ClientConn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() { _ = c.ws.Close() }()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// validSessionID accepts canonical lowercase UUID strings only.
func validSessionID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// handleWS: WebSocket вход в сессию: GET /ws/{sessionID}
// Токен: заголовок Authorization: Bearer ... или первое сообщение {"type":"auth"}.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !validSessionID(id) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	authed := false
	if h := r.Header.Get("Authorization"); h != "" {
		token := strings.TrimPrefix(h, "Bearer ")
		if _, err := s.verifier.VerifyFor(token, id); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		authed = true
	}

	// pinned so the sweeper cannot evict it during the auth wait
	sess, release, ok, err := s.sessions.Acquire(r.Context(), id)
	defer release()
	if err != nil {
		s.log.Error("ws: load session", "session", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.SetReadLimit(maxMessageSize)

	if !authed {
		if err := s.awaitAuth(ws, id); err != nil {
			_ = ws.WriteJSON(Envelope{
				Type:    "error",
				Payload: mustJSON(ErrorPayload{Code: "unauthorized", Message: err.Error()}),
			})
			_ = ws.Close()
			return
		}
	}

	cc := newClientConn(ws)
	sess.Attach(cc)
	metrics.WSConnections.Inc()
	s.log.Debug("ws connected", "session", id)

	go cc.writeLoop()

	// initial state
	sess.SendStateTo()

	s.readLoop(ws, sess, cc)

	// disconnect
	sess.Detach(cc)
	cc.Close()
	metrics.WSConnections.Dec()
	s.log.Debug("ws disconnected", "session", id)
}

func (s *Server) awaitAuth(ws *websocket.Conn, id string) error {
	_ = ws.SetReadDeadline(time.Now().Add(authWait))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	_, data, err := ws.ReadMessage()
	if err != nil {
		return errors.New("no auth message")
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != "auth" {
		return errors.New("first message must be auth")
	}
	var p AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Token == "" {
		return errors.New("missing token")
	}
	if _, err := s.verifier.VerifyFor(p.Token, id); err != nil {
		if errors.Is(err, auth.ErrWrongSession) {
			return err
		}
		return errors.New("invalid token")
	}
	return nil
}

func (s *Server) readLoop(ws *websocket.Conn, sess *Session, cc *ClientConn) {
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sess.SendError(cc, "bad_json", "invalid json")
			continue
		}

		switch env.Type {
		case "add_digit":
			var p AddDigitPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				sess.SendError(cc, "bad_input", "invalid payload")
				continue
			}
			_, err = sess.AddDigit(p.Digit)

		case "remove_digit":
			_, err = sess.RemoveDigit()

		case "submit_guess":
			_, err = sess.SubmitGuess()

		case "reset":
			sess.Reset()

		case "state":
			sess.SendStateTo()

		case "auth":
			// уже авторизован

		default:
			sess.SendError(cc, "unknown_type", "unknown message type")
			continue
		}

		if err != nil {
			sess.SendError(cc, errorCode(err), err.Error())
		}
	}
}

func errorCode(err error) string {
	if code := game.ErrorCode(err); code != "" {
		return code
	}
	return "bad_input"
}
