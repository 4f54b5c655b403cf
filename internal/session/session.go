package session

import (
	"encoding/json"
	"sync"
	"time"

	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/metrics"
)

// Session is the single mutable slot holding one player's current game.
// All access goes through mu; the engine itself is pure.
type Session struct {
	id string
	mu sync.Mutex

	engine *game.Engine
	state  game.State

	conn     *ClientConn
	lastSeen time.Time
	pins     int // outstanding Service.Acquire holds

	onPersist func(game.Snapshot)
}

// New starts a session with a fresh game.
func New(id string, engine *game.Engine) *Session {
	return &Session{
		id:       id,
		engine:   engine,
		state:    engine.Initialize(),
		lastSeen: time.Now(),
	}
}

// Restored wraps an already validated state (e.g. loaded from storage).
func Restored(id string, engine *game.Engine, st game.State) *Session {
	return &Session{
		id:       id,
		engine:   engine,
		state:    st,
		lastSeen: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current value of the slot.
func (s *Session) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) View() StatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewStatePayload(s.id, s.state)
}

// Attach makes cc the session's client. A previous client is closed:
// one player, one live tab.
func (s *Session) Attach(cc *ClientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && s.conn != cc {
		s.sendLocked(s.conn, Envelope{
			Type:    "error",
			Payload: mustJSON(ErrorPayload{Code: "replaced", Message: "session opened elsewhere"}),
		})
		s.conn.Close()
	}
	s.conn = cc
	s.lastSeen = time.Now()
}

// Detach forgets cc if it is still the attached client.
func (s *Session) Detach(cc *ClientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == cc {
		s.conn = nil
	}
	s.lastSeen = time.Now()
}

func (s *Session) AddDigit(d int) (StatePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.TryAddDigit(d)
	return s.applyLocked(next, err)
}

func (s *Session) RemoveDigit() (StatePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.TryRemoveDigit()
	return s.applyLocked(next, err)
}

func (s *Session) SubmitGuess() (StatePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.TrySubmitGuess()
	if err != nil {
		return s.applyLocked(next, err)
	}

	metrics.GuessesSubmitted.Inc()
	if last, ok := next.LastGuess(); ok {
		s.broadcastLocked(Envelope{Type: "guess_result", Payload: mustJSON(last)})
	}

	view, _ := s.applyLocked(next, nil)

	if next.Finished() {
		metrics.GamesFinished.WithLabelValues(string(next.Status())).Inc()
		s.broadcastLocked(Envelope{
			Type: "game_finished",
			Payload: mustJSON(GameFinishedPayload{
				Status:       next.Status(),
				Secret:       next.Secret().Digits(),
				AttemptsUsed: next.AttemptsUsed(),
			}),
		})
	}
	return view, nil
}

// Reset discards the current game and starts a new one. Always succeeds.
func (s *Session) Reset() StatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.GamesStarted.Inc()
	view, _ := s.applyLocked(s.engine.Reset(), nil)
	return view
}

func (s *Session) SendStateTo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastStateLocked()
}

// SendError reports a failed request to the client that made it, which
// may no longer be the attached one.
func (s *Session) SendError(cc *ClientConn, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sendLocked(cc, Envelope{
		Type:    "error",
		Payload: mustJSON(ErrorPayload{Code: code, Message: message}),
	})
}

// idleSince reports when the session was last touched, and whether it is
// busy: a client is attached or a caller holds a pin.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.conn != nil || s.pins > 0
}

func (s *Session) touch(pin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	if pin {
		s.pins++
	}
}

func (s *Session) unpin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins--
	s.lastSeen = time.Now()
}

// persist saves the current state right away.
func (s *Session) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// applyLocked replaces the slot wholesale on success. On a rejection the
// slot is untouched and the engine error is returned as is.
func (s *Session) applyLocked(next game.State, err error) (StatePayload, error) {
	s.lastSeen = time.Now()
	if err != nil {
		metrics.RejectedActions.WithLabelValues(game.ErrorCode(err)).Inc()
		return NewStatePayload(s.id, s.state), err
	}

	s.state = next
	s.broadcastStateLocked()
	s.persistLocked()
	return NewStatePayload(s.id, s.state), nil
}

func (s *Session) broadcastStateLocked() {
	s.broadcastLocked(Envelope{Type: "state", Payload: mustJSON(NewStatePayload(s.id, s.state))})
}

func (s *Session) broadcastLocked(env Envelope) {
	if s.conn != nil {
		s.sendLocked(s.conn, env)
	}
}

func (s *Session) sendLocked(conn *ClientConn, env Envelope) {
	if conn == nil {
		return
	}
	b, _ := json.Marshal(env)
	conn.trySend(b)
}

func (s *Session) persistLocked() {
	if s.onPersist == nil {
		return
	}
	s.onPersist(s.state.Snapshot())
}
