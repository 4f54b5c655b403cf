package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bc-solo/internal/game"
)

func newTestConn() *ClientConn {
	return &ClientConn{
		ws:   nil,
		send: make(chan []byte, 256),
	}
}

func readEnvelopesNonBlocking(c *ClientConn) []Envelope {
	var envs []Envelope
	for {
		select {
		case msg := <-c.send:
			var env Envelope
			if json.Unmarshal(msg, &env) == nil {
				envs = append(envs, env)
			}
		default:
			return envs
		}
	}
}

func findLast(envs []Envelope, typ string) (Envelope, bool) {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == typ {
			return envs[i], true
		}
	}
	return Envelope{}, false
}

func findLastState(envs []Envelope) (StatePayload, bool) {
	env, ok := findLast(envs, "state")
	if !ok {
		return StatePayload{}, false
	}
	var st StatePayload
	if json.Unmarshal(env.Payload, &st) != nil {
		return StatePayload{}, false
	}
	return st, true
}

func newKnownSession(t *testing.T, secret game.Secret) *Session {
	t.Helper()
	st, err := game.NewState(secret)
	require.NoError(t, err)
	return Restored("s1", game.NewEngine(game.NewSeededSource(1)), st)
}

func typeGuess(t *testing.T, s *Session, digits ...int) StatePayload {
	t.Helper()
	for _, d := range digits {
		_, err := s.AddDigit(d)
		require.NoError(t, err)
	}
	view, err := s.SubmitGuess()
	require.NoError(t, err)
	return view
}

func TestSession_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "state hides secret while playing",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				c := newTestConn()
				s.Attach(c)

				_, err := s.AddDigit(4)
				require.NoError(t, err)

				st, ok := findLastState(readEnvelopesNonBlocking(c))
				require.True(t, ok)
				assert.Equal(t, game.StatusPlaying, st.Status)
				assert.Equal(t, []int{4}, st.Guess)
				assert.Nil(t, st.Secret)
				assert.NotContains(t, st.AvailableDigits, 4)
				assert.Len(t, st.AvailableDigits, 8)
			},
		},
		{
			name: "win broadcasts guess_result, game_finished and reveals secret",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				c := newTestConn()
				s.Attach(c)

				view := typeGuess(t, s, 1, 2, 3)
				assert.Equal(t, game.StatusWon, view.Status)
				assert.Equal(t, []int{1, 2, 3}, view.Secret)
				assert.Equal(t, 8, view.AttemptsLeft)

				envs := readEnvelopesNonBlocking(c)

				res, ok := findLast(envs, "guess_result")
				require.True(t, ok)
				var sg game.ScoredGuess
				require.NoError(t, json.Unmarshal(res.Payload, &sg))
				assert.Equal(t, 3, sg.Bulls)

				fin, ok := findLast(envs, "game_finished")
				require.True(t, ok)
				var p GameFinishedPayload
				require.NoError(t, json.Unmarshal(fin.Payload, &p))
				assert.Equal(t, GameFinishedPayload{Status: game.StatusWon, Secret: []int{1, 2, 3}, AttemptsUsed: 1}, p)
			},
		},
		{
			name: "rejected action returns engine error and keeps state",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				before := s.State()

				_, err := s.SubmitGuess()
				require.ErrorIs(t, err, game.ErrGuessIncomplete)
				_, err = s.RemoveDigit()
				require.ErrorIs(t, err, game.ErrGuessEmpty)
				_, err = s.AddDigit(0)
				require.ErrorIs(t, err, game.ErrDigitOutOfRange)

				assert.Equal(t, before, s.State())
			},
		},
		{
			name: "every accepted change is persisted",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				var snaps []game.Snapshot
				s.onPersist = func(snap game.Snapshot) { snaps = append(snaps, snap) }

				typeGuess(t, s, 4, 5, 6)
				_, _ = s.AddDigit(4) // accepted
				_, _ = s.AddDigit(4) // duplicate, not persisted

				require.Len(t, snaps, 5)
				last := snaps[len(snaps)-1]
				assert.Equal(t, []int{4}, last.Guess)
				assert.Len(t, last.History, 1)
			},
		},
		{
			name: "reset starts a fresh game after loss",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				for i := 0; i < game.MaxAttempts; i++ {
					typeGuess(t, s, 7, 8, 9)
				}
				require.Equal(t, game.StatusLost, s.View().Status)

				_, err := s.AddDigit(1)
				require.ErrorIs(t, err, game.ErrGameOver)

				view := s.Reset()
				assert.Equal(t, game.StatusPlaying, view.Status)
				assert.Equal(t, game.MaxAttempts, view.AttemptsLeft)
				assert.Empty(t, view.History)
				assert.Nil(t, view.Secret)
			},
		},
		{
			name: "second client replaces the first",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				c1 := newTestConn()
				c2 := newTestConn()
				s.Attach(c1)
				s.Attach(c2)

				c1.mu.Lock()
				closed := c1.closed
				c1.mu.Unlock()
				assert.True(t, closed)

				// stale detach must not drop the new client
				s.Detach(c1)
				s.SendStateTo()
				_, ok := findLastState(readEnvelopesNonBlocking(c2))
				assert.True(t, ok)
			},
		},
		{
			name: "errors go to the client that caused them",
			run: func(t *testing.T) {
				s := newKnownSession(t, game.Secret{1, 2, 3})
				old := &ClientConn{send: make(chan []byte, 8)}
				cur := newTestConn()
				s.Attach(cur)

				// old is no longer attached but still open
				s.SendError(old, "guess_incomplete", "late reply")
				_, ok := findLast(readEnvelopesNonBlocking(cur), "error")
				assert.False(t, ok, "attached client must not get another client's error")

				env, ok := findLast(readEnvelopesNonBlocking(old), "error")
				require.True(t, ok)
				var p ErrorPayload
				require.NoError(t, json.Unmarshal(env.Payload, &p))
				assert.Equal(t, "guess_incomplete", p.Code)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}
