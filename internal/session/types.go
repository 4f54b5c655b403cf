package session

import (
	"encoding/json"

	"example.com/bc-solo/internal/game"
)

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// входящие
type AuthPayload struct {
	Token string `json:"token"`
}

type AddDigitPayload struct {
	Digit int `json:"digit"`
}

// исходящие
type StatePayload struct {
	SessionID       string             `json:"sessionId"`
	Status          game.Status        `json:"status"`
	Guess           []int              `json:"guess"`
	CanSubmit       bool               `json:"canSubmit"`
	AvailableDigits []int              `json:"availableDigits"`
	History         []game.ScoredGuess `json:"history"`
	AttemptsLeft    int                `json:"attemptsLeft"`
	AttemptsUsed    int                `json:"attemptsUsed"`
	MaxAttempts     int                `json:"maxAttempts"`
	Secret          []int              `json:"secret,omitempty"` // только после окончания игры
}

type GameFinishedPayload struct {
	Status       game.Status `json:"status"`
	Secret       []int       `json:"secret"`
	AttemptsUsed int         `json:"attemptsUsed"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewStatePayload renders st for the player. The secret is included only
// once the game is over.
func NewStatePayload(id string, st game.State) StatePayload {
	available := make([]int, 0, game.MaxDigit)
	for d := game.MinDigit; d <= game.MaxDigit; d++ {
		if st.Available(d) {
			available = append(available, d)
		}
	}

	p := StatePayload{
		SessionID:       id,
		Status:          st.Status(),
		Guess:           st.Guess().Digits(),
		CanSubmit:       st.CanSubmit(),
		AvailableDigits: available,
		History:         st.History(),
		AttemptsLeft:    st.AttemptsLeft(),
		AttemptsUsed:    st.AttemptsUsed(),
		MaxAttempts:     game.MaxAttempts,
	}
	if st.Finished() {
		p.Secret = st.Secret().Digits()
	}
	return p
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
