package game

import "fmt"

// Snapshot: сериализуемое состояние игры (для Redis/Postgres).
type Snapshot struct {
	Secret       []int         `json:"secret"`
	History      []ScoredGuess `json:"history"`
	Guess        []int         `json:"guess"`
	Status       Status        `json:"status"`
	AttemptsLeft int           `json:"attemptsLeft"`
}

func (s State) Snapshot() Snapshot {
	return Snapshot{
		Secret:       s.secret.Digits(),
		History:      s.History(),
		Guess:        s.guess.Digits(),
		Status:       s.status,
		AttemptsLeft: s.attemptsLeft,
	}
}

// Restore rebuilds a State from a snapshot, re-checking every invariant:
// scores are recomputed from the secret and must match what was stored.
func Restore(snap Snapshot) (State, error) {
	if len(snap.Secret) != DigitsLen {
		return State{}, fmt.Errorf("%w: secret has %d digits", ErrInvalidSnapshot, len(snap.Secret))
	}
	var secret Secret
	copy(secret[:], snap.Secret)
	if !secret.Valid() {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, ErrInvalidSecret)
	}
	if !snap.Status.valid() {
		return State{}, fmt.Errorf("%w: unknown status %q", ErrInvalidSnapshot, snap.Status)
	}
	if snap.AttemptsLeft < 0 || snap.AttemptsLeft > MaxAttempts {
		return State{}, fmt.Errorf("%w: attemptsLeft %d out of range", ErrInvalidSnapshot, snap.AttemptsLeft)
	}
	if len(snap.History)+snap.AttemptsLeft != MaxAttempts {
		return State{}, fmt.Errorf("%w: %d guesses with %d attempts left", ErrInvalidSnapshot, len(snap.History), snap.AttemptsLeft)
	}

	won := false
	for i, sg := range snap.History {
		if !distinctDigits(sg.Digits[:]) {
			return State{}, fmt.Errorf("%w: guess #%d has invalid digits", ErrInvalidSnapshot, i+1)
		}
		b, c := BullsCows(secret, sg.Digits)
		if b != sg.Bulls || c != sg.Cows {
			return State{}, fmt.Errorf("%w: guess #%d score mismatch", ErrInvalidSnapshot, i+1)
		}
		if sg.Exact() {
			if i != len(snap.History)-1 {
				return State{}, fmt.Errorf("%w: play continued after a win", ErrInvalidSnapshot)
			}
			won = true
		}
	}

	var want Status
	switch {
	case won:
		want = StatusWon
	case snap.AttemptsLeft == 0:
		want = StatusLost
	default:
		want = StatusPlaying
	}
	if snap.Status != want {
		return State{}, fmt.Errorf("%w: status %q, history implies %q", ErrInvalidSnapshot, snap.Status, want)
	}

	if len(snap.Guess) > DigitsLen || !distinctDigits(snap.Guess) {
		return State{}, fmt.Errorf("%w: bad in-progress guess", ErrInvalidSnapshot)
	}
	if want.Terminal() && len(snap.Guess) > 0 {
		return State{}, fmt.Errorf("%w: in-progress guess on a finished game", ErrInvalidSnapshot)
	}
	var g Guess
	for _, d := range snap.Guess {
		g = g.with(d)
	}

	var history []ScoredGuess
	if len(snap.History) > 0 {
		history = make([]ScoredGuess, len(snap.History))
		copy(history, snap.History)
	}

	return State{
		secret:       secret,
		history:      history,
		guess:        g,
		status:       snap.Status,
		attemptsLeft: snap.AttemptsLeft,
	}, nil
}
