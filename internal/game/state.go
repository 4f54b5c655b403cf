package game

// State is one immutable snapshot of a game. Every operation returns a new
// State and leaves its receiver untouched; states never share mutable memory
// that a later operation writes to.
//
// The zero State is not playable. Use Engine.Initialize or NewState.
type State struct {
	secret       Secret
	history      []ScoredGuess
	guess        Guess
	status       Status
	attemptsLeft int
}

// NewState starts a game with a known secret.
func NewState(secret Secret) (State, error) {
	if !secret.Valid() {
		return State{}, ErrInvalidSecret
	}
	return State{
		secret:       secret,
		status:       StatusPlaying,
		attemptsLeft: MaxAttempts,
	}, nil
}

// Secret is readable at any time; callers should surface it only once
// Status().Terminal() is true.
func (s State) Secret() Secret { return s.secret }
func (s State) Guess() Guess { return s.guess }
func (s State) Status() Status { return s.status }
func (s State) AttemptsLeft() int { return s.attemptsLeft }
func (s State) AttemptsUsed() int { return len(s.history) }
func (s State) HistoryLen() int { return len(s.history) }
func (s State) Playing() bool { return s.status == StatusPlaying }
func (s State) CanSubmit() bool { return s.Playing() && s.guess.Complete() }
func (s State) Finished() bool { return s.status.Terminal() }
func (s State) IsZero() bool { return s.status == "" }

// History returns a copy of the scored guesses, oldest first.
func (s State) History() []ScoredGuess {
	out := make([]ScoredGuess, len(s.history))
	copy(out, s.history)
	return out
}

// LastGuess returns the most recent scored guess.
func (s State) LastGuess() (ScoredGuess, bool) {
	if len(s.history) == 0 {
		return ScoredGuess{}, false
	}
	return s.history[len(s.history)-1], true
}

// Available reports whether digit d may be added right now, i.e. whether a
// number pad should keep its button enabled.
func (s State) Available(d int) bool {
	_, err := s.TryAddDigit(d)
	return err == nil
}

// AddDigit appends d to the in-progress guess. Illegal calls are ignored.
func (s State) AddDigit(d int) State {
	next, _ := s.TryAddDigit(d)
	return next
}

// RemoveDigit drops the last digit of the in-progress guess. Illegal calls
// are ignored.
func (s State) RemoveDigit() State {
	next, _ := s.TryRemoveDigit()
	return next
}

// SubmitGuess scores a complete in-progress guess. Illegal calls are ignored.
func (s State) SubmitGuess() State {
	next, _ := s.TrySubmitGuess()
	return next
}

func (s State) TryAddDigit(d int) (State, error) {
	switch {
	case !s.Playing():
		return s, ErrGameOver
	case !validDigit(d):
		return s, ErrDigitOutOfRange
	case s.guess.Complete():
		return s, ErrGuessFull
	case s.guess.Contains(d):
		return s, ErrDuplicateDigit
	}

	next := s
	next.guess = s.guess.with(d)
	return next, nil
}

func (s State) TryRemoveDigit() (State, error) {
	switch {
	case !s.Playing():
		return s, ErrGameOver
	case s.guess.Len() == 0:
		return s, ErrGuessEmpty
	}

	next := s
	next.guess = s.guess.withoutLast()
	return next, nil
}

func (s State) TrySubmitGuess() (State, error) {
	switch {
	case !s.Playing():
		return s, ErrGameOver
	case !s.guess.Complete():
		return s, ErrGuessIncomplete
	}

	digits := s.guess.digits
	bulls, cows := BullsCows(s.secret, digits)

	// always a fresh backing array: older states keep their own history
	history := make([]ScoredGuess, len(s.history), len(s.history)+1)
	copy(history, s.history)
	history = append(history, ScoredGuess{Digits: digits, Bulls: bulls, Cows: cows})

	next := State{
		secret:       s.secret,
		history:      history,
		status:       StatusPlaying,
		attemptsLeft: s.attemptsLeft - 1,
	}
	switch {
	case bulls == DigitsLen:
		next.status = StatusWon
	case next.attemptsLeft == 0:
		next.status = StatusLost
	}
	return next, nil
}
