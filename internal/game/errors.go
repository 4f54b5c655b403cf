package game

import "errors"

// Rejections returned by the Try* operations. The state they return
// alongside is always the unchanged input state.
var (
	ErrGameOver        = errors.New("game is over")
	ErrDigitOutOfRange = errors.New("digit must be in 1..9")
	ErrGuessFull       = errors.New("guess already has 3 digits")
	ErrDuplicateDigit  = errors.New("digit already used in guess")
	ErrGuessEmpty      = errors.New("guess is empty")
	ErrGuessIncomplete = errors.New("guess must have exactly 3 digits")

	ErrInvalidSecret   = errors.New("secret must be 3 distinct digits 1..9")
	ErrInvalidSnapshot = errors.New("invalid game snapshot")
)

// ErrorCode maps an engine rejection to a stable machine-readable code.
// Unknown errors map to "".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrGameOver):
		return "game_over"
	case errors.Is(err, ErrDigitOutOfRange):
		return "invalid_digit"
	case errors.Is(err, ErrGuessFull):
		return "guess_full"
	case errors.Is(err, ErrDuplicateDigit):
		return "duplicate_digit"
	case errors.Is(err, ErrGuessEmpty):
		return "guess_empty"
	case errors.Is(err, ErrGuessIncomplete):
		return "guess_incomplete"
	default:
		return ""
	}
}
