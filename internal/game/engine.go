package game

// Engine creates games. It holds only the randomness used for secrets, so a
// single Engine may serve any number of independent states.
type Engine struct {
	src Source
}

// NewEngine returns an engine drawing secrets from src (DefaultSource if nil).
func NewEngine(src Source) *Engine {
	if src == nil {
		src = DefaultSource()
	}
	return &Engine{src: src}
}

// Initialize starts a fresh game: new secret, empty history and guess,
// status playing, MaxAttempts attempts.
func (e *Engine) Initialize() State {
	return State{
		secret:       GenerateSecret(e.src),
		status:       StatusPlaying,
		attemptsLeft: MaxAttempts,
	}
}

// Reset discards whatever game the caller held and starts a new one.
func (e *Engine) Reset() State {
	return e.Initialize()
}
