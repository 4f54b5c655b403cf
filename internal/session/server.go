package session

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"example.com/bc-solo/internal/auth"
)

// TokenVerifier checks that a bearer token was issued for a session.
type TokenVerifier interface {
	VerifyFor(token, sessionID string) (*auth.Claims, error)
}

type Server struct {
	sessions *Service
	verifier TokenVerifier
	log      *slog.Logger
}

func NewServer(sessions *Service, verifier TokenVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sessions: sessions,
		verifier: verifier,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", s.handleWS)
}
