package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/bc-solo/internal/auth"
	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/session"
)

type SessionHandler struct {
	Sessions *session.Service
	Auth     *auth.Service
	TokenTTL time.Duration
	Log      *slog.Logger
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

type AddDigitRequest struct {
	Digit *int `json:"digit"`
}

// Routes mounts the REST API under the caller's router.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/api/session", h.Create)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.Auth))
		r.Get("/api/session", h.Get)
		r.Delete("/api/session", h.End)
		r.Post("/api/session/digits", h.AddDigit)
		r.Delete("/api/session/digits", h.RemoveDigit)
		r.Post("/api/session/guess", h.SubmitGuess)
		r.Post("/api/session/reset", h.Reset)
	})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Create(r.Context())
	if err != nil {
		h.logger().Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	token, err := h.Auth.Sign(sess.ID(), h.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: sess.ID(), Token: token})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (h *SessionHandler) AddDigit(w http.ResponseWriter, r *http.Request) {
	var req AddDigitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Digit == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be {\"digit\": 1..9}")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := sess.AddDigit(*req.Digit)
	h.writeResult(w, view, err)
}

func (h *SessionHandler) RemoveDigit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := sess.RemoveDigit()
	h.writeResult(w, view, err)
}

func (h *SessionHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := sess.SubmitGuess()
	h.writeResult(w, view, err)
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Reset())
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, _ := SessionIDFromContext(r.Context())
	if err := h.Sessions.Delete(r.Context(), id); err != nil {
		h.logger().Error("delete session", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok || id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context")
		return nil, false
	}

	sess, err := h.Sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found or expired")
		return nil, false
	}
	if err != nil {
		h.logger().Error("load session", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load session")
		return nil, false
	}
	return sess, true
}

// writeResult: engine rejections are 409 with the engine's code, the body
// carries the unchanged state.
func (h *SessionHandler) writeResult(w http.ResponseWriter, view session.StatePayload, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, view)
		return
	}
	code := game.ErrorCode(err)
	if code == "" {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusConflict, RejectedResponse{
		ErrorResponse: ErrorResponse{Code: code, Message: err.Error()},
		State:         view,
	})
}

func (h *SessionHandler) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}
