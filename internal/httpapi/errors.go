package httpapi

import (
	"encoding/json"
	"net/http"

	"example.com/bc-solo/internal/session"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RejectedResponse struct {
	ErrorResponse
	State session.StatePayload `json:"state"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}
