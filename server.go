package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"i4.energy/across/watchible/modem"
)

// SessionSource is the part of the modem the status server reads.
type SessionSource interface {
	Snapshot() modem.Session
	Cycles() uint64
}

// Server handles incoming HTTP requests for inspecting the configured modem
// instance
type Server struct {
	Logger *slog.Logger
	Modem  SessionSource
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleStatus reports the session as of the last line the modem sent
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type StatusResponse struct {
		Cycle   uint64        `json:"cycle"`
		Session modem.Session `json:"session"`
	}

	if s.Modem == nil {
		s.sendError(w, "modem not connected", http.StatusServiceUnavailable)
		return
	}

	resp := StatusResponse{
		Cycle:   s.Modem.Cycles(),
		Session: s.Modem.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Logger.Error("Failed to write status", "error", err)
	}
}
