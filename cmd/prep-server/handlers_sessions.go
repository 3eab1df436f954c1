package main

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxSessionList bounds the history endpoint; the UI only shows recent runs.
const maxSessionList = 20

func handleSessionList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessions, err := sessionStore.ListSessions(r.Context(), maxSessionList)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		httpError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func handleSessionGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		httpError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := sessionStore.GetSession(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to load session")
		httpError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}
