package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	sessions, err := s.Sessions.ListForUser(r.Context(), sess.UserID)
	if err != nil {
		s.Log.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	current := sess.ID
	views := make([]map[string]interface{}, 0, len(sessions))
	for _, item := range sessions {
		views = append(views, map[string]interface{}{
			"id":        item.ID,
			"ip":        item.IP,
			"userAgent": item.UserAgent,
			"loginTime": item.LoginTime,
			"expiresAt": item.ExpiresAt,
			"current":   item.ID == current,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing session id")
		return
	}

	if err := s.Sessions.Delete(r.Context(), sess.UserID, id); err != nil {
		s.Log.Error("delete session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session revoked"})
}
