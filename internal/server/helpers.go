package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"identityd/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the service sentinels onto HTTP statuses.
// Anything unmapped is treated as internal and kept opaque.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, auth.ErrConflict), errors.Is(err, auth.ErrAlreadyEnabled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidOrExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountNotActivated), errors.Is(err, auth.ErrInvalidTwoFactor):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, auth.ErrSetupNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.Log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
