package server

import (
	"net/http"

	"identityd/internal/i18n"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Auth.RequestPasswordReset(r.Context(), req.Email, i18n.LocaleFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	// Same answer whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset link is on its way."})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated. Please sign in again."})
}
