package server

import "net/http"

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	setup, err := s.Auth.SetupTwoFactor(r.Context(), sess.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	// Secret and backup codes are shown here and never again.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"secret":      setup.Secret,
		"otpauthUrl":  setup.OtpauthURL,
		"qrCode":      setup.QRCodeDataURL,
		"backupCodes": setup.BackupCodes,
	})
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleTwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := sessionFromContext(r.Context())
	if err := s.Auth.EnableTwoFactor(r.Context(), sess.UserID, req.Code); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication enabled"})
}

func (s *Server) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := sessionFromContext(r.Context())
	if err := s.Auth.DisableTwoFactor(r.Context(), sess.UserID, req.Code); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}

func (s *Server) handleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := sessionFromContext(r.Context())
	codes, err := s.Auth.RegenerateBackupCodes(r.Context(), sess.UserID, req.Code)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backupCodes": codes})
}
