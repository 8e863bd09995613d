package server

import (
	"net/http"

	"identityd/internal/auth"
	"identityd/internal/i18n"
	"identityd/internal/model"
)

type userView struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	DisplayName *string `json:"displayName,omitempty"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"isActive"`
}

func viewOf(u model.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
	}
}

type registerRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Auth.Register(r.Context(), auth.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Locale:      i18n.LocaleFromRequest(r),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	payload := map[string]interface{}{
		"user":                      viewOf(result.User),
		"emailVerificationRequired": result.RequiresVerification,
	}
	if result.Session != nil {
		auth.SetSessionCookie(w, result.Session.ID, result.Session.ExpiresAt)
		payload["token"] = result.Bearer
	}
	writeJSON(w, http.StatusCreated, payload)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified. You can now sign in."})
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Auth.ResendVerification(r.Context(), req.Email, i18n.LocaleFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	// Same answer whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the account needs verification, an email is on its way."})
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	ChallengeToken string `json:"challengeToken"`
	Code           string `json:"code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Auth.Login(r.Context(), auth.LoginInput{
		Email:          req.Email,
		Password:       req.Password,
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		IP:             clientIP(r),
		UserAgent:      r.UserAgent(),
		Locale:         i18n.LocaleFromRequest(r),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if result.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"twoFactorRequired": true,
			"challengeToken":    result.ChallengeToken,
		})
		return
	}

	auth.SetSessionCookie(w, result.Session.ID, result.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  viewOf(result.User),
		"token": result.Bearer,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess != nil && sess.ID != "" {
		if err := s.Auth.Logout(r.Context(), sess.UserID, sess.ID); err != nil {
			s.Log.Error("logout failed", "error", err)
		}
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	user, err := s.Auth.User(r.Context(), sess.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": viewOf(*user)})
}
