package httpapi

import (
	"net/http"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mfaLoginRequest struct {
	MFAToken string `json:"mfaToken"`
	Code     string `json:"code"`
}

type mfaRequiredResponse struct {
	RequiresMFA bool   `json:"requiresMfa"`
	MFAToken    string `json:"mfaToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type totpCodeRequest struct {
	Token string `json:"token"`
}

type phoneRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code,omitempty"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.engine.RegisterWithEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.LoginWithEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.MFARequired {
		writeJSON(w, http.StatusOK, mfaRequiredResponse{RequiresMFA: true, MFAToken: res.MFAToken})
		return
	}
	writeJSON(w, http.StatusOK, res.Tokens)
}

func (s *Server) handleLoginMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.engine.CompleteMFALogin(r.Context(), req.MFAToken, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.engine.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handlePhoneRequest(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.RequestPhoneOTP(r.Context(), req.Phone); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handlePhoneVerify(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.engine.VerifyPhoneOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	// The answer is the same whether or not the address is registered.
	if err := s.engine.ForgotPassword(r.Context(), req.Email); err != nil && authgate.KindOf(err) != authgate.KindValidation {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.AccessResultFromContext(r.Context())
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.Logout(r.Context(), principal.AccountID, req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.AccessResultFromContext(r.Context())
	if err := s.engine.LogoutAll(r.Context(), principal.AccountID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.AccessResultFromContext(r.Context())
	setup, err := s.engine.SetupTOTP(r.Context(), principal.AccountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

func (s *Server) handleMFAVerify(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.AccessResultFromContext(r.Context())
	var req totpCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.VerifyAndEnableTOTP(r.Context(), principal.AccountID, req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.AccessResultFromContext(r.Context())
	var req totpCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.DisableTOTP(r.Context(), principal.AccountID, req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w)
}
