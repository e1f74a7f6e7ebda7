package http

import (
	"net/http"

	"mapesa/internal/auth"
	"mapesa/internal/log"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := DecodeJSON(w, r, &creds); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	user, err := s.auth.Login(r.Context(), creds)
	if err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}

	NewJSONResponse().Body(loginResponse{ID: user.ID, Username: user.Username}).Write(w)
}

type registerRequest struct {
	auth.Credentials
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Credentials, req.Email)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).
		Body(loginResponse{ID: user.ID, Username: user.Username}).
		Write(w)
}
