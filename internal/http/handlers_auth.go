package http

import (
	"errors"
	"net/http"

	"famledger/internal/auth"
	"famledger/internal/log"
	"famledger/internal/sheets"
)

type userDTO struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	username := p.Get("username", "user")
	password := p.Get("password", "pass")
	if username == "" || password == "" {
		UnauthorizedError("invalid credentials").Write(w)
		return
	}

	logger := log.FromContext(r.Context())
	user, err := s.store.Authenticate(r.Context(), username, password)
	if errors.Is(err, sheets.ErrInvalidCredentials) {
		logger.WarnContext(r.Context(), "Login rejected",
			log.FieldUser, username,
			log.FieldOperation, log.OpLogin,
			log.FieldComponent, log.ComponentAuth)
		UnauthorizedError("invalid credentials").Write(w)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Credential lookup failed",
			log.FieldError, err,
			log.FieldOperation, log.OpLogin,
			log.FieldComponent, log.ComponentAuth)
		InternalServerError("login unavailable").Write(w)
		return
	}

	token, expires, err := s.sessions.Issue(user)
	if err != nil {
		logger.ErrorContext(r.Context(), "Session issue failed",
			log.FieldError, err,
			log.FieldComponent, log.ComponentAuth)
		InternalServerError("login unavailable").Write(w)
		return
	}
	s.sessions.SetCookie(w, token, expires)

	logger.InfoContext(r.Context(), "User logged in",
		log.FieldUser, user.Username,
		log.FieldOperation, log.OpLogin,
		log.FieldComponent, log.ComponentAuth)
	NewResponse().JSON(map[string]any{
		"ok":   true,
		"name": user.Name,
		"user": userDTO{Username: user.Username, Name: user.Name},
	}).Write(w)
}

// handleLogout revokes the current session, if any, and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, err := s.sessions.FromRequest(r); err == nil {
		s.sessions.Revoke(claims)
	}
	s.sessions.ClearCookie(w)
	NewResponse().JSON(map[string]bool{"ok": true}).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		UnauthorizedError("authentication required").Write(w)
		return
	}
	NewResponse().JSON(userDTO{Username: user.Username, Name: user.Name}).Write(w)
}
