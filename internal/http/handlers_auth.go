package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

type session struct {
	AuthEnabled   bool       `json:"authEnabled"`
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user,omitempty"`
	DisplayName   string     `json:"displayName,omitempty"`
	LogoutURL     string     `json:"logoutUrl,omitempty"`
}

func (s *Server) requireAuthProvider(w http.ResponseWriter) bool {
	if s.auth.Enabled() {
		return true
	}
	NotFoundError("Authentication is not configured").Write(w)
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthProvider(w) {
		return
	}
	s.auth.SigninRedirect(w, r)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthProvider(w) {
		return
	}
	user, err := s.auth.HandleCallback(w, r)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Sign-in failed", log.FieldError, err)
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrStateMismatch) || errors.Is(err, auth.ErrMissingCode) || errors.Is(err, auth.ErrDenied) {
			status = http.StatusUnauthorized
		}
		ErrorResponse(status, "Sign-in failed").Write(w)
		return
	}
	NewJSONResponse().
		Data(s.sessionOf(&user)).
		Success("Signed in as " + user.DisplayName()).
		Write(w)
}

// handleLogout drops the local session and returns the provider logout URL
// the client should navigate to.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthProvider(w) {
		return
	}
	s.auth.RemoveUser(w, r)
	NewJSONResponse().
		Data(session{AuthEnabled: true, LogoutURL: s.auth.LogoutURL()}).
		Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		NewJSONResponse().Data(session{}).Write(w)
		return
	}
	user, ok := s.auth.User(r)
	if !ok {
		NewJSONResponse().Data(session{AuthEnabled: true}).Write(w)
		return
	}
	NewJSONResponse().Data(s.sessionOf(&user)).Write(w)
}

func (s *Server) sessionOf(user *auth.User) session {
	return session{
		AuthEnabled:   true,
		Authenticated: true,
		User:          user,
		DisplayName:   user.DisplayName(),
		LogoutURL:     s.auth.LogoutURL(),
	}
}
