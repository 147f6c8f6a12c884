package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/services"
)

type profileKey struct{}

// withProfile rejects requests whose {profile} path value is not a known
// profile and stores the name in the request context.
func (s *Server) withProfile(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.PathValue("profile"))
		ok, err := s.profiles.Exists(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, services.ErrUnknownProfile)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, name)))
	}
}

// profileFrom returns the profile resolved by withProfile.
func profileFrom(r *http.Request) string {
	name, _ := r.Context().Value(profileKey{}).(string)
	return name
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseBody parses a small JSON or form body, writing a 400 on failure.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r, maxFormBytes)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
			return nil, false
		}
		BadRequestError("Invalid request body").Write(w)
		return nil, false
	}
	return p, true
}
