package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	st, err := s.profiles.State(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	st, err := s.profiles.Create(r.Context(), p.Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(st).
		Success("Profile " + st.Current + " created").
		Write(w)
}

func (s *Server) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	st, err := s.profiles.Select(r.Context(), profileFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := profileFrom(r)
	st, err := s.profiles.Delete(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.finance.Forget(name)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Profile deleted",
		log.FieldProfile, name,
		"current", st.Current)
	NewJSONResponse().
		Data(st).
		Success("Profile " + name + " deleted").
		Write(w)
}
