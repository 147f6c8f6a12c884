package http

import (
	"net/http"

	"fintrack/internal/log"
)

// Records are replaced as a whole on PUT; the id comes from the path.

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	in, err := parseIncome(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.finance.AddIncome(r.Context(), profileFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(added).
		Success("Income " + added.Type + " added").
		Write(w)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	in, err := parseIncome(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = r.PathValue("id")
	snap, err := s.finance.UpdateIncome(r.Context(), profileFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleRemoveIncome(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.RemoveIncome(r.Context(), profileFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	e, err := parseExpense(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.finance.AddExpense(r.Context(), profileFrom(r), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Expense added",
		log.NewFields().
			WithProfile(profileFrom(r), s.finance.Version(profileFrom(r))).
			WithRecord(added.ID, added.Title, added.Amount, added.Category).
			ToSlice()...)
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(added).
		Success("Expense " + added.Title + " added").
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	e, err := parseExpense(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = r.PathValue("id")
	snap, err := s.finance.UpdateExpense(r.Context(), profileFrom(r), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.RemoveExpense(r.Context(), profileFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleAddBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	b, err := parseBudget(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.finance.AddBudget(r.Context(), profileFrom(r), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(added).
		Success("Budget for " + added.Category + " saved").
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	b, err := parseBudget(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b.ID = r.PathValue("id")
	snap, err := s.finance.UpdateBudget(r.Context(), profileFrom(r), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleRemoveBudget(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.RemoveBudget(r.Context(), profileFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}
