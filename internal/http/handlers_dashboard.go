package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
)

// dashboardTimeout bounds derived-figure reads.
const dashboardTimeout = 7 * time.Second

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.Snapshot(r.Context(), profileFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

// handleDashboard returns the month overview. Without ?month= the month
// stored in the snapshot is used.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	ov, err := s.finance.Overview(ctx, profileFrom(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(ov).Write(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	summary, err := s.finance.Budgets(ctx, profileFrom(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	snap, err := s.finance.SetMonth(r.Context(), profileFrom(r), p.Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleSetLimits(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	monthly, yearly, err := parseLimits(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.finance.SetLimits(r.Context(), profileFrom(r), monthly, yearly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Success("Limits saved").Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	snap, err := s.finance.AddCategory(r.Context(), profileFrom(r), p.Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(snap).Write(w)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.finance.RemoveCategory(r.Context(), profileFrom(r), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	snap, err := s.finance.AddMember(r.Context(), profileFrom(r), p.Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(snap).Write(w)
}

type memberRemoval struct {
	Snapshot   core.Snapshot `json:"snapshot"`
	Reassigned int           `json:"reassigned"`
}

// handleRemoveMember removes a family member; their expenses move to the
// default member.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	snap, moved, err := s.finance.RemoveMember(r.Context(), profileFrom(r), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b := NewJSONResponse().Data(memberRemoval{Snapshot: snap, Reassigned: moved})
	if moved > 0 {
		b.Notify(NotificationInfo, "Expenses of "+name+" moved to "+core.DefaultMember)
	}
	b.Write(w)
}
