package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestMirrorProfileReplacesRows(t *testing.T) {
	s := New()
	ctx := context.Background()

	snap := core.DefaultSnapshot("2024-06")
	snap.Expenses = append(snap.Expenses, core.Expense{Title: "Rent", Amount: 1200, FreqMonths: 1, Person: "Me"})
	if err := s.MirrorProfile(ctx, "Default", snap); err != nil {
		t.Fatalf("MirrorProfile: %v", err)
	}
	rows, ok := s.Rows("Default")
	if !ok || len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}

	if err := s.MirrorProfile(ctx, "Default", core.DefaultSnapshot("2024-06")); err != nil {
		t.Fatalf("MirrorProfile: %v", err)
	}
	rows, _ = s.Rows("Default")
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
	if s.Writes() != 2 {
		t.Fatalf("writes = %d, want 2", s.Writes())
	}
}

func TestRowsUnknownProfile(t *testing.T) {
	if _, ok := New().Rows("nope"); ok {
		t.Fatal("expected no rows for unknown profile")
	}
}
