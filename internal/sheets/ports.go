// Package sheets mirrors profile snapshots to a spreadsheet for read-only
// sharing. The mirror is written by the sync worker, never by requests.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// SnapshotMirror replaces the mirrored copy of a profile.
type SnapshotMirror interface {
	MirrorProfile(ctx context.Context, profile string, snap core.Snapshot) error
}

// Header is the first row of every mirrored sheet.
var Header = []any{"Kind", "Title", "Amount", "Category", "Every (months)", "Start", "Person", "Monthly", "Reminder"}

// Rows renders a snapshot as spreadsheet rows below Header: incomes first,
// then expenses, then budgets, each in stored order.
func Rows(snap core.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Incomes)+len(snap.Expenses)+len(snap.Planned))
	for _, in := range snap.Incomes {
		rows = append(rows, []any{
			"income", in.Type, in.Amount, "", in.FreqMonths, in.StartMonth, "",
			core.MonthlyEquivalent(in.Amount, float64(in.FreqMonths)), "",
		})
	}
	for _, e := range snap.Expenses {
		rows = append(rows, []any{
			"expense", e.Title, e.Amount, e.Category, e.FreqMonths, e.StartMonth, e.Person,
			core.MonthlyEquivalent(e.Amount, float64(e.FreqMonths)), e.ReminderDate,
		})
	}
	for _, b := range snap.Planned {
		rows = append(rows, []any{
			"budget", b.Category, b.MonthlyPlanned, b.Category, 1, b.StartMonth, "",
			b.MonthlyPlanned, "",
		})
	}
	return rows
}
