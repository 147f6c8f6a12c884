package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/log"
)

// FinanceService applies user mutations to profile snapshots. Each mutation
// loads the snapshot, applies the change, saves the whole snapshot and then
// announces it. Mutations are serialized; the store sees last write wins.
type FinanceService struct {
	repo      SnapshotRepository
	publisher EventPublisher
	overviews cache.Cache[core.MonthOverview]
	logger    *log.Logger
	now       func() time.Time

	mu       sync.Mutex
	versions map[string]uint64
}

// NewFinanceService wires the service. publisher and overviews may be nil.
func NewFinanceService(repo SnapshotRepository, publisher EventPublisher, overviews cache.Cache[core.MonthOverview], logger *log.Logger) *FinanceService {
	if logger == nil {
		logger = log.Discard()
	}
	return &FinanceService{
		repo:      repo,
		publisher: publisher,
		overviews: overviews,
		logger:    logger.WithComponent(log.ComponentFinance),
		now:       time.Now,
		versions:  make(map[string]uint64),
	}
}

// CurrentMonth is the "YYYY-MM" of today.
func (s *FinanceService) CurrentMonth() string {
	return core.MonthOf(s.now())
}

// Snapshot returns the stored snapshot of profile.
func (s *FinanceService) Snapshot(ctx context.Context, profile string) (core.Snapshot, error) {
	return s.repo.Load(ctx, profile)
}

// Version is the number of saves made to profile by this process.
func (s *FinanceService) Version(profile string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[profile]
}

// Overview computes the dashboard of profile for month. An empty month uses
// the month stored in the snapshot. Results are cached until the next save.
func (s *FinanceService) Overview(ctx context.Context, profile, month string) (core.MonthOverview, error) {
	// Read the version first so a concurrent save can only orphan the entry.
	version := s.Version(profile)
	snap, err := s.repo.Load(ctx, profile)
	if err != nil {
		return core.MonthOverview{}, err
	}
	if month == "" {
		month = snap.Month
	}

	key := overviewKey(profile, version, month)
	if s.overviews != nil {
		if ov, ok := s.overviews.Get(key); ok {
			return ov, nil
		}
	}

	ov, err := snap.Overview(month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	if s.overviews != nil {
		s.overviews.Set(key, ov)
	}
	return ov, nil
}

// Budgets evaluates the budgets of profile for month.
func (s *FinanceService) Budgets(ctx context.Context, profile, month string) (core.BudgetSummary, error) {
	ov, err := s.Overview(ctx, profile, month)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return ov.Budgets, nil
}

func overviewKey(profile string, version uint64, month string) string {
	return fmt.Sprintf("%s|%d|%s", profile, version, month)
}

// Mutate runs fn against the snapshot of profile and saves the result. When fn
// fails nothing is saved and the error is returned unchanged.
func (s *FinanceService) Mutate(ctx context.Context, profile, op string, fn func(*core.Snapshot) error) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.repo.Load(ctx, profile)
	if err != nil {
		return core.Snapshot{}, err
	}
	working := snap.Clone()
	if err := fn(&working); err != nil {
		s.logger.DebugContext(ctx, "Mutation rejected",
			log.NewFields().WithProfile(profile, 0).WithOperation(op).WithError(err).ToSlice()...)
		return snap, err
	}
	if err := s.repo.Save(ctx, profile, working); err != nil {
		return snap, err
	}

	s.versions[profile]++
	version := s.versions[profile]
	if s.overviews != nil {
		s.overviews.DeletePrefix(profile + "|")
	}
	s.logger.InfoContext(ctx, "Profile updated",
		log.NewFields().WithProfile(profile, version).WithOperation(op).ToSlice()...)

	s.publishSync(ctx, profile, version)
	return working, nil
}

// publishSync never fails the request: the snapshot is already saved.
func (s *FinanceService) publishSync(ctx context.Context, profile string, version uint64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProfileSync(ctx, profile, version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldProfile, profile,
			log.FieldVersion, version,
			log.FieldError, err)
	}
}

func (s *FinanceService) SetMonth(ctx context.Context, profile, month string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "set_month", func(snap *core.Snapshot) error {
		return snap.SetMonth(month)
	})
}

func (s *FinanceService) SetLimits(ctx context.Context, profile string, monthly, yearly float64) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "set_limits", func(snap *core.Snapshot) error {
		return snap.SetLimits(monthly, yearly)
	})
}

func (s *FinanceService) AddCategory(ctx context.Context, profile, name string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "add_category", func(snap *core.Snapshot) error {
		return snap.AddCategory(name)
	})
}

func (s *FinanceService) RemoveCategory(ctx context.Context, profile, name string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "remove_category", func(snap *core.Snapshot) error {
		return snap.RemoveCategory(name)
	})
}

func (s *FinanceService) AddMember(ctx context.Context, profile, name string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "add_member", func(snap *core.Snapshot) error {
		return snap.AddMember(name)
	})
}

// RemoveMember deletes a member and returns how many expenses moved to the
// default member.
func (s *FinanceService) RemoveMember(ctx context.Context, profile, name string) (core.Snapshot, int, error) {
	var moved int
	snap, err := s.Mutate(ctx, profile, "remove_member", func(snap *core.Snapshot) error {
		var err error
		moved, err = snap.RemoveMember(name)
		return err
	})
	return snap, moved, err
}

func (s *FinanceService) AddIncome(ctx context.Context, profile string, in core.Income) (core.Income, error) {
	var added core.Income
	_, err := s.Mutate(ctx, profile, "add_income", func(snap *core.Snapshot) error {
		var err error
		added, err = snap.AddIncome(in)
		return err
	})
	return added, err
}

func (s *FinanceService) UpdateIncome(ctx context.Context, profile string, in core.Income) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "update_income", func(snap *core.Snapshot) error {
		return snap.UpdateIncome(in)
	})
}

func (s *FinanceService) RemoveIncome(ctx context.Context, profile, id string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "remove_income", func(snap *core.Snapshot) error {
		return snap.RemoveIncome(id)
	})
}

func (s *FinanceService) AddExpense(ctx context.Context, profile string, e core.Expense) (core.Expense, error) {
	var added core.Expense
	_, err := s.Mutate(ctx, profile, "add_expense", func(snap *core.Snapshot) error {
		var err error
		added, err = snap.AddExpense(e)
		return err
	})
	return added, err
}

func (s *FinanceService) UpdateExpense(ctx context.Context, profile string, e core.Expense) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "update_expense", func(snap *core.Snapshot) error {
		return snap.UpdateExpense(e)
	})
}

func (s *FinanceService) RemoveExpense(ctx context.Context, profile, id string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "remove_expense", func(snap *core.Snapshot) error {
		return snap.RemoveExpense(id)
	})
}

func (s *FinanceService) MarkReminderNotified(ctx context.Context, profile, id string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "reminder_notified", func(snap *core.Snapshot) error {
		return snap.MarkReminderNotified(id)
	})
}

func (s *FinanceService) AddBudget(ctx context.Context, profile string, b core.Budget) (core.Budget, error) {
	var added core.Budget
	_, err := s.Mutate(ctx, profile, "add_budget", func(snap *core.Snapshot) error {
		var err error
		added, err = snap.AddBudget(b)
		return err
	})
	return added, err
}

func (s *FinanceService) UpdateBudget(ctx context.Context, profile string, b core.Budget) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "update_budget", func(snap *core.Snapshot) error {
		return snap.UpdateBudget(b)
	})
}

func (s *FinanceService) RemoveBudget(ctx context.Context, profile, id string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "remove_budget", func(snap *core.Snapshot) error {
		return snap.RemoveBudget(id)
	})
}

// Reset replaces the snapshot of profile with a fresh default one.
func (s *FinanceService) Reset(ctx context.Context, profile string) (core.Snapshot, error) {
	return s.Mutate(ctx, profile, "reset", func(snap *core.Snapshot) error {
		*snap = core.DefaultSnapshot(s.CurrentMonth())
		return nil
	})
}

// ImportResult summarizes a statement import.
type ImportResult struct {
	Rows     int `json:"rows"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportCSV appends the debit rows of a bank statement to profile. Rows
// without a readable date land in the viewed month.
func (s *FinanceService) ImportCSV(ctx context.Context, profile string, r io.Reader) (ImportResult, error) {
	var result ImportResult
	_, err := s.Mutate(ctx, profile, log.OpImport, func(snap *core.Snapshot) error {
		parsed, err := importer.ParseBankCSV(r, snap.Month)
		if err != nil {
			return err
		}
		result.Rows = parsed.Rows
		result.Imported = snap.ImportExpenses(parsed.Expenses)
		result.Skipped = parsed.Rows - result.Imported
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.InfoContext(ctx, "Statement imported",
		log.FieldProfile, profile,
		log.FieldCount, result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

// Forget drops cached figures of a deleted profile.
func (s *FinanceService) Forget(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, profile)
	if s.overviews != nil {
		s.overviews.DeletePrefix(profile + "|")
	}
}
