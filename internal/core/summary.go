package core

import (
	"sort"
	"time"
)

// CategoryAmount represents an amount aggregated by a name (category or person).
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// LimitProgress is actual spend measured against one of the plain limits.
type LimitProgress struct {
	Limit  float64 `json:"limit"`
	Actual float64 `json:"actual"`
	Status Status  `json:"status"`
}

// Reminder is an expense whose reminder has not fired yet.
type Reminder struct {
	ExpenseID string  `json:"expenseId"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Person    string  `json:"person"`
}

// MonthOverview is every derived figure the dashboard shows for one month.
type MonthOverview struct {
	Month       string           `json:"month"`
	Income      float64          `json:"income"`
	Expenses    float64          `json:"expenses"`
	Net         float64          `json:"net"`
	SavingsRate float64          `json:"savingsRate"`
	ByCategory  []CategoryAmount `json:"byCategory"`
	ByPerson    []CategoryAmount `json:"byPerson"`
	YearlyTotal float64          `json:"yearlyTotal"`
	Monthly     LimitProgress    `json:"monthlyLimit"`
	Yearly      LimitProgress    `json:"yearlyLimit"`
	Budgets     BudgetSummary    `json:"budgets"`
	Reminders   []Reminder       `json:"reminders"`
}

// YearlyExpenses sums the monthly totals of January through December of the
// year month belongs to.
func (s Snapshot) YearlyExpenses(month string) (float64, error) {
	months, err := MonthsOfYear(month)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, m := range months {
		total += s.MonthlyExpenses(m)
	}
	return total, nil
}

// PendingReminders lists the reminders not yet notified, earliest first.
func (s Snapshot) PendingReminders() []Reminder {
	var out []Reminder
	for _, e := range s.Expenses {
		if e.ReminderDate == "" || e.ReminderNotified {
			continue
		}
		out = append(out, Reminder{
			ExpenseID: e.ID,
			Title:     e.Title,
			Amount:    e.Amount,
			Date:      e.ReminderDate,
			Person:    e.Person,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DueReminders returns pending reminders whose date is on or before today.
func (s Snapshot) DueReminders(today time.Time) []Reminder {
	cutoff := today.Format(dateLayout)
	var out []Reminder
	for _, r := range s.PendingReminders() {
		if r.Date <= cutoff {
			out = append(out, r)
		}
	}
	return out
}

// Overview computes the dashboard for month.
func (s Snapshot) Overview(month string) (MonthOverview, error) {
	if _, err := ParseMonth(month); err != nil {
		return MonthOverview{}, err
	}
	yearly, err := s.YearlyExpenses(month)
	if err != nil {
		return MonthOverview{}, err
	}

	ov := MonthOverview{
		Month:       month,
		Income:      s.MonthlyIncome(month),
		Expenses:    s.MonthlyExpenses(month),
		ByCategory:  sortedAmounts(s.ExpensesByCategory(month)),
		ByPerson:    sortedAmounts(s.ExpensesByPerson(month)),
		YearlyTotal: yearly,
		Budgets:     s.EvaluateBudgets(month),
		Reminders:   s.PendingReminders(),
	}
	ov.Net = ov.Income - ov.Expenses
	if ov.Income > 0 {
		ov.SavingsRate = ov.Net / ov.Income * 100
	}
	ov.Monthly = LimitProgress{
		Limit:  s.MonthlyLimit,
		Actual: ov.Expenses,
		Status: ClassifyLimit(ov.Expenses, s.MonthlyLimit),
	}
	ov.Yearly = LimitProgress{
		Limit:  s.YearlyLimit,
		Actual: yearly,
		Status: ClassifyLimit(yearly, s.YearlyLimit),
	}
	return ov, nil
}

// sortedAmounts orders by amount descending, then by name.
func sortedAmounts(m map[string]float64) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
