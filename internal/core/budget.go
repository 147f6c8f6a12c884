package core

import "sort"

// Status is the severity tag shown next to budget and limit progress.
type Status string

const (
	StatusNone   Status = "none"
	StatusOK     Status = "ok"
	StatusWarn   Status = "warn"
	StatusDanger Status = "danger"
)

// Limit thresholds as a fraction of the limit.
const (
	limitWarnRatio = 0.8
)

// CategoryBudget compares the active plan of a category with its actual spend.
type CategoryBudget struct {
	Category string  `json:"category"`
	Planned  float64 `json:"plannedVal"`
	Actual   float64 `json:"actualVal"`
	Diff     float64 `json:"diff"`
	Pct      float64 `json:"pct"`
	Status   Status  `json:"status"`
}

// BudgetSummary is the per-category and aggregate evaluation for one month.
type BudgetSummary struct {
	Month        string           `json:"month"`
	Categories   []CategoryBudget `json:"categories"`
	TotalPlanned float64          `json:"totalPlanned"`
	TotalActual  float64          `json:"totalActual"`
	OverAmount   float64          `json:"overAmt"`
	OverPct      float64          `json:"overPct"`
	Status       Status           `json:"status"`
}

// ClassifyOverspend tags an overspend. The fallback branch means 0-10% and
// 15-20% read as warn like 10-15%; only >20% reads as danger.
func ClassifyOverspend(diff, pct float64) Status {
	if diff <= 0 {
		return StatusOK
	}
	if pct >= 10 && pct <= 15 {
		return StatusWarn
	}
	if pct > 20 {
		return StatusDanger
	}
	return StatusWarn
}

// ClassifyLimit tags actual spend against a plain limit.
func ClassifyLimit(actual, limit float64) Status {
	if limit <= 0 {
		return StatusNone
	}
	if actual <= limit*limitWarnRatio {
		return StatusOK
	}
	if actual <= limit {
		return StatusWarn
	}
	return StatusDanger
}

// ActivePlans returns, per category, the budget with the latest StartMonth at
// or before month. On equal StartMonth the record appearing last wins.
func (s Snapshot) ActivePlans(month string) map[string]Budget {
	out := make(map[string]Budget)
	for _, b := range s.Planned {
		if !Applies(b.StartMonth, month) {
			continue
		}
		cur, ok := out[b.Category]
		if !ok || b.StartMonth >= cur.StartMonth {
			out[b.Category] = b
		}
	}
	return out
}

// EvaluateBudgets compares planned and actual monthly spend for month.
func (s Snapshot) EvaluateBudgets(month string) BudgetSummary {
	plans := s.ActivePlans(month)
	actuals := s.ExpensesByCategory(month)

	summary := BudgetSummary{Month: month}
	for _, category := range s.budgetCategories(plans, actuals) {
		planned := aggregateAmount(plans[category].MonthlyPlanned)
		actual := actuals[category]
		diff := actual - planned
		var pct float64
		if planned != 0 {
			pct = diff / planned * 100
		}
		summary.Categories = append(summary.Categories, CategoryBudget{
			Category: category,
			Planned:  planned,
			Actual:   actual,
			Diff:     diff,
			Pct:      pct,
			Status:   ClassifyOverspend(diff, pct),
		})
	}

	for _, b := range plans {
		summary.TotalPlanned += aggregateAmount(b.MonthlyPlanned)
	}
	for _, v := range actuals {
		summary.TotalActual += v
	}

	diff := summary.TotalActual - summary.TotalPlanned
	if diff > 0 {
		summary.OverAmount = diff
	}
	if summary.TotalPlanned != 0 {
		summary.OverPct = summary.OverAmount / summary.TotalPlanned * 100
	}
	summary.Status = ClassifyOverspend(diff, summary.OverPct)
	return summary
}

// budgetCategories lists the snapshot categories in order followed by any
// orphan category that has a plan or spend, sorted by name.
func (s Snapshot) budgetCategories(plans map[string]Budget, actuals map[string]float64) []string {
	known := make(map[string]struct{}, len(s.Categories))
	out := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		known[c] = struct{}{}
		out = append(out, c)
	}

	var orphans []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if _, ok := known[c]; ok {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		orphans = append(orphans, c)
	}
	for c := range plans {
		add(c)
	}
	for c := range actuals {
		add(c)
	}
	sort.Strings(orphans)
	return append(out, orphans...)
}
