package core

import "math"

// MonthlyEquivalent converts an amount recurring every freqMonths months into
// a per-month rate. A non-finite or non-positive period counts as monthly.
func MonthlyEquivalent(amount, freqMonths float64) float64 {
	if math.IsNaN(freqMonths) || math.IsInf(freqMonths, 0) || freqMonths <= 0 {
		freqMonths = 1
	}
	return amount / freqMonths
}

// aggregateAmount is the value an amount contributes to a sum: negative and
// non-finite amounts contribute nothing.
func aggregateAmount(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0
	}
	return amount
}

// Monthly returns the monthly-equivalent amount of the income.
func (i Income) Monthly() float64 {
	return MonthlyEquivalent(aggregateAmount(i.Amount), float64(i.FreqMonths))
}

// Monthly returns the monthly-equivalent amount of the expense.
func (e Expense) Monthly() float64 {
	return MonthlyEquivalent(aggregateAmount(e.Amount), float64(e.FreqMonths))
}

// ActiveIncomes returns the incomes that count in month.
func (s Snapshot) ActiveIncomes(month string) []Income {
	var out []Income
	for _, in := range s.Incomes {
		if Applies(in.StartMonth, month) {
			out = append(out, in)
		}
	}
	return out
}

// ActiveExpenses returns the expenses that count in month.
func (s Snapshot) ActiveExpenses(month string) []Expense {
	var out []Expense
	for _, e := range s.Expenses {
		if Applies(e.StartMonth, month) {
			out = append(out, e)
		}
	}
	return out
}

// MonthlyIncome sums the monthly-equivalent incomes active in month.
func (s Snapshot) MonthlyIncome(month string) float64 {
	var total float64
	for _, in := range s.ActiveIncomes(month) {
		total += in.Monthly()
	}
	return total
}

// MonthlyExpenses sums the monthly-equivalent expenses active in month.
func (s Snapshot) MonthlyExpenses(month string) float64 {
	var total float64
	for _, e := range s.ActiveExpenses(month) {
		total += e.Monthly()
	}
	return total
}

// ExpensesByCategory sums monthly-equivalent active expenses per category.
func (s Snapshot) ExpensesByCategory(month string) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range s.ActiveExpenses(month) {
		out[e.Category] += e.Monthly()
	}
	return out
}

// ExpensesByPerson sums monthly-equivalent active expenses per family member.
func (s Snapshot) ExpensesByPerson(month string) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range s.ActiveExpenses(month) {
		out[e.Person] += e.Monthly()
	}
	return out
}
