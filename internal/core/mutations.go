package core

import "strings"

// Mutations below leave the snapshot untouched when they return an error.

// SetMonth changes the viewed month.
func (s *Snapshot) SetMonth(month string) error {
	if _, err := ParseMonth(month); err != nil {
		return err
	}
	s.Month = month
	return nil
}

// SetLimits replaces both spending limits. Zero disables a limit.
func (s *Snapshot) SetLimits(monthly, yearly float64) error {
	if !isNonNegative(monthly) || !isNonNegative(yearly) {
		return ErrInvalidLimit
	}
	s.MonthlyLimit = monthly
	s.YearlyLimit = yearly
	return nil
}

// AddCategory appends a new unique category.
func (s *Snapshot) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if contains(s.Categories, name) {
		return ErrDuplicateName
	}
	s.Categories = append(s.Categories, name)
	return nil
}

// RemoveCategory drops a category from the list. Records that reference it
// keep the name.
func (s *Snapshot) RemoveCategory(name string) error {
	idx := indexOf(s.Categories, name)
	if idx < 0 {
		return ErrRecordNotFound
	}
	s.Categories = append(s.Categories[:idx:idx], s.Categories[idx+1:]...)
	return nil
}

// AddMember appends a new unique family member.
func (s *Snapshot) AddMember(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if contains(s.FamilyMembers, name) {
		return ErrDuplicateName
	}
	s.FamilyMembers = append(s.FamilyMembers, name)
	return nil
}

// RemoveMember deletes a family member and hands their expenses to
// DefaultMember. It returns how many expenses were reassigned.
func (s *Snapshot) RemoveMember(name string) (int, error) {
	if name == DefaultMember {
		return 0, ErrProtectedMember
	}
	idx := indexOf(s.FamilyMembers, name)
	if idx < 0 {
		return 0, ErrRecordNotFound
	}
	s.FamilyMembers = append(s.FamilyMembers[:idx:idx], s.FamilyMembers[idx+1:]...)

	moved := 0
	for i := range s.Expenses {
		if s.Expenses[i].Person == name {
			s.Expenses[i].Person = DefaultMember
			moved++
		}
	}
	return moved, nil
}

// AddIncome validates and stores an income, assigning an id when missing.
func (s *Snapshot) AddIncome(in Income) (Income, error) {
	in = normalizeIncome(in)
	if err := in.Validate(); err != nil {
		return Income{}, err
	}
	if in.ID == "" {
		in.ID = NewID()
	}
	s.Incomes = append(s.Incomes, in)
	return in, nil
}

// UpdateIncome replaces the income with the same id.
func (s *Snapshot) UpdateIncome(in Income) error {
	in = normalizeIncome(in)
	if err := in.Validate(); err != nil {
		return err
	}
	for i := range s.Incomes {
		if s.Incomes[i].ID == in.ID {
			s.Incomes[i] = in
			return nil
		}
	}
	return ErrRecordNotFound
}

// RemoveIncome deletes the income with id.
func (s *Snapshot) RemoveIncome(id string) error {
	for i := range s.Incomes {
		if s.Incomes[i].ID == id {
			s.Incomes = append(s.Incomes[:i:i], s.Incomes[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

// AddExpense validates and stores an expense, assigning an id when missing.
func (s *Snapshot) AddExpense(e Expense) (Expense, error) {
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	s.Expenses = append(s.Expenses, e)
	return e, nil
}

// UpdateExpense replaces the expense with the same id. The notified flag is
// kept unless the reminder date changes, which re-arms the reminder.
func (s *Snapshot) UpdateExpense(e Expense) error {
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return err
	}
	for i := range s.Expenses {
		if s.Expenses[i].ID != e.ID {
			continue
		}
		if s.Expenses[i].ReminderDate != e.ReminderDate {
			e.ReminderNotified = false
		} else {
			e.ReminderNotified = s.Expenses[i].ReminderNotified
		}
		s.Expenses[i] = e
		return nil
	}
	return ErrRecordNotFound
}

// RemoveExpense deletes the expense with id.
func (s *Snapshot) RemoveExpense(id string) error {
	for i := range s.Expenses {
		if s.Expenses[i].ID == id {
			s.Expenses = append(s.Expenses[:i:i], s.Expenses[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

// ImportExpenses appends already-built expenses, skipping invalid ones.
// It returns the number appended.
func (s *Snapshot) ImportExpenses(expenses []Expense) int {
	added := 0
	for _, e := range expenses {
		if _, err := s.AddExpense(e); err == nil {
			added++
		}
	}
	return added
}

// MarkReminderNotified flags the reminder of expense id as fired.
func (s *Snapshot) MarkReminderNotified(id string) error {
	for i := range s.Expenses {
		if s.Expenses[i].ID == id {
			s.Expenses[i].ReminderNotified = true
			return nil
		}
	}
	return ErrRecordNotFound
}

// AddBudget validates and stores a planning record.
func (s *Snapshot) AddBudget(b Budget) (Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return Budget{}, err
	}
	if b.ID == "" {
		b.ID = NewID()
	}
	s.Planned = append(s.Planned, b)
	return b, nil
}

// UpdateBudget replaces the planning record with the same id.
func (s *Snapshot) UpdateBudget(b Budget) error {
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return err
	}
	for i := range s.Planned {
		if s.Planned[i].ID == b.ID {
			s.Planned[i] = b
			return nil
		}
	}
	return ErrRecordNotFound
}

// RemoveBudget deletes the planning record with id.
func (s *Snapshot) RemoveBudget(id string) error {
	for i := range s.Planned {
		if s.Planned[i].ID == id {
			s.Planned = append(s.Planned[:i:i], s.Planned[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func normalizeIncome(in Income) Income {
	in.Type = strings.TrimSpace(in.Type)
	if in.FreqMonths == 0 {
		in.FreqMonths = 1
	}
	return in
}

func normalizeExpense(e Expense) Expense {
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	e.Person = strings.TrimSpace(e.Person)
	if e.Person == "" {
		e.Person = DefaultMember
	}
	if e.FreqMonths == 0 {
		e.FreqMonths = 1
	}
	return e
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}
