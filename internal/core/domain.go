package core

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// DefaultMember is the family member every snapshot owns. It cannot be removed
// and inherits the expenses of removed members.
const DefaultMember = "Me"

// DefaultCategory receives imported transactions.
const DefaultCategory = "Other"

// DefaultCategories seeds a fresh snapshot.
var DefaultCategories = []string{
	"Groceries",
	"Food",
	"Petrol",
	"Utilities",
	"Rent",
	"EMI",
	"Insurance",
	"Investments",
	DefaultCategory,
}

type (
	// Income is a recurring inflow.
	Income struct {
		ID         string  `json:"id"`
		Type       string  `json:"type"`
		Amount     float64 `json:"amount"`
		FreqMonths int     `json:"freqMonths"`
		StartMonth string  `json:"startMonth"`
	}

	// Expense is a recurring outflow. Category and Person are not enforced
	// against the snapshot lists; orphans are tolerated.
	Expense struct {
		ID               string  `json:"id"`
		Title            string  `json:"title"`
		Amount           float64 `json:"amount"`
		Category         string  `json:"category"`
		FreqMonths       int     `json:"freqMonths"`
		StartMonth       string  `json:"startMonth"`
		Person           string  `json:"person"`
		ReminderDate     string  `json:"reminderDate,omitempty"`
		ReminderNotified bool    `json:"reminderNotified"`
	}

	// Budget plans a monthly spend for a category from StartMonth onwards.
	Budget struct {
		ID             string  `json:"id"`
		Category       string  `json:"category"`
		MonthlyPlanned float64 `json:"monthlyPlanned"`
		StartMonth     string  `json:"startMonth"`
	}

	// Snapshot is the complete financial state of one profile.
	Snapshot struct {
		Categories    []string  `json:"categories"`
		FamilyMembers []string  `json:"familyMembers"`
		Month         string    `json:"month"`
		Incomes       []Income  `json:"incomes"`
		Expenses      []Expense `json:"expenses"`
		Planned       []Budget  `json:"planned"`
		MonthlyLimit  float64   `json:"monthlyLimit"`
		YearlyLimit   float64   `json:"yearlyLimit"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyType         = errors.New("empty income type")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty name")
	ErrDuplicateName     = errors.New("name already exists")
	ErrProtectedMember   = errors.New("member cannot be removed")
	ErrInvalidMonth      = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidLimit      = errors.New("limit must be a non-negative number")
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidBackup     = errors.New("backup is missing categories, familyMembers or month")
	ErrInvalidFrequency  = errors.New("frequency must be a positive number of months")
	ErrInvalidPlanAmount = errors.New("planned amount must be a non-negative number")
)

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

// DefaultSnapshot returns the state of a brand new profile viewing month.
func DefaultSnapshot(month string) Snapshot {
	return Snapshot{
		Categories:    append([]string(nil), DefaultCategories...),
		FamilyMembers: []string{DefaultMember},
		Month:         month,
		Incomes:       []Income{},
		Expenses:      []Expense{},
		Planned:       []Budget{},
	}
}

// ApplyDefaults fills fields that older snapshots may lack. It is idempotent.
func (s *Snapshot) ApplyDefaults(currentMonth string) {
	if s.Categories == nil {
		s.Categories = append([]string(nil), DefaultCategories...)
	}
	s.Categories = dedupe(s.Categories)

	members := dedupe(s.FamilyMembers)
	if !contains(members, DefaultMember) {
		members = append([]string{DefaultMember}, members...)
	}
	s.FamilyMembers = members

	if _, err := ParseMonth(s.Month); err != nil {
		s.Month = currentMonth
	}
	if s.Incomes == nil {
		s.Incomes = []Income{}
	}
	if s.Expenses == nil {
		s.Expenses = []Expense{}
	}
	if s.Planned == nil {
		s.Planned = []Budget{}
	}

	for i := range s.Incomes {
		if s.Incomes[i].ID == "" {
			s.Incomes[i].ID = NewID()
		}
		if s.Incomes[i].FreqMonths <= 0 {
			s.Incomes[i].FreqMonths = 1
		}
	}
	for i := range s.Expenses {
		e := &s.Expenses[i]
		if e.ID == "" {
			e.ID = NewID()
		}
		if e.FreqMonths <= 0 {
			e.FreqMonths = 1
		}
		if strings.TrimSpace(e.Person) == "" {
			e.Person = DefaultMember
		}
	}
	for i := range s.Planned {
		if s.Planned[i].ID == "" {
			s.Planned[i].ID = NewID()
		}
	}

	if !isNonNegative(s.MonthlyLimit) {
		s.MonthlyLimit = 0
	}
	if !isNonNegative(s.YearlyLimit) {
		s.YearlyLimit = 0
	}
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Categories = slices.Clone(s.Categories)
	out.FamilyMembers = slices.Clone(s.FamilyMembers)
	out.Incomes = slices.Clone(s.Incomes)
	out.Expenses = slices.Clone(s.Expenses)
	out.Planned = slices.Clone(s.Planned)
	return out
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Type) == "" {
		return ErrEmptyType
	}
	if !isPositive(i.Amount) {
		return ErrInvalidAmount
	}
	if i.FreqMonths <= 0 {
		return ErrInvalidFrequency
	}
	return validateOptionalMonth(i.StartMonth)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if !isPositive(e.Amount) {
		return ErrInvalidAmount
	}
	if e.FreqMonths <= 0 {
		return ErrInvalidFrequency
	}
	if err := validateOptionalMonth(e.StartMonth); err != nil {
		return err
	}
	if e.ReminderDate != "" {
		if _, err := ParseDate(e.ReminderDate); err != nil {
			return err
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !isNonNegative(b.MonthlyPlanned) {
		return ErrInvalidPlanAmount
	}
	return validateOptionalMonth(b.StartMonth)
}

func validateOptionalMonth(m string) error {
	if m == "" {
		return nil
	}
	_, err := ParseMonth(m)
	return err
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
