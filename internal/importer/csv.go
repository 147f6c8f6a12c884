// Package importer turns external input (bank statements and OCR text) into
// draft expenses.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

var (
	ErrMalformedCSV   = errors.New("malformed csv")
	ErrNoTransactions = errors.New("no debit transactions found")
)

// Column aliases in priority order. Header names are matched lower-cased and
// trimmed.
var (
	dateColumns        = []string{"date", "transaction date"}
	descriptionColumns = []string{"description", "narration", "transaction description"}
	amountColumns      = []string{"amount", "debit amount", "withdrawal", "debit"}
	typeColumns        = []string{"type", "transaction type", "mode"}
)

// debitKeywords mark a row as money going out.
var debitKeywords = []string{"debit", "withdrawal", "payment", "pos", "atm"}

const importedTitle = "Imported transaction"

// CSVResult is the outcome of a bank statement import.
type CSVResult struct {
	Expenses []core.Expense
	Rows     int
	Skipped  int
}

// ParseBankCSV reads a bank statement with a header row and returns one
// monthly expense per debit row. Rows that cannot be used are skipped.
// viewedMonth is used for rows whose date cannot be read.
func ParseBankCSV(r io.Reader, viewedMonth string) (CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return CSVResult{}, ErrNoTransactions
		}
		return CSVResult{}, fmt.Errorf("%w: header: %v", ErrMalformedCSV, err)
	}
	headerMap := generateHeaderMap(header)

	var result CSVResult
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return CSVResult{}, fmt.Errorf("%w: row %d: %v", ErrMalformedCSV, result.Rows+1, err)
		}
		result.Rows++

		row := csvRow{record: record, headerMap: headerMap}
		expense, ok := row.expense(viewedMonth)
		if !ok {
			result.Skipped++
			continue
		}
		result.Expenses = append(result.Expenses, expense)
	}

	if len(result.Expenses) == 0 {
		return result, ErrNoTransactions
	}
	return result, nil
}

type csvRow struct {
	record    []string
	headerMap map[string]int
}

// value returns the first non-empty cell among aliases.
func (r csvRow) value(aliases []string) string {
	for _, alias := range aliases {
		idx, ok := r.headerMap[alias]
		if !ok || idx >= len(r.record) {
			continue
		}
		if v := strings.TrimSpace(r.record[idx]); v != "" {
			return v
		}
	}
	return ""
}

func (r csvRow) expense(viewedMonth string) (core.Expense, bool) {
	amount, err := core.ParseAmount(r.value(amountColumns))
	if err != nil || amount == 0 {
		return core.Expense{}, false
	}
	if !IsDebit(r.value(typeColumns)) {
		return core.Expense{}, false
	}

	title := r.value(descriptionColumns)
	if title == "" {
		title = importedTitle
	}
	return core.Expense{
		ID:         core.NewID(),
		Title:      title,
		Amount:     math.Abs(amount),
		Category:   core.DefaultCategory,
		FreqMonths: 1,
		StartMonth: StatementMonth(r.value(dateColumns), viewedMonth),
		Person:     core.DefaultMember,
	}, true
}

// IsDebit reports whether a transaction type denotes an outflow.
func IsDebit(kind string) bool {
	kind = strings.ToLower(kind)
	for _, kw := range debitKeywords {
		if strings.Contains(kind, kw) {
			return true
		}
	}
	return false
}

// StatementMonth converts a bank date into "YYYY-MM". Dates are split on '-'
// or '/'. A first part above 12 is a day (DD/MM/YYYY), a four digit first part
// is a year (YYYY-MM-DD), anything else is read month first (MM/DD/YYYY).
// Two digit years are taken as 20YY. Unreadable dates yield fallback.
func StatementMonth(date, fallback string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(date), func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) != 3 {
		return fallback
	}
	nums := make([]int, 3)
	for i, p := range parts {
		// Drop a trailing time component such as "2024 10:15".
		fields := strings.Fields(p)
		if len(fields) == 0 {
			return fallback
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fallback
		}
		nums[i] = n
	}

	var year, month int
	switch {
	case len(strings.TrimSpace(parts[0])) == 4:
		year, month = nums[0], nums[1]
	case nums[0] > 12:
		month, year = nums[1], nums[2]
	default:
		month, year = nums[0], nums[2]
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return fallback
	}
	return core.FormatMonth(year, month)
}

// generateHeaderMap maps lower-cased header names to their column index.
// The first occurrence of a duplicated header wins.
func generateHeaderMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := m[key]; !ok {
			m[key] = i
		}
	}
	return m
}
