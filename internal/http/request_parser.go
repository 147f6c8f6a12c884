// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Record payloads may arrive as JSON or as form-encoded bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads the body once and exposes its fields whatever the
// encoding.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most limit bytes of the request body. A
// limit of zero or less means no limit.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	p.body, p.err = io.ReadAll(body)
	var maxErr *http.MaxBytesError
	if errors.As(p.err, &maxErr) {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse decodes the body as JSON when it looks like JSON and as form data
// otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid json body: %w", err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitized string field.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether the field was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

// Amount parses a monetary field with core.ParseAmount, so "1,200.50" and
// "₹ 450" are accepted from forms.
func (p *RequestBodyParser) Amount(key string) (float64, error) {
	v, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, core.ErrInvalidAmount)
	}
	return v, nil
}

// Int parses an integer field, returning def when the field is absent or
// empty.
func (p *RequestBodyParser) Int(key string, def int) (int, error) {
	raw := p.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%s: not an integer", key)
		}
		n = int(f)
	}
	return n, nil
}

// Bool parses a boolean field, false when absent.
func (p *RequestBodyParser) Bool(key string) bool {
	b, _ := strconv.ParseBool(p.Get(key))
	return b
}

func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseIncome reads an income payload.
func parseIncome(p *RequestBodyParser) (core.Income, error) {
	amount, err := p.Amount("amount")
	if err != nil {
		return core.Income{}, err
	}
	freq, err := p.Int("freqMonths", 1)
	if err != nil {
		return core.Income{}, fmt.Errorf("%w: %v", core.ErrInvalidFrequency, err)
	}
	return core.Income{
		Type:       p.Get("type"),
		Amount:     amount,
		FreqMonths: freq,
		StartMonth: p.Get("startMonth"),
	}, nil
}

// parseExpense reads an expense payload. Person defaults to core.DefaultMember.
func parseExpense(p *RequestBodyParser) (core.Expense, error) {
	amount, err := p.Amount("amount")
	if err != nil {
		return core.Expense{}, err
	}
	freq, err := p.Int("freqMonths", 1)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrInvalidFrequency, err)
	}
	person := p.Get("person")
	if person == "" {
		person = core.DefaultMember
	}
	return core.Expense{
		Title:            p.Get("title"),
		Amount:           amount,
		Category:         p.Get("category"),
		FreqMonths:       freq,
		StartMonth:       p.Get("startMonth"),
		Person:           person,
		ReminderDate:     p.Get("reminderDate"),
		ReminderNotified: p.Bool("reminderNotified"),
	}, nil
}

// parseBudget reads a budget payload.
func parseBudget(p *RequestBodyParser) (core.Budget, error) {
	planned, err := p.Amount("monthlyPlanned")
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", core.ErrInvalidPlanAmount, err)
	}
	return core.Budget{
		Category:       p.Get("category"),
		MonthlyPlanned: planned,
		StartMonth:     p.Get("startMonth"),
	}, nil
}

// parseLimits reads both limits. A missing limit is 0 (disabled).
func parseLimits(p *RequestBodyParser) (monthly, yearly float64, err error) {
	if p.Get("monthlyLimit") != "" {
		if monthly, err = core.ParseAmount(p.Get("monthlyLimit")); err != nil {
			return 0, 0, fmt.Errorf("monthlyLimit: %w", core.ErrInvalidLimit)
		}
	}
	if p.Get("yearlyLimit") != "" {
		if yearly, err = core.ParseAmount(p.Get("yearlyLimit")); err != nil {
			return 0, 0, fmt.Errorf("yearlyLimit: %w", core.ErrInvalidLimit)
		}
	}
	return monthly, yearly, nil
}

// monthParam returns the "month" query parameter, empty when absent. Invalid
// months are reported so the caller can reject them.
func monthParam(r *http.Request) (string, error) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		return "", nil
	}
	if _, err := core.ParseMonth(month); err != nil {
		return "", err
	}
	return month, nil
}
