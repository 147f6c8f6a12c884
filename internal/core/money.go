// Package core provides the finance domain: snapshots, recurrence
// normalization, budget evaluation and amount parsing.
//
// This file contains functions for parsing monetary amounts typed by users or
// exported by banks.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// currencyMarkers are stripped before parsing.
var currencyMarkers = []string{"INR", "Rs.", "Rs", "₹", "$", "€", "£"}

// ParseAmount converts a human or bank formatted amount into a number.
//
// It accepts an optional currency marker, thousands separators and either a
// dot or a comma as decimal separator. A comma is read as decimal separator
// only when it is the last separator and is followed by one or two digits.
// Negative values (leading minus or parentheses) are returned negative.
//
// Examples:
//
//	ParseAmount("1,200.50") -> 1200.5
//	ParseAmount("₹ 450")    -> 450
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("(80.00)")  -> -80
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	for _, marker := range currencyMarkers {
		s = strings.TrimPrefix(s, marker)
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	s = normalizeSeparators(s)
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidAmount
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidAmount
	}
	if negative {
		v = -v
	}
	return v, nil
}

// normalizeSeparators rewrites s so that '.' is the only separator left and it
// marks the decimals.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma < 0:
		return s
	case lastDot > lastComma:
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	decimals := len(s) - lastComma - 1
	if strings.Count(s, ",") == 1 && decimals > 0 && decimals <= 2 {
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}
