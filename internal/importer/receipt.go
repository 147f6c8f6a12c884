package importer

import (
	"regexp"
	"strings"

	"fintrack/internal/core"
)

// amountPattern matches an optional currency marker followed by digits with
// optional grouping and decimals.
var amountPattern = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr|\$|€|£)?\s*(\d[\d,]*(?:\.\d+)?)`)

// CategoryRule assigns Category to text containing any of Keywords.
type CategoryRule struct {
	Category string
	Keywords []string
}

// ReceiptRules are evaluated in order; the first match wins.
var ReceiptRules = []CategoryRule{
	{Category: "Groceries", Keywords: []string{"grocery", "supermarket"}},
	{Category: "Food", Keywords: []string{"restaurant", "cafe", "food"}},
	{Category: "Petrol", Keywords: []string{"petrol", "fuel"}},
	{Category: "Utilities", Keywords: []string{"electricity", "bill"}},
}

const maxTitleLength = 60

// ReceiptDraft holds the fields read from a receipt. AmountFound is false when
// no amount could be detected; Category is empty when no rule matched.
type ReceiptDraft struct {
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	AmountFound bool    `json:"amountFound"`
	Category    string  `json:"category"`
}

// ExtractReceipt reads the first amount and a category from OCR text.
func ExtractReceipt(text string) ReceiptDraft {
	draft := ReceiptDraft{
		Title:    receiptTitle(text),
		Category: ClassifyText(text),
	}
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if v, err := core.ParseAmount(m[1]); err == nil && v > 0 {
			draft.Amount = v
			draft.AmountFound = true
		}
	}
	return draft
}

// ClassifyText returns the category of the first rule whose keyword occurs in
// text, ignoring case.
func ClassifyText(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range ReceiptRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return ""
}

// receiptTitle uses the first non-blank line, usually the merchant name.
func receiptTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxTitleLength {
			line = string(r[:maxTitleLength])
		}
		return line
	}
	return ""
}
