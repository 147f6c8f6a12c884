package services

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/log"
)

// ScanResult is the outcome of a receipt scan. Expense is a draft for the
// user to confirm; it is not stored.
type ScanResult struct {
	Token       uint64       `json:"token"`
	Text        string       `json:"text"`
	AmountFound bool         `json:"amountFound"`
	Expense     core.Expense `json:"expense"`
}

// ReceiptScanner turns receipt images into draft expenses. Every scan takes
// a token per profile; only the newest scan of a profile may deliver a
// result, older ones fail with ErrStaleScan.
type ReceiptScanner struct {
	ocr    TextRecognizer
	logger *log.Logger

	mu     sync.Mutex
	tokens map[string]uint64
}

func NewReceiptScanner(ocr TextRecognizer, logger *log.Logger) *ReceiptScanner {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReceiptScanner{
		ocr:    ocr,
		logger: logger.WithComponent(log.ComponentReceipt),
		tokens: make(map[string]uint64),
	}
}

func (r *ReceiptScanner) begin(profile string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[profile]++
	return r.tokens[profile]
}

func (r *ReceiptScanner) isLatest(profile string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[profile] == token
}

// Scan recognizes image and extracts a draft expense.
func (r *ReceiptScanner) Scan(ctx context.Context, profile string, image []byte, contentType string) (ScanResult, error) {
	token := r.begin(profile)

	text, err := r.ocr.ParseImage(ctx, image, contentType)
	if !r.isLatest(profile, token) {
		r.logger.InfoContext(ctx, "Discarding superseded scan",
			log.FieldProfile, profile, "token", token)
		return ScanResult{}, ErrStaleScan
	}
	if err != nil {
		r.logger.WarnContext(ctx, "Receipt recognition failed",
			log.FieldProfile, profile, log.FieldError, err)
		return ScanResult{}, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}

	draft := importer.ExtractReceipt(text)
	return ScanResult{
		Token:       token,
		Text:        text,
		AmountFound: draft.AmountFound,
		Expense: core.Expense{
			Title:      draft.Title,
			Amount:     draft.Amount,
			Category:   draft.Category,
			FreqMonths: 1,
			Person:     core.DefaultMember,
		},
	}, nil
}
