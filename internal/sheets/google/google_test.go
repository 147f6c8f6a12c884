package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"fintrack/internal/core"
)

func TestNewClientMissingSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClientMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewClient(context.Background(), Config{SpreadsheetID: "sheet"}, nil)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestNewClientUnreadableCredentialsFile(t *testing.T) {
	_, err := NewClient(context.Background(), Config{
		SpreadsheetID:   "sheet",
		CredentialsFile: t.TempDir() + "/missing.json",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
}

func TestMirrorProfileWithoutService(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "sheet"}, nil)
	err := c.MirrorProfile(context.Background(), "Default", core.DefaultSnapshot("2024-06"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSheetTitle(t *testing.T) {
	cases := []struct {
		prefix, profile, want string
	}{
		{"", "Default", "Default"},
		{"Finance - ", "Home", "Finance - Home"},
	}
	for _, tc := range cases {
		c := newClient(nil, Config{SpreadsheetID: "x", SheetPrefix: tc.prefix}, nil)
		if got := c.SheetTitle(tc.profile); got != tc.want {
			t.Errorf("SheetTitle(%q) with prefix %q = %q, want %q", tc.profile, tc.prefix, got, tc.want)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"wrapped 429", fmt.Errorf("write: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), true},
		{"403", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRateLimited(tc.err); got != tc.want {
				t.Fatalf("isRateLimited = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWithRetryStopsOnOtherErrors(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "x", Attempts: 3, RetryDelay: 1}, nil)
	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		return &googleapi.Error{Code: http.StatusBadRequest}
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d, err = %v; want 1 call and an error", calls, err)
	}
}

func TestWithRetryRetriesRateLimits(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "x", Attempts: 3, RetryDelay: 1}, nil)
	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &googleapi.Error{Code: http.StatusTooManyRequests}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("calls = %d, err = %v; want 3 calls and success", calls, err)
	}
}
