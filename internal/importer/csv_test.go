package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestParseBankCSVDebitRows(t *testing.T) {
	data := "Date,Narration,Amount,Type\n" +
		"15/03/2024,Big Bazaar,1200,POS Purchase\n" +
		"03/04/2024,Salary,50000,Credit\n" +
		"2024-02-10,ATM Cash,\"2,500.00\",ATM Withdrawal\n" +
		"not a date,Electricity,900,Bill Payment\n" +
		"01/05/2024,Zero,0,Debit\n" +
		"01/05/2024,Garbage,abc,Debit\n"

	res, err := ParseBankCSV(strings.NewReader(data), "2024-06")
	if err != nil {
		t.Fatalf("ParseBankCSV: %v", err)
	}
	if res.Rows != 6 || res.Skipped != 3 || len(res.Expenses) != 3 {
		t.Fatalf("rows=%d skipped=%d expenses=%d", res.Rows, res.Skipped, len(res.Expenses))
	}

	first := res.Expenses[0]
	if first.Title != "Big Bazaar" || first.Amount != 1200 || first.StartMonth != "2024-03" {
		t.Fatalf("unexpected first expense: %+v", first)
	}
	if first.Category != "Other" || first.FreqMonths != 1 || first.Person != "Me" || first.ID == "" {
		t.Fatalf("import defaults not applied: %+v", first)
	}
	if got := res.Expenses[1]; got.Amount != 2500 || got.StartMonth != "2024-02" {
		t.Fatalf("unexpected atm expense: %+v", got)
	}
	if got := res.Expenses[2].StartMonth; got != "2024-06" {
		t.Fatalf("bad date should fall back to viewed month, got %q", got)
	}
}

func TestParseBankCSVAliases(t *testing.T) {
	data := "Transaction Date,Transaction Description,Debit Amount,Transaction Type\n" +
		"12/20/2023,Netflix,649,Debit Card\n"
	res, err := ParseBankCSV(strings.NewReader(data), "2024-01")
	if err != nil {
		t.Fatalf("ParseBankCSV: %v", err)
	}
	e := res.Expenses[0]
	if e.Title != "Netflix" || e.Amount != 649 || e.StartMonth != "2023-12" {
		t.Fatalf("unexpected expense: %+v", e)
	}
}

func TestParseBankCSVAliasFallsThroughEmptyCells(t *testing.T) {
	data := "date,description,withdrawal,debit,mode\n" +
		"01/02/2024,Shop,,450,UPI Payment\n"
	res, err := ParseBankCSV(strings.NewReader(data), "2024-01")
	if err != nil {
		t.Fatalf("ParseBankCSV: %v", err)
	}
	if res.Expenses[0].Amount != 450 || res.Expenses[0].StartMonth != "2024-01" {
		t.Fatalf("unexpected expense: %+v", res.Expenses[0])
	}
}

func TestParseBankCSVNoUsableRows(t *testing.T) {
	cases := []string{
		"",
		"Date,Description,Amount,Type\n",
		"Date,Description,Amount,Type\n01/01/2024,Salary,100,Credit\n",
	}
	for _, data := range cases {
		if _, err := ParseBankCSV(strings.NewReader(data), "2024-01"); !errors.Is(err, ErrNoTransactions) {
			t.Fatalf("%q: expected ErrNoTransactions, got %v", data, err)
		}
	}
}

func TestStatementMonth(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"15/03/2024", "2024-03"},
		{"03/15/2024", "2024-03"},
		{"05/06/2024", "2024-05"},
		{"2024-11-30", "2024-11"},
		{"31-12-23", "2023-12"},
		{"15/03/2024 10:30", "2024-03"},
		{"2024/03", "2000-01"},
		{"", "2000-01"},
		{"aa/bb/cc", "2000-01"},
		{"13/13/2024", "2000-01"},
	}
	for _, tc := range cases {
		if got := StatementMonth(tc.in, "2000-01"); got != tc.want {
			t.Fatalf("StatementMonth(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsDebit(t *testing.T) {
	for _, kind := range []string{"POS Purchase", "ATM", "Bill PAYMENT", "withdrawal", "Debit"} {
		if !IsDebit(kind) {
			t.Fatalf("%q should be a debit", kind)
		}
	}
	for _, kind := range []string{"", "Credit", "Refund", "Interest"} {
		if IsDebit(kind) {
			t.Fatalf("%q should not be a debit", kind)
		}
	}
}
