package importer

import "testing"

func TestExtractReceipt(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		amount   float64
		found    bool
		category string
	}{
		{"grocery", "FreshMart Supermarket\nTotal ₹ 1,250.50\nThank you", 1250.5, true, "Groceries"},
		{"cafe", "Blue Tokai Cafe\nRs. 340", 340, true, "Food"},
		{"fuel", "HP Petrol Pump\nINR 2000", 2000, true, "Petrol"},
		{"utility", "Electricity bill\n$ 75.20", 75.2, true, "Utilities"},
		{"first rule wins", "Supermarket food court\n100", 100, true, "Groceries"},
		{"no category", "Hardware store\n99", 99, true, ""},
		{"no amount", "Restaurant\nthank you", 0, false, "Food"},
		{"empty", "", 0, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ExtractReceipt(tc.text)
			if d.Amount != tc.amount || d.AmountFound != tc.found || d.Category != tc.category {
				t.Fatalf("ExtractReceipt = %+v, want amount=%v found=%v category=%q", d, tc.amount, tc.found, tc.category)
			}
		})
	}
}

func TestExtractReceiptTitle(t *testing.T) {
	d := ExtractReceipt("\n   \n  Corner Cafe  \nTotal 12")
	if d.Title != "Corner Cafe" {
		t.Fatalf("title = %q", d.Title)
	}
}
