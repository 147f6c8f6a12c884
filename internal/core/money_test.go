package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"1,200", 1200, true},
		{"1,200.50", 1200.5, true},
		{"1.234,56", 1234.56, true},
		{" 2.50 ", 2.5, true},
		{"₹450", 450, true},
		{"Rs. 99.90", 99.9, true},
		{"INR 1,00,000", 100000, true},
		{"-80", -80, true},
		{"(80.00)", -80, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"₹", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %v", tc.in, got)
		}
	}
}
