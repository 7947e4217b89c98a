package core

import "testing"

func TestFilterMatches(t *testing.T) {
	rec := ExpenseRecord{
		ID:       "r1",
		Name:     "Grocery Store",
		Date:     NewDate(2025, 3, 10),
		Category: Category{Name: "Food"},
		Bank:     Bank{Name: "Checking"},
		Amount:   Money{Cents: 4550},
	}

	min := int64(4000)
	max := int64(5000)
	tooHigh := int64(9000)

	cases := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{Name: "grocery"}, true}, // case-insensitive substring
		{Filter{Name: "GROC"}, true},
		{Filter{Name: "fuel"}, false},
		{Filter{From: NewDate(2025, 3, 1), To: NewDate(2025, 3, 31)}, true},
		{Filter{From: NewDate(2025, 3, 10)}, true}, // range is inclusive
		{Filter{To: NewDate(2025, 3, 10)}, true},
		{Filter{From: NewDate(2025, 4, 1)}, false},
		{Filter{To: NewDate(2025, 2, 28)}, false},
		{Filter{MinCents: &min, MaxCents: &max}, true},
		{Filter{MinCents: &tooHigh}, false},
		{Filter{Bank: "Checking"}, true},
		{Filter{Bank: "Savings"}, false},
		{Filter{Category: "Food"}, true},
		{Filter{Category: "Housing"}, false},
		{Filter{Name: "grocery", Bank: "Savings"}, false}, // criteria conjoin
	}
	for i, tc := range cases {
		if got := tc.f.Matches(rec); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestFilterIsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Fatalf("empty filter should be zero")
	}
	if (Filter{Name: "x"}).IsZero() {
		t.Fatalf("filter with name should not be zero")
	}
	min := int64(1)
	if (Filter{MinCents: &min}).IsZero() {
		t.Fatalf("filter with min should not be zero")
	}
}
