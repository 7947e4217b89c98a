package core

import "strings"

// Filter is a transient query object over the record collection. It is never
// persisted; the store only sees the compiled predicate.
type Filter struct {
	Name     string
	From     Date
	To       Date
	MinCents *int64
	MaxCents *int64
	Bank     string
	Category string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Name == "" && f.From.IsZero() && f.To.IsZero() &&
		f.MinCents == nil && f.MaxCents == nil && f.Bank == "" && f.Category == ""
}

// Matches reports whether r satisfies every criterion. Name matching is a
// case-insensitive substring; bank and category match by name.
func (f Filter) Matches(r ExpenseRecord) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Name)) {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To.Time) {
		return false
	}
	if f.MinCents != nil && r.Amount.Cents < *f.MinCents {
		return false
	}
	if f.MaxCents != nil && r.Amount.Cents > *f.MaxCents {
		return false
	}
	if f.Bank != "" && r.Bank.Name != f.Bank {
		return false
	}
	if f.Category != "" && r.Category.Name != f.Category {
		return false
	}
	return true
}
