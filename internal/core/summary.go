package core

import "sort"

// CategoryAmount is an amount aggregated by category name, carrying the
// category's display metadata through to the caller.
type CategoryAmount struct {
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Amount Money  `json:"amount_cents"`
}

// MonthOverview is a compact summary for a specific year+month, set against
// the budget goal.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Total      Money            `json:"total_cents"`
	Goal       Money            `json:"goal_cents"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// Summarize aggregates records for one month into totals per category.
// Categories are sorted by descending amount, name as tie-breaker.
func Summarize(records []ExpenseRecord, year, month int, goal Money) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, Goal: goal}

	byName := map[string]*CategoryAmount{}
	var order []string
	for _, r := range records {
		if r.Date.Year() != year || r.Date.Month() != month {
			continue
		}
		ov.Total = ov.Total.Add(r.Amount)
		ca, ok := byName[r.Category.Name]
		if !ok {
			ca = &CategoryAmount{Name: r.Category.Name, Icon: r.Category.Icon, Color: r.Category.Color}
			byName[r.Category.Name] = ca
			order = append(order, r.Category.Name)
		}
		ca.Amount = ca.Amount.Add(r.Amount)
	}

	for _, name := range order {
		ov.ByCategory = append(ov.ByCategory, *byName[name])
	}
	sort.SliceStable(ov.ByCategory, func(i, j int) bool {
		if ov.ByCategory[i].Amount.Cents != ov.ByCategory[j].Amount.Cents {
			return ov.ByCategory[i].Amount.Cents > ov.ByCategory[j].Amount.Cents
		}
		return ov.ByCategory[i].Name < ov.ByCategory[j].Name
	})
	return ov
}
