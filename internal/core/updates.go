package core

// FieldUpdates enumerates exactly which fields of a record are changing. The
// group update resolution dispatches on presence of the numbering fields, so
// a typed request replaces any ad hoc property-map inspection.
type FieldUpdates struct {
	Name               *string   `json:"name,omitempty"`
	Date               *Date     `json:"date,omitempty"`
	Category           *Category `json:"category,omitempty"`
	Bank               *Bank     `json:"bank,omitempty"`
	Amount             *Money    `json:"amount_cents,omitempty"`
	CurrentInstallment *int      `json:"current_installment,omitempty"`
	Installments       *int      `json:"installments,omitempty"`
}

// IsZero reports whether no field is being updated.
func (u FieldUpdates) IsZero() bool {
	return u.Name == nil && u.Date == nil && u.Category == nil &&
		u.Bank == nil && u.Amount == nil &&
		u.CurrentInstallment == nil && u.Installments == nil
}

// ApplyFields copies the non-numbering updates onto r. The numbering fields
// (current installment, installment total) are handled by the resolution
// branches, not here.
func (u FieldUpdates) ApplyFields(r ExpenseRecord) ExpenseRecord {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Date != nil {
		r.Date = *u.Date
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.Bank != nil {
		r.Bank = *u.Bank
	}
	if u.Amount != nil {
		r.Amount = *u.Amount
	}
	return r
}
