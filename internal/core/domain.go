package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation  = errors.New("invalid input")
	ErrDuplicateID = errors.New("duplicate record id")
	ErrNotFound    = errors.New("record not found")
	ErrInvariant   = errors.New("installment numbering invariant violated")

	ErrEmptyName           = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidInstallments = fmt.Errorf("%w: installments must be at least 1", ErrValidation)
)

type (
	// Category is a display label with presentation metadata. The name is the
	// join key for filters; icon and color are not normalized elsewhere.
	Category struct {
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	// Bank is a label/color pair in its own namespace.
	Bank struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// ExpenseRecord is the atomic unit of the tracker. Amounts are integer
	// cents; binary floating point would accumulate error across installment
	// sums.
	ExpenseRecord struct {
		ID                 string    `json:"id"`
		Name               string    `json:"name"`
		Date               Date      `json:"date"`
		Category           Category  `json:"category"`
		Bank               Bank      `json:"bank"`
		Amount             Money     `json:"amount_cents"`
		Recurring          bool      `json:"recurring"`
		Installments       int       `json:"installments"`
		CurrentInstallment int       `json:"current_installment"`
		RecurringGroup     string    `json:"recurring_group,omitempty"`
		CreatedAt          time.Time `json:"created_at"`
	}

	// Draft is a submitted expense before expansion: a record minus id,
	// createdAt, currentInstallment and recurringGroup.
	Draft struct {
		Name         string   `json:"name"`
		Date         Date     `json:"date"`
		Category     Category `json:"category"`
		Bank         Bank     `json:"bank"`
		Amount       Money    `json:"amount_cents"`
		Recurring    bool     `json:"recurring"`
		Installments int      `json:"installments"`
	}
)

// Validate checks the UI submission contract: required fields non-empty,
// amount non-negative, installment count at least 1 when recurring.
// Presentation metadata (colors, icons) is deliberately not validated here.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if err := d.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if d.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(d.Category.Name) == "" {
		return fmt.Errorf("%w: empty category", ErrValidation)
	}
	if strings.TrimSpace(d.Bank.Name) == "" {
		return fmt.Errorf("%w: empty bank", ErrValidation)
	}
	if d.Recurring && d.Installments < 1 {
		return ErrInvalidInstallments
	}
	return nil
}

// InGroup reports whether the record belongs to a recurring group.
func (r ExpenseRecord) InGroup() bool {
	return r.Recurring && r.RecurringGroup != ""
}

// CheckNumbering fails fast when the installment counters are out of range.
func (r ExpenseRecord) CheckNumbering() error {
	if r.Installments < 1 {
		return fmt.Errorf("%w: record %s has installments=%d", ErrInvariant, r.ID, r.Installments)
	}
	if r.CurrentInstallment < 1 || r.CurrentInstallment > r.Installments {
		return fmt.Errorf("%w: record %s has position %d/%d", ErrInvariant, r.ID, r.CurrentInstallment, r.Installments)
	}
	return nil
}
