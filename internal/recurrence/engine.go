// Package recurrence implements the recurring-expense core: expanding a
// submitted draft into a series of dated installment records, and resolving
// "apply to group" edits into a consistent next state for the whole series.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fincontrol/internal/core"
)

// Engine is pure logic over core types. ID generation and the clock are
// injectable so tests get deterministic output.
type Engine struct {
	newID func() string
	now   func() time.Time
}

func NewEngine() *Engine {
	return &Engine{newID: uuid.NewString, now: time.Now}
}

// NewEngineWithDeps builds an engine with explicit id generation and clock.
func NewEngineWithDeps(newID func() string, now func() time.Time) *Engine {
	return &Engine{newID: newID, now: now}
}

// Expand turns one validated draft into the record(s) to insert.
//
// A non-recurring draft, or a recurring one with a single installment,
// produces exactly one ungrouped record. A recurring draft with a single
// installment keeps recurring=true: "marked recurring but not actually split"
// is a deliberate pass-through, not a group of one. Otherwise N records share
// a fresh group token, numbered 1..N, each dated i calendar months after the
// draft date.
func (e *Engine) Expand(draft core.Draft) ([]core.ExpenseRecord, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	createdAt := e.now()

	if !draft.Recurring || draft.Installments <= 1 {
		rec := core.ExpenseRecord{
			ID:                 e.newID(),
			Name:               draft.Name,
			Date:               draft.Date,
			Category:           draft.Category,
			Bank:               draft.Bank,
			Amount:             draft.Amount,
			Recurring:          draft.Recurring,
			Installments:       1,
			CurrentInstallment: 1,
			CreatedAt:          createdAt,
		}
		return []core.ExpenseRecord{rec}, nil
	}

	group := e.newID()
	records := make([]core.ExpenseRecord, 0, draft.Installments)
	for i := 0; i < draft.Installments; i++ {
		records = append(records, core.ExpenseRecord{
			ID:                 e.newID(),
			Name:               draft.Name,
			Date:               draft.Date.AddMonths(i),
			Category:           draft.Category,
			Bank:               draft.Bank,
			Amount:             draft.Amount,
			Recurring:          true,
			Installments:       draft.Installments,
			CurrentInstallment: i + 1,
			RecurringGroup:     group,
			CreatedAt:          createdAt,
		})
	}
	return records, nil
}

// Resolution is the complete next state for the set of records affected by an
// update. Records come back in installment order; synthesized records carry
// fresh ids. The caller merges this with the unaffected records and performs
// an atomic bulk replace.
type Resolution struct {
	Records    []core.ExpenseRecord
	RemovedIDs []string
}

// ResolveUpdate decides whether an edit applies to the target record alone or
// reshapes its entire group, and computes the group's full next state.
//
// members must be every record sharing the target's group, in any order; it
// is ignored when the edit is single-record. The branches are evaluated in a
// fixed order: single-record, resequencing, resize, plain group edit.
func (e *Engine) ResolveUpdate(target core.ExpenseRecord, members []core.ExpenseRecord, updates core.FieldUpdates, applyToGroup bool) (Resolution, error) {
	if !applyToGroup || !target.InGroup() {
		return e.resolveSingle(target, updates)
	}

	group := make([]core.ExpenseRecord, 0, len(members))
	for _, m := range members {
		if m.RecurringGroup != target.RecurringGroup {
			return Resolution{}, fmt.Errorf("%w: record %s is not part of group %s", core.ErrInvariant, m.ID, target.RecurringGroup)
		}
		group = append(group, m)
	}
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].CurrentInstallment < group[j].CurrentInstallment
	})

	switch {
	case updates.CurrentInstallment != nil && *updates.CurrentInstallment != target.CurrentInstallment:
		return e.resequence(target, group, updates)
	case updates.Installments != nil && *updates.Installments != target.Installments:
		return e.resize(target, group, updates)
	default:
		// Plain field edit: apply uniformly to every member.
		res := Resolution{Records: make([]core.ExpenseRecord, 0, len(group))}
		for _, m := range group {
			res.Records = append(res.Records, updates.ApplyFields(m))
		}
		return res, nil
	}
}

// resolveSingle applies the updates to the target record only.
func (e *Engine) resolveSingle(target core.ExpenseRecord, updates core.FieldUpdates) (Resolution, error) {
	next := updates.ApplyFields(target)
	if updates.Installments != nil {
		next.Installments = *updates.Installments
	}
	if updates.CurrentInstallment != nil {
		next.CurrentInstallment = *updates.CurrentInstallment
	}
	if !next.Recurring && (next.Installments != 1 || next.CurrentInstallment != 1) {
		return Resolution{}, fmt.Errorf("%w: non-recurring record %s cannot be renumbered", core.ErrInvariant, next.ID)
	}
	if err := next.CheckNumbering(); err != nil {
		return Resolution{}, err
	}
	return Resolution{Records: []core.ExpenseRecord{next}}, nil
}

// resequence moves the target to the requested position within its group and
// renumbers so the positions stay contiguous and strictly increasing. Every
// member still receives the non-numbering field updates. An installment-count
// change riding along with a resequencing request is ignored; the two intents
// are resolved one at a time.
func (e *Engine) resequence(target core.ExpenseRecord, group []core.ExpenseRecord, updates core.FieldUpdates) (Resolution, error) {
	requested := *updates.CurrentInstallment
	if requested < 1 || requested > len(group) {
		return Resolution{}, fmt.Errorf("%w: position %d outside [1,%d] for group %s",
			core.ErrInvariant, requested, len(group), target.RecurringGroup)
	}

	rest := make([]core.ExpenseRecord, 0, len(group)-1)
	var moved core.ExpenseRecord
	found := false
	for _, m := range group {
		if m.ID == target.ID {
			moved = m
			found = true
			continue
		}
		rest = append(rest, m)
	}
	if !found {
		return Resolution{}, fmt.Errorf("%w: %s", core.ErrNotFound, target.ID)
	}

	ordered := make([]core.ExpenseRecord, 0, len(group))
	ordered = append(ordered, rest[:requested-1]...)
	ordered = append(ordered, moved)
	ordered = append(ordered, rest[requested-1:]...)

	res := Resolution{Records: make([]core.ExpenseRecord, 0, len(ordered))}
	for i, m := range ordered {
		next := updates.ApplyFields(m)
		next.CurrentInstallment = i + 1
		if err := next.CheckNumbering(); err != nil {
			return Resolution{}, err
		}
		res.Records = append(res.Records, next)
	}
	return res, nil
}

// resize changes the group's installment total. Shrinking deletes members
// beyond the new total. Growing synthesizes trailing records only when the
// target is the last installment; editing a middle member's total applies the
// new count uniformly without synthesizing, since where the new records would
// slot in is ambiguous.
func (e *Engine) resize(target core.ExpenseRecord, group []core.ExpenseRecord, updates core.FieldUpdates) (Resolution, error) {
	newTotal := *updates.Installments
	if newTotal < 1 {
		return Resolution{}, fmt.Errorf("%w: installment total %d for group %s", core.ErrInvariant, newTotal, target.RecurringGroup)
	}
	oldTotal := target.Installments

	var res Resolution
	if newTotal < oldTotal {
		for _, m := range group {
			if m.CurrentInstallment > newTotal {
				res.RemovedIDs = append(res.RemovedIDs, m.ID)
				continue
			}
			next := updates.ApplyFields(m)
			next.Installments = newTotal
			res.Records = append(res.Records, next)
		}
		return res, nil
	}

	grow := target.CurrentInstallment == oldTotal
	for _, m := range group {
		next := updates.ApplyFields(m)
		next.Installments = newTotal
		res.Records = append(res.Records, next)
	}
	if !grow {
		return res, nil
	}

	prev := res.Records[len(res.Records)-1]
	createdAt := e.now()
	for i := prev.CurrentInstallment + 1; i <= newTotal; i++ {
		next := prev
		next.ID = e.newID()
		next.CurrentInstallment = i
		next.Date = prev.Date.AddMonths(1)
		next.CreatedAt = createdAt
		res.Records = append(res.Records, next)
		prev = next
	}
	return res, nil
}
