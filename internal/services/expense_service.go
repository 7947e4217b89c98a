// Package services provides business logic and orchestration: every user
// action flows through the ExpenseService, which runs the recurrence engine,
// applies the result to the record store, persists the snapshot and then
// publishes a mutation event.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fincontrol/internal/amqp"
	"fincontrol/internal/core"
	"fincontrol/internal/persist"
	"fincontrol/internal/recurrence"
	"fincontrol/internal/store"
	"fincontrol/internal/transfer"
)

// ExpenseService orchestrates expense operations across the in-memory store
// and the persisted snapshot. Operations run to completion one at a time:
// either the store and snapshot both advance, or neither does and the error
// surfaces to the caller. Event publication happens after commit and never
// fails an operation.
type ExpenseService struct {
	mu     sync.Mutex
	store  *store.Store
	engine *recurrence.Engine
	kv     persist.KV
	events *amqp.Client // optional

	goal       core.Money
	categories []core.Category
	banks      []core.Bank
}

func NewExpenseService(st *store.Store, engine *recurrence.Engine, kv persist.KV, events *amqp.Client) *ExpenseService {
	return &ExpenseService{
		store:  st,
		engine: engine,
		kv:     kv,
		events: events,
	}
}

// Load hydrates the store, goal and palettes from the persisted snapshot.
// Absent keys are fine on first run.
func (s *ExpenseService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, found, err := s.kv.Get(ctx, persist.KeyRecords); err != nil {
		return fmt.Errorf("load records: %w", err)
	} else if found {
		records, err := persist.DecodeRecords(data)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		if err := s.store.ReplaceAll(records); err != nil {
			return fmt.Errorf("load records: %w", err)
		}
	}

	if data, found, err := s.kv.Get(ctx, persist.KeyGoal); err != nil {
		return fmt.Errorf("load goal: %w", err)
	} else if found {
		goal, err := persist.DecodeGoal(data)
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		s.goal = goal
	}

	if data, found, err := s.kv.Get(ctx, persist.KeyCategories); err != nil {
		return fmt.Errorf("load categories: %w", err)
	} else if found {
		cats, err := persist.DecodeCategories(data)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		s.categories = cats
	}

	if data, found, err := s.kv.Get(ctx, persist.KeyBanks); err != nil {
		return fmt.Errorf("load banks: %w", err)
	} else if found {
		banks, err := persist.DecodeBanks(data)
		if err != nil {
			return fmt.Errorf("load banks: %w", err)
		}
		s.banks = banks
	}

	slog.InfoContext(ctx, "State loaded from snapshot",
		"records", s.store.Len(),
		"goal_cents", s.goal.Cents,
		"categories", len(s.categories),
		"banks", len(s.banks))
	return nil
}

// SubmitDraft expands a validated draft into its record(s) and installs them.
func (s *ExpenseService) SubmitDraft(ctx context.Context, draft core.Draft) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.engine.Expand(draft)
	if err != nil {
		return nil, fmt.Errorf("expand draft: %w", err)
	}

	prev := s.store.All()
	if err := s.store.InsertMany(records); err != nil {
		return nil, fmt.Errorf("insert records: %w", err)
	}
	if err := s.persistRecords(ctx); err != nil {
		s.rollback(prev)
		return nil, err
	}

	group := records[0].RecurringGroup
	s.publish(ctx, amqp.NewMutationEvent(amqp.EventCreated, recordIDs(records), group))

	slog.InfoContext(ctx, "Expense submitted",
		"name", draft.Name,
		"amount_cents", draft.Amount.Cents,
		"records", len(records),
		"recurring_group", group)
	return records, nil
}

// UpdateExpense applies a partial update to one record, or resolves it across
// the record's whole group when applyToGroup is set.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, updates core.FieldUpdates, applyToGroup bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	var members []core.ExpenseRecord
	if applyToGroup && target.InGroup() {
		members = s.store.Query(func(r core.ExpenseRecord) bool {
			return r.RecurringGroup == target.RecurringGroup
		})
	}

	res, err := s.engine.ResolveUpdate(target, members, updates, applyToGroup)
	if err != nil {
		return fmt.Errorf("resolve update for %s: %w", id, err)
	}

	prev := s.store.All()
	next := mergeResolution(prev, res)
	if err := s.store.ReplaceAll(next); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	if err := s.persistRecords(ctx); err != nil {
		s.rollback(prev)
		return err
	}

	s.publish(ctx, amqp.NewMutationEvent(amqp.EventUpdated, recordIDs(res.Records), target.RecurringGroup))

	slog.InfoContext(ctx, "Expense updated",
		"id", id,
		"apply_to_group", applyToGroup,
		"affected", len(res.Records),
		"removed", len(res.RemovedIDs))
	return nil
}

// DeleteExpense removes exactly one record. Deleting one installment does not
// delete its siblings, and the group is deliberately not re-sequenced: a gap
// in the numbering after a plain delete is accepted behavior.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	prev := s.store.All()
	if err := s.store.Remove(id); err != nil {
		return err
	}
	if err := s.persistRecords(ctx); err != nil {
		s.rollback(prev)
		return err
	}

	s.publish(ctx, amqp.NewMutationEvent(amqp.EventDeleted, []string{id}, target.RecurringGroup))

	slog.InfoContext(ctx, "Expense deleted", "id", id, "recurring_group", target.RecurringGroup)
	return nil
}

// ListExpenses returns records matching the filter, in store order.
func (s *ExpenseService) ListExpenses(ctx context.Context, filter core.Filter) []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.IsZero() {
		return s.store.All()
	}
	return s.store.Query(filter.Matches)
}

// MonthOverview aggregates one month's records against the budget goal.
func (s *ExpenseService) MonthOverview(ctx context.Context, year, month int) core.MonthOverview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.store.All(), year, month, s.goal)
}

// Goal returns the budget goal.
func (s *ExpenseService) Goal(ctx context.Context) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goal
}

// SetGoal updates and persists the budget goal.
func (s *ExpenseService) SetGoal(ctx context.Context, goal core.Money) error {
	if goal.Cents < 0 {
		return fmt.Errorf("%w: negative goal", core.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := persist.EncodeGoal(goal)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyGoal, data); err != nil {
		return fmt.Errorf("persist goal: %w", err)
	}
	s.goal = goal

	s.publish(ctx, amqp.NewMutationEvent(amqp.EventGoalSet, nil, ""))
	return nil
}

// Export renders the full collection and goal as a versioned document.
func (s *ExpenseService) Export(ctx context.Context, format transfer.Format) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transfer.Export(s.store.All(), s.goal, format)
}

// Import installs a decoded document. Replace swaps the whole collection and
// adopts the document's goal; append adds the records and keeps the current
// goal. Either way the operation is atomic.
func (s *ExpenseService) Import(ctx context.Context, doc transfer.Document, mode transfer.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.store.All()
	prevGoal := s.goal

	switch mode {
	case transfer.ModeReplace:
		if err := s.store.ReplaceAll(doc.Records); err != nil {
			return fmt.Errorf("import replace: %w", err)
		}
		s.goal = core.Money{Cents: doc.GoalCents}
	case transfer.ModeAppend:
		if err := s.store.InsertMany(doc.Records); err != nil {
			return fmt.Errorf("import append: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown import mode %q", core.ErrValidation, mode)
	}

	if err := s.persistRecords(ctx); err != nil {
		s.rollback(prev)
		s.goal = prevGoal
		return err
	}
	if mode == transfer.ModeReplace {
		if data, err := persist.EncodeGoal(s.goal); err == nil {
			if err := s.kv.Set(ctx, persist.KeyGoal, data); err != nil {
				slog.WarnContext(ctx, "Failed to persist imported goal", "error", err)
			}
		}
	}

	s.publish(ctx, amqp.NewMutationEvent(amqp.EventImported, recordIDs(doc.Records), ""))

	slog.InfoContext(ctx, "Collection imported", "mode", string(mode), "records", len(doc.Records))
	return nil
}

// Categories returns the custom category palette.
func (s *ExpenseService) Categories(ctx context.Context) []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...)
}

// AddCategory appends a category to the palette.
func (s *ExpenseService) AddCategory(ctx context.Context, cat core.Category) error {
	if cat.Name == "" {
		return fmt.Errorf("%w: empty category name", core.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Name == cat.Name {
			return fmt.Errorf("%w: category %s", core.ErrDuplicateID, cat.Name)
		}
	}
	next := append(append([]core.Category(nil), s.categories...), cat)
	data, err := persist.EncodeCategories(next)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyCategories, data); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}
	s.categories = next
	return nil
}

// RemoveCategory removes a category from the palette by name. Records keep
// their category; the palette only feeds the form collaborator.
func (s *ExpenseService) RemoveCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]core.Category, 0, len(s.categories))
	found := false
	for _, c := range s.categories {
		if c.Name == name {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, name)
	}
	data, err := persist.EncodeCategories(next)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyCategories, data); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}
	s.categories = next
	return nil
}

// Banks returns the custom bank palette.
func (s *ExpenseService) Banks(ctx context.Context) []core.Bank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bank(nil), s.banks...)
}

// AddBank appends a bank to the palette.
func (s *ExpenseService) AddBank(ctx context.Context, bank core.Bank) error {
	if bank.Name == "" {
		return fmt.Errorf("%w: empty bank name", core.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.banks {
		if b.Name == bank.Name {
			return fmt.Errorf("%w: bank %s", core.ErrDuplicateID, bank.Name)
		}
	}
	next := append(append([]core.Bank(nil), s.banks...), bank)
	data, err := persist.EncodeBanks(next)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyBanks, data); err != nil {
		return fmt.Errorf("persist banks: %w", err)
	}
	s.banks = next
	return nil
}

// RemoveBank removes a bank from the palette by name.
func (s *ExpenseService) RemoveBank(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]core.Bank, 0, len(s.banks))
	found := false
	for _, b := range s.banks {
		if b.Name == name {
			found = true
			continue
		}
		next = append(next, b)
	}
	if !found {
		return fmt.Errorf("%w: bank %s", core.ErrNotFound, name)
	}
	data, err := persist.EncodeBanks(next)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyBanks, data); err != nil {
		return fmt.Errorf("persist banks: %w", err)
	}
	s.banks = next
	return nil
}

// Close closes the event publisher, if any.
func (s *ExpenseService) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close events: %w", err)
		}
	}
	return nil
}

func (s *ExpenseService) persistRecords(ctx context.Context) error {
	data, err := persist.EncodeRecords(s.store.All())
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, persist.KeyRecords, data); err != nil {
		return fmt.Errorf("persist records: %w", err)
	}
	return nil
}

// rollback restores the pre-operation collection after a failed persist.
func (s *ExpenseService) rollback(prev []core.ExpenseRecord) {
	if err := s.store.ReplaceAll(prev); err != nil {
		// prev was a valid store state moments ago; this cannot happen.
		slog.Error("Rollback failed", "error", err)
	}
}

func (s *ExpenseService) publish(ctx context.Context, event *amqp.MutationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMutation(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mutation event",
			"type", event.Type, "error", err)
		// Don't fail the request - the mutation is committed locally
	}
}

// mergeResolution folds the engine's next state for the affected group into
// the full collection: removed members drop out, survivors are replaced in
// place, synthesized records append at the end in installment order.
func mergeResolution(all []core.ExpenseRecord, res recurrence.Resolution) []core.ExpenseRecord {
	removed := make(map[string]struct{}, len(res.RemovedIDs))
	for _, id := range res.RemovedIDs {
		removed[id] = struct{}{}
	}
	replaced := make(map[string]core.ExpenseRecord, len(res.Records))
	for _, r := range res.Records {
		replaced[r.ID] = r
	}

	next := make([]core.ExpenseRecord, 0, len(all)+len(res.Records))
	seen := make(map[string]struct{}, len(all))
	for _, r := range all {
		if _, gone := removed[r.ID]; gone {
			continue
		}
		if nr, ok := replaced[r.ID]; ok {
			next = append(next, nr)
		} else {
			next = append(next, r)
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range res.Records {
		if _, ok := seen[r.ID]; !ok {
			next = append(next, r)
		}
	}
	return next
}

func recordIDs(records []core.ExpenseRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
