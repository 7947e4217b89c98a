package recurrence

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"fincontrol/internal/core"
)

func testEngine() *Engine {
	n := 0
	return NewEngineWithDeps(
		func() string { n++; return fmt.Sprintf("id-%d", n) },
		func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) },
	)
}

func draft(recurring bool, installments int) core.Draft {
	return core.Draft{
		Name:         "Rent",
		Date:         core.NewDate(2025, 1, 15),
		Category:     core.Category{Name: "Housing"},
		Bank:         core.Bank{Name: "Checking"},
		Amount:       core.Money{Cents: 120000},
		Recurring:    recurring,
		Installments: installments,
	}
}

func TestExpandNonRecurring(t *testing.T) {
	e := testEngine()
	records, err := e.Expand(draft(false, 0))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ID == "" {
		t.Fatalf("missing id")
	}
	if r.Recurring || r.RecurringGroup != "" {
		t.Fatalf("non-recurring record carries group data: %+v", r)
	}
	if r.Installments != 1 || r.CurrentInstallment != 1 {
		t.Fatalf("numbering = %d/%d, want 1/1", r.CurrentInstallment, r.Installments)
	}
}

func TestExpandRecurringSingleInstallment(t *testing.T) {
	e := testEngine()
	records, err := e.Expand(draft(true, 1))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	// "Marked recurring but not split" passes through as a single record.
	if !r.Recurring {
		t.Fatalf("recurring flag dropped")
	}
	if r.RecurringGroup != "" {
		t.Fatalf("single installment must not form a group")
	}
}

func TestExpandRecurringSeries(t *testing.T) {
	e := testEngine()
	records, err := e.Expand(draft(true, 3))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	group := records[0].RecurringGroup
	if group == "" {
		t.Fatalf("missing group token")
	}
	wantDates := []core.Date{
		core.NewDate(2025, 1, 15),
		core.NewDate(2025, 2, 15),
		core.NewDate(2025, 3, 15),
	}
	seenIDs := map[string]bool{}
	for i, r := range records {
		if r.RecurringGroup != group {
			t.Fatalf("record %d has group %q, want %q", i, r.RecurringGroup, group)
		}
		if seenIDs[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seenIDs[r.ID] = true
		if r.CurrentInstallment != i+1 || r.Installments != 3 {
			t.Fatalf("record %d numbered %d/%d", i, r.CurrentInstallment, r.Installments)
		}
		if !r.Date.Equal(wantDates[i]) {
			t.Fatalf("record %d dated %s, want %s", i, r.Date, wantDates[i])
		}
		if r.Amount.Cents != 120000 {
			t.Fatalf("record %d amount %d", i, r.Amount.Cents)
		}
		if !r.CreatedAt.Equal(records[0].CreatedAt) {
			t.Fatalf("createdAt differs within series")
		}
	}
}

func TestExpandMonthEndSeries(t *testing.T) {
	e := testEngine()
	d := draft(true, 3)
	d.Date = core.NewDate(2025, 1, 31)
	records, err := e.Expand(d)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// Dates are offsets from the base date; February normalizes forward but
	// March keeps the 31st.
	wantDates := []core.Date{
		core.NewDate(2025, 1, 31),
		core.NewDate(2025, 3, 3),
		core.NewDate(2025, 3, 31),
	}
	for i, r := range records {
		if !r.Date.Equal(wantDates[i]) {
			t.Fatalf("record %d dated %s, want %s", i, r.Date, wantDates[i])
		}
	}
}

func TestExpandRejectsInvalidDraft(t *testing.T) {
	e := testEngine()
	bad := draft(true, 3)
	bad.Name = ""
	if _, err := e.Expand(bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func expandGroup(t *testing.T, e *Engine, installments int) []core.ExpenseRecord {
	t.Helper()
	records, err := e.Expand(draft(true, installments))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	return records
}

func TestResolveSingleFieldEdit(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	name := "Rent (raised)"
	res, err := e.ResolveUpdate(group[1], group, core.FieldUpdates{Name: &name}, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 1 || len(res.RemovedIDs) != 0 {
		t.Fatalf("single edit touched %d records, removed %d", len(res.Records), len(res.RemovedIDs))
	}
	got := res.Records[0]
	if got.ID != group[1].ID || got.Name != name {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.CurrentInstallment != 2 || got.Installments != 3 {
		t.Fatalf("numbering changed on a field edit: %d/%d", got.CurrentInstallment, got.Installments)
	}
}

func TestResolveSingleRejectsRenumberingNonRecurring(t *testing.T) {
	e := testEngine()
	records, err := e.Expand(draft(false, 0))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	two := 2
	_, err = e.ResolveUpdate(records[0], nil, core.FieldUpdates{CurrentInstallment: &two}, false)
	if !errors.Is(err, core.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestResolveSingleRejectsOutOfRangePosition(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)
	five := 5
	_, err := e.ResolveUpdate(group[0], nil, core.FieldUpdates{CurrentInstallment: &five}, false)
	if !errors.Is(err, core.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestResequenceMoveSecondToFirst(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	one := 1
	res, err := e.ResolveUpdate(group[1], group, core.FieldUpdates{CurrentInstallment: &one}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 3 || len(res.RemovedIDs) != 0 {
		t.Fatalf("resequence touched %d records, removed %d", len(res.Records), len(res.RemovedIDs))
	}

	// Former #2 takes position 1, former #1 slides to 2, #3 stays put.
	wantOrder := []string{group[1].ID, group[0].ID, group[2].ID}
	for i, r := range res.Records {
		if r.ID != wantOrder[i] {
			t.Fatalf("position %d held by %s, want %s", i+1, r.ID, wantOrder[i])
		}
		if r.CurrentInstallment != i+1 {
			t.Fatalf("position %d numbered %d", i+1, r.CurrentInstallment)
		}
		if r.Installments != 3 {
			t.Fatalf("total changed to %d during resequence", r.Installments)
		}
	}
	// Dates travel with the records, not the positions.
	if !res.Records[0].Date.Equal(core.NewDate(2025, 2, 15)) {
		t.Fatalf("moved record's date changed: %s", res.Records[0].Date)
	}
	if !res.Records[1].Date.Equal(core.NewDate(2025, 1, 15)) {
		t.Fatalf("displaced record's date changed: %s", res.Records[1].Date)
	}
}

func TestResequenceIsPermutation(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 5)

	four := 4
	res, err := e.ResolveUpdate(group[1], group, core.FieldUpdates{CurrentInstallment: &four}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	before := map[string]bool{}
	for _, r := range group {
		before[r.ID] = true
	}
	positions := map[int]bool{}
	for _, r := range res.Records {
		if !before[r.ID] {
			t.Fatalf("resequence synthesized record %s", r.ID)
		}
		if positions[r.CurrentInstallment] {
			t.Fatalf("duplicate position %d", r.CurrentInstallment)
		}
		positions[r.CurrentInstallment] = true
	}
	if len(res.Records) != len(group) {
		t.Fatalf("resequence changed group size: %d != %d", len(res.Records), len(group))
	}
	for p := 1; p <= len(group); p++ {
		if !positions[p] {
			t.Fatalf("position %d missing after resequence", p)
		}
	}
}

func TestResequenceRejectsOutOfRange(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)
	for _, requested := range []int{0, 4, -1} {
		p := requested
		_, err := e.ResolveUpdate(group[0], group, core.FieldUpdates{CurrentInstallment: &p}, true)
		if !errors.Is(err, core.ErrInvariant) {
			t.Fatalf("position %d: expected ErrInvariant, got %v", requested, err)
		}
	}
}

func TestResequenceCarriesFieldUpdates(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	three := 3
	amount := core.Money{Cents: 99900}
	res, err := e.ResolveUpdate(group[0], group, core.FieldUpdates{CurrentInstallment: &three, Amount: &amount}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i, r := range res.Records {
		if r.Amount.Cents != 99900 {
			t.Fatalf("record %d amount %d, want 99900", i, r.Amount.Cents)
		}
	}
	if res.Records[2].ID != group[0].ID {
		t.Fatalf("moved record not at requested position")
	}
}

func TestResequenceIgnoresInstallmentsChange(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	one := 1
	five := 5
	res, err := e.ResolveUpdate(group[2], group, core.FieldUpdates{CurrentInstallment: &one, Installments: &five}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// One intent at a time: the move wins, the total stays.
	if len(res.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Records))
	}
	for i, r := range res.Records {
		if r.Installments != 3 {
			t.Fatalf("record %d total %d, want 3", i, r.Installments)
		}
	}
}

func TestResizeShrink(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 4)

	two := 2
	res, err := e.ResolveUpdate(group[0], group, core.FieldUpdates{Installments: &two}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d survivors, want 2", len(res.Records))
	}
	if len(res.RemovedIDs) != 2 {
		t.Fatalf("removed %d, want 2", len(res.RemovedIDs))
	}
	removed := map[string]bool{res.RemovedIDs[0]: true, res.RemovedIDs[1]: true}
	if !removed[group[2].ID] || !removed[group[3].ID] {
		t.Fatalf("wrong members removed: %v", res.RemovedIDs)
	}
	for i, r := range res.Records {
		if r.Installments != 2 || r.CurrentInstallment != i+1 {
			t.Fatalf("survivor %d numbered %d/%d", i, r.CurrentInstallment, r.Installments)
		}
	}
}

func TestResizeGrowFromLast(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	five := 5
	res, err := e.ResolveUpdate(group[2], group, core.FieldUpdates{Installments: &five}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 5 || len(res.RemovedIDs) != 0 {
		t.Fatalf("got %d records, removed %d", len(res.Records), len(res.RemovedIDs))
	}

	existing := map[string]bool{}
	for _, r := range group {
		existing[r.ID] = true
	}
	wantDates := []core.Date{
		core.NewDate(2025, 1, 15),
		core.NewDate(2025, 2, 15),
		core.NewDate(2025, 3, 15),
		core.NewDate(2025, 4, 15),
		core.NewDate(2025, 5, 15),
	}
	for i, r := range res.Records {
		if r.Installments != 5 || r.CurrentInstallment != i+1 {
			t.Fatalf("record %d numbered %d/%d", i, r.CurrentInstallment, r.Installments)
		}
		if !r.Date.Equal(wantDates[i]) {
			t.Fatalf("record %d dated %s, want %s", i, r.Date, wantDates[i])
		}
		if r.RecurringGroup != group[0].RecurringGroup {
			t.Fatalf("record %d left the group", i)
		}
		if i >= 3 && existing[r.ID] {
			t.Fatalf("synthesized record reused id %s", r.ID)
		}
		if i < 3 && !existing[r.ID] {
			t.Fatalf("original member %d replaced by a new id", i)
		}
	}
}

func TestResizeGrowFromMiddleDoesNotSynthesize(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	five := 5
	res, err := e.ResolveUpdate(group[0], group, core.FieldUpdates{Installments: &five}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 3 || len(res.RemovedIDs) != 0 {
		t.Fatalf("got %d records, removed %d", len(res.Records), len(res.RemovedIDs))
	}
	for i, r := range res.Records {
		if r.Installments != 5 {
			t.Fatalf("record %d total %d, want 5", i, r.Installments)
		}
	}
}

func TestResizeRejectsNonPositiveTotal(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)
	zero := 0
	_, err := e.ResolveUpdate(group[0], group, core.FieldUpdates{Installments: &zero}, true)
	if !errors.Is(err, core.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestPlainGroupEdit(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	amount := core.Money{Cents: 130000}
	name := "Rent (new lease)"
	res, err := e.ResolveUpdate(group[1], group, core.FieldUpdates{Amount: &amount, Name: &name}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 3 || len(res.RemovedIDs) != 0 {
		t.Fatalf("got %d records, removed %d", len(res.Records), len(res.RemovedIDs))
	}
	for i, r := range res.Records {
		if r.Amount.Cents != 130000 || r.Name != name {
			t.Fatalf("record %d not updated: %+v", i, r)
		}
		if r.CurrentInstallment != group[i].CurrentInstallment || r.Installments != 3 {
			t.Fatalf("record %d numbering changed", i)
		}
		if !r.Date.Equal(group[i].Date) {
			t.Fatalf("record %d date changed", i)
		}
	}
}

func TestPlainGroupEditIsIdempotent(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 3)

	amount := core.Money{Cents: 130000}
	updates := core.FieldUpdates{Amount: &amount}

	first, err := e.ResolveUpdate(group[1], group, updates, true)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := e.ResolveUpdate(first.Records[1], first.Records, updates, true)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	for i := range first.Records {
		if first.Records[i] != second.Records[i] {
			t.Fatalf("record %d diverged on repeat application", i)
		}
	}
}

func TestResolveRejectsForeignMember(t *testing.T) {
	e := testEngine()
	group := expandGroup(t, e, 2)
	other := expandGroup(t, e, 2)

	amount := core.Money{Cents: 1}
	members := append(append([]core.ExpenseRecord(nil), group...), other[0])
	_, err := e.ResolveUpdate(group[0], members, core.FieldUpdates{Amount: &amount}, true)
	if !errors.Is(err, core.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestResolveGroupFlagWithoutGroupFallsBackToSingle(t *testing.T) {
	e := testEngine()
	records, err := e.Expand(draft(false, 0))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	name := "Solo"
	res, err := e.ResolveUpdate(records[0], nil, core.FieldUpdates{Name: &name}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Name != name {
		t.Fatalf("unexpected result: %+v", res.Records)
	}
}
