package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"fincontrol/internal/core"
)

func sampleRecords() []core.ExpenseRecord {
	return []core.ExpenseRecord{
		{
			ID:                 "r1",
			Name:               "Rent",
			Date:               core.NewDate(2025, 1, 15),
			Category:           core.Category{Name: "Housing"},
			Bank:               core.Bank{Name: "Checking"},
			Amount:             core.Money{Cents: 120000},
			Recurring:          true,
			Installments:       3,
			CurrentInstallment: 1,
			RecurringGroup:     "g1",
		},
		{
			ID:       "r2",
			Name:     "Groceries",
			Date:     core.NewDate(2025, 1, 20),
			Category: core.Category{Name: "Food"},
			Bank:     core.Bank{Name: "Checking"},
			Amount:   core.Money{Cents: 4550},
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	records := sampleRecords()
	data, err := Export(records, core.Money{Cents: 200000}, FormatBinary)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	doc, err := Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version %q", doc.SchemaVersion)
	}
	if doc.GoalCents != 200000 {
		t.Fatalf("goal %d", doc.GoalCents)
	}
	if len(doc.Records) != 2 {
		t.Fatalf("got %d records", len(doc.Records))
	}
	if doc.Records[0].RecurringGroup != "g1" || doc.Records[0].Installments != 3 {
		t.Fatalf("group data lost: %+v", doc.Records[0])
	}
	if !doc.Records[0].Date.Equal(core.NewDate(2025, 1, 15)) {
		t.Fatalf("date shifted: %s", doc.Records[0].Date)
	}
}

func TestExportFormats(t *testing.T) {
	records := sampleRecords()

	compact, err := Export(records, core.Money{}, FormatBinary)
	if err != nil {
		t.Fatalf("binary export: %v", err)
	}
	indented, err := Export(records, core.Money{}, FormatText)
	if err != nil {
		t.Fatalf("text export: %v", err)
	}
	if bytes.Contains(compact, []byte("\n  ")) {
		t.Fatalf("binary rendition is indented")
	}
	if !bytes.Contains(indented, []byte("\n  ")) {
		t.Fatalf("text rendition is not indented")
	}

	// Both renditions decode to the same document.
	a, err := Import(compact)
	if err != nil {
		t.Fatalf("import compact: %v", err)
	}
	b, err := Import(indented)
	if err != nil {
		t.Fatalf("import indented: %v", err)
	}
	if len(a.Records) != len(b.Records) {
		t.Fatalf("renditions diverge")
	}

	if _, err := Export(records, core.Money{}, "xml"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown format, got %v", err)
	}
}

func TestImportRejectsWrongVersion(t *testing.T) {
	doc := Document{SchemaVersion: "2.0", Records: sampleRecords()}
	data, _ := json.Marshal(doc)
	if _, err := Import(data); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	if _, err := Import([]byte("{not json")); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestImportRejectsBadIDs(t *testing.T) {
	records := sampleRecords()
	records[1].ID = records[0].ID
	data, err := Export(records, core.Money{}, FormatBinary)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := Import(data); !errors.Is(err, core.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	records = sampleRecords()
	records[0].ID = ""
	data, err = Export(records, core.Money{}, FormatBinary)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := Import(data); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeReplace, true},
		{"replace", ModeReplace, true},
		{"append", ModeAppend, true},
		{"merge", "", false},
	}
	for i, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got %q, %v", i, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
