// Package transfer implements dataset import/export as a self-describing
// versioned document. The document carries a schema version tag so foreign
// files are rejected up front; whether it is rendered compact or indented is
// irrelevant to the rest of the system.
package transfer

import (
	"encoding/json"
	"fmt"
	"time"

	"fincontrol/internal/core"
)

// SchemaVersion tags every exported document.
const SchemaVersion = "1.0"

// Format selects the export rendition.
type Format string

const (
	// FormatBinary is the compact single-line rendition.
	FormatBinary Format = "binary"
	// FormatText is the indented human-readable rendition.
	FormatText Format = "text"
)

// Mode selects how an imported collection lands in the store.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// Document is the serialized form of the full record collection.
type Document struct {
	SchemaVersion string               `json:"schema_version"`
	ExportedAt    time.Time            `json:"exported_at"`
	GoalCents     int64                `json:"goal_cents"`
	Records       []core.ExpenseRecord `json:"records"`
}

// Export renders the collection and goal as a versioned document.
func Export(records []core.ExpenseRecord, goal core.Money, format Format) ([]byte, error) {
	doc := Document{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC(),
		GoalCents:     goal.Cents,
		Records:       records,
	}

	switch format {
	case FormatText:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export document: %w", err)
		}
		return data, nil
	case FormatBinary, "":
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("export document: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", core.ErrValidation, format)
	}
}

// Import decodes and validates a document. Records must carry unique,
// non-empty ids; deeper invariants are the store's concern when the
// collection is installed.
func Import(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: malformed import document: %v", core.ErrValidation, err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return Document{}, fmt.Errorf("%w: unsupported schema version %q", core.ErrValidation, doc.SchemaVersion)
	}

	seen := make(map[string]struct{}, len(doc.Records))
	for _, r := range doc.Records {
		if r.ID == "" {
			return Document{}, fmt.Errorf("%w: imported record without id", core.ErrValidation)
		}
		if _, ok := seen[r.ID]; ok {
			return Document{}, fmt.Errorf("%w: %s repeated in import", core.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return doc, nil
}

// ParseMode validates an import mode string, defaulting to replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReplace, "":
		return ModeReplace, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("%w: unknown import mode %q", core.ErrValidation, s)
	}
}
