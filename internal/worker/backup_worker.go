// Package worker mirrors the persisted snapshot to a portable export file.
// The server publishes a mutation event after every commit; this worker
// reacts to those events and keeps an on-disk backup document current.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"fincontrol/internal/amqp"
	"fincontrol/internal/core"
	"fincontrol/internal/persist"
	"fincontrol/internal/transfer"
)

// BackupWorker rewrites the backup document from the snapshot store. Events
// only mark the state dirty; the actual write reads the authoritative
// snapshot, so a missed event is repaired by the next flush.
type BackupWorker struct {
	kv    persist.KV
	path  string
	dirty atomic.Bool
}

func NewBackupWorker(kv persist.KV, path string) *BackupWorker {
	return &BackupWorker{kv: kv, path: path}
}

// HandleEvent processes a single mutation event from AMQP.
func (w *BackupWorker) HandleEvent(ctx context.Context, event *amqp.MutationEvent) error {
	slog.InfoContext(ctx, "Processing mutation event",
		"type", event.Type,
		"records", len(event.RecordIDs))

	w.dirty.Store(true)
	return w.Flush(ctx)
}

// Flush writes the backup document if anything changed since the last write.
func (w *BackupWorker) Flush(ctx context.Context) error {
	if !w.dirty.Swap(false) {
		return nil
	}

	records, goal, err := w.loadSnapshot(ctx)
	if err != nil {
		w.dirty.Store(true)
		return err
	}

	data, err := transfer.Export(records, goal, transfer.FormatText)
	if err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("render backup document: %w", err)
	}

	if err := writeFileAtomic(w.path, data); err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("write backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup written", "path", w.path, "records", len(records))
	return nil
}

// MarkDirty forces the next Flush to write, used for the startup pass.
func (w *BackupWorker) MarkDirty() {
	w.dirty.Store(true)
}

func (w *BackupWorker) loadSnapshot(ctx context.Context) ([]core.ExpenseRecord, core.Money, error) {
	var records []core.ExpenseRecord
	if data, found, err := w.kv.Get(ctx, persist.KeyRecords); err != nil {
		return nil, core.Money{}, fmt.Errorf("read records snapshot: %w", err)
	} else if found {
		records, err = persist.DecodeRecords(data)
		if err != nil {
			return nil, core.Money{}, fmt.Errorf("decode records snapshot: %w", err)
		}
	}

	var goal core.Money
	if data, found, err := w.kv.Get(ctx, persist.KeyGoal); err != nil {
		return nil, core.Money{}, fmt.Errorf("read goal snapshot: %w", err)
	} else if found {
		goal, err = persist.DecodeGoal(data)
		if err != nil {
			return nil, core.Money{}, fmt.Errorf("decode goal snapshot: %w", err)
		}
	}

	return records, goal, nil
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated backup.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
