// Package persist is the persistence collaborator: a synchronous key-value
// interface over opaque blobs, plus the snapshot codec that serializes the
// full record collection losslessly. The core treats the backing store as
// opaque; the SQLite implementation lives behind the same interface as the
// in-memory one used in tests.
package persist

import "context"

// Fixed keys for the persisted state.
const (
	KeyRecords    = "expenses/records"
	KeyGoal       = "expenses/goal"
	KeyCategories = "expenses/categories"
	KeyBanks      = "expenses/banks"
)

// KV is the synchronous persistence contract. Get reports found=false for an
// absent key; Set overwrites unconditionally.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryKV is a map-backed KV for tests and ephemeral runs.
type MemoryKV struct {
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.values[key] = append([]byte(nil), value...)
	return nil
}
