// Package dedup remembers which datasets have already been attempted so that
// repeated change-log entries are not processed twice.
package dedup

import (
	"context"
	"sync"
)

// SetName is the collection, table or set that holds admitted dataset ids in
// the shared backends.
const SetName = "datasets_indexed_dicom"

// Tracker records dataset ids. Membership is permanent: ids are never
// removed or expired.
type Tracker interface {
	// Seen reports whether id was marked before.
	Seen(ctx context.Context, id string) (bool, error)
	// MarkSeen records id. Marking an id twice is not an error.
	MarkSeen(ctx context.Context, id string) error
	// Admit atomically checks and records id. It returns true only for the
	// caller that recorded it first.
	Admit(ctx context.Context, id string) (bool, error)
	Close() error
}

// Memory is a process-local Tracker. Its contents are lost on restart.
type Memory struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemory returns an empty in-memory tracker.
func NewMemory() *Memory {
	return &Memory{ids: make(map[string]struct{})}
}

var _ Tracker = (*Memory)(nil)

func (m *Memory) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}

func (m *Memory) MarkSeen(_ context.Context, id string) error {
	m.mu.Lock()
	m.ids[id] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Admit(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[id]; ok {
		return false, nil
	}
	m.ids[id] = struct{}{}
	return true, nil
}

func (m *Memory) Close() error { return nil }
