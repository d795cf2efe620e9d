package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps bookings in process. Used by tests and the dev server without a database.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]Booking
	index map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]Booking{}, index: map[string]string{}}
}

func slotKey(resourceID string, date time.Time) string {
	return resourceID + "|" + date.Format(DateLayout)
}

func (m *MemoryStore) Insert(_ context.Context, b Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slotKey(b.ResourceID, b.Date)
	if _, ok := m.index[k]; ok {
		return &ConflictError{ResourceID: b.ResourceID, Date: b.Date}
	}
	m.byID[b.ID] = b
	m.index[k] = b.ID
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return Booking{}, false, nil
	}
	delete(m.byID, id)
	delete(m.index, slotKey(b.ResourceID, b.Date))
	return b, true, nil
}

func (m *MemoryStore) Exists(_ context.Context, resourceID string, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[slotKey(resourceID, date)]
	return ok, nil
}

func (m *MemoryStore) List(_ context.Context, resourceID string, from, to time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.byID {
		if b.ResourceID != resourceID {
			continue
		}
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
