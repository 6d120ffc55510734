package timesheet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store keyed by (owner, date).
type memStore struct {
	mu      sync.Mutex
	entries map[int64]map[string]Entry
	// failOn makes UpsertHours fail for the given date.
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[int64]map[string]Entry),
		failOn:  make(map[string]error),
	}
}

func (m *memStore) owner(id int64) map[string]Entry {
	if m.entries[id] == nil {
		m.entries[id] = make(map[string]Entry)
	}
	return m.entries[id]
}

func (m *memStore) UpsertHours(ctx context.Context, ownerID int64, date time.Time, hours, target decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := date.Format(DateLayout)
	if err := m.failOn[key]; err != nil {
		return err
	}
	rows := m.owner(ownerID)
	e, ok := rows[key]
	if !ok {
		e = Entry{OwnerID: ownerID, Date: date, TargetHours: target}
	}
	e.ProductiveHours = hours
	rows[key] = e
	return nil
}

func (m *memStore) UpsertEntry(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.owner(entry.OwnerID)
	key := entry.Date.Format(DateLayout)
	if existing, ok := rows[key]; ok {
		entry.TargetHours = existing.TargetHours
	}
	rows[key] = entry
	return nil
}

func (m *memStore) ListEntries(ctx context.Context, ownerID int64, from, to time.Time) ([]Entry, error) {
	all, _ := m.ListAllEntries(ctx, ownerID)
	var out []Entry
	for _, e := range all {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListAllEntries(ctx context.Context, ownerID int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries[ownerID] {
		out = append(out, e)
	}
	// Descending, so callers cannot rely on store ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) LatestEntryDate(ctx context.Context, ownerID int64) (time.Time, bool, error) {
	all, _ := m.ListAllEntries(ctx, ownerID)
	if len(all) == 0 {
		return time.Time{}, false, nil
	}
	return all[0].Date, true, nil
}

func (m *memStore) DeleteEntries(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries[ownerID]))
	delete(m.entries, ownerID)
	return n, nil
}

func (m *memStore) count(ownerID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[ownerID])
}
