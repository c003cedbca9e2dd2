package sensor

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNoReadings is returned when a store has nothing for the query.
var ErrNoReadings = errors.New("no sensor data available")

// Page is one slice of history, newest first.
type Page struct {
	Records []Record `json:"history"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

// Store persists readings. An empty deviceID matches every device.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Latest(ctx context.Context, deviceID string) (Record, error)
	History(ctx context.Context, deviceID string, page, perPage int) (Page, error)
	Close(ctx context.Context) error
}

// NormalizePage clamps paging arguments to page >= 1 and perPage in [1, 100],
// defaulting perPage to 10.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// MemoryStore keeps readings in process. Used when no MongoDB is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	limit   int
}

// NewMemoryStore keeps at most limit records (oldest dropped). limit <= 0
// means 1000.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
	sort.SliceStable(m.records, func(i, j int) bool {
		return m.records[i].Timestamp.After(m.records[j].Timestamp)
	})
	if len(m.records) > m.limit {
		m.records = m.records[:m.limit]
	}
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, deviceID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if deviceID == "" || rec.DeviceID == deviceID {
			return rec, nil
		}
	}
	return Record{}, ErrNoReadings
}

func (m *MemoryStore) History(_ context.Context, deviceID string, page, perPage int) (Page, error) {
	page, perPage = NormalizePage(page, perPage)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Record
	for _, rec := range m.records {
		if deviceID == "" || rec.DeviceID == deviceID {
			matched = append(matched, rec)
		}
	}

	out := Page{Total: int64(len(matched)), Page: page, PerPage: perPage, Records: []Record{}}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return out, nil
	}
	end := min(start+perPage, len(matched))
	out.Records = append(out.Records, matched[start:end]...)
	return out, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }
