package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/models"
)

// PerformanceStore is an in-memory interfaces.PerformanceStore with the
// same replace semantics as the SurrealDB store: all rows for the given
// entities are swapped atomically.
type PerformanceStore struct {
	mu   sync.RWMutex
	rows map[string][]models.PerformanceRow // keyed by entity name
}

// NewPerformanceStore creates an empty store.
func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{rows: make(map[string][]models.PerformanceRow)}
}

func (s *PerformanceStore) Replace(ctx context.Context, entities []string, rows []models.PerformanceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entity := range entities {
		delete(s.rows, entity)
	}
	for _, row := range rows {
		s.rows[row.EntityName] = append(s.rows[row.EntityName], row)
	}
	return nil
}

func (s *PerformanceStore) Rows(ctx context.Context, entity string, metric models.MetricType) ([]models.PerformanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PerformanceRow
	for _, row := range s.rows[entity] {
		if row.MetricType == metric {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Manager is an in-memory interfaces.StorageManager.
type Manager struct {
	store *PerformanceStore
}

// NewManager creates a storage manager backed by memory.
func NewManager() *Manager {
	return &Manager{store: NewPerformanceStore()}
}

func (m *Manager) PerformanceStore() interfaces.PerformanceStore { return m.store }

func (m *Manager) Close() error { return nil }
