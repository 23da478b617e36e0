package interfaces

import (
	"context"

	"github.com/mcheron/trackfolio/internal/models"
)

// StorageManager provides access to all storage areas.
type StorageManager interface {
	PerformanceStore() PerformanceStore
	Close() error
}

// PerformanceStore persists computed series as long-format rows.
//
// Replace is atomic per run: all prior rows for the given entities are
// removed and the new rows inserted in a single transaction, so a failed run
// never leaves a mixed-version dataset behind.
type PerformanceStore interface {
	Replace(ctx context.Context, entities []string, rows []models.PerformanceRow) error

	// Rows returns persisted rows for one entity/metric, ordered by date.
	Rows(ctx context.Context, entity string, metric models.MetricType) ([]models.PerformanceRow, error)
}
