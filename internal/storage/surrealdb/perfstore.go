package surrealdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/surrealdb/surrealdb.go"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/models"
)

// PerformanceStore persists computed series as long-format rows in the
// performance table.
type PerformanceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPerformanceStore(db *surrealdb.DB, logger *common.Logger) *PerformanceStore {
	return &PerformanceStore{
		db:     db,
		logger: logger,
	}
}

// Replace swaps all rows for the given entities in one transaction, so a
// failed run never leaves a mixed-version dataset behind.
func (s *PerformanceStore) Replace(ctx context.Context, entities []string, rows []models.PerformanceRow) error {
	if len(entities) == 0 {
		return nil
	}

	sql := `
		BEGIN TRANSACTION;
		DELETE performance WHERE entity_name IN $entities;
		INSERT INTO performance $rows;
		COMMIT TRANSACTION;
	`
	vars := map[string]any{
		"entities": entities,
		"rows":     rows,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
		if err == nil {
			s.logger.Info().
				Int("entities", len(entities)).
				Int("rows", len(rows)).
				Msg("Performance rows replaced")
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to replace performance rows after retries: %w", lastErr)
}

// Rows returns persisted rows for one entity/metric, ordered by date.
func (s *PerformanceStore) Rows(ctx context.Context, entity string, metric models.MetricType) ([]models.PerformanceRow, error) {
	sql := "SELECT * FROM performance WHERE entity_name = $entity AND metric_type = $metric"
	vars := map[string]any{
		"entity": entity,
		"metric": string(metric),
	}

	results, err := surrealdb.Query[[]models.PerformanceRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance rows: %w", err)
	}

	var rows []models.PerformanceRow
	if results != nil && len(*results) > 0 {
		rows = (*results)[0].Result
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}
