package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/models"
)

// testDB connects to a live SurrealDB when TRACKFOLIO_TEST_DB_ADDRESS is
// set, using a unique database name per test for isolation. Skipped
// otherwise so the unit suite stays self-contained.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	address := os.Getenv("TRACKFOLIO_TEST_DB_ADDRESS")
	if address == "" {
		t.Skip("TRACKFOLIO_TEST_DB_ADDRESS not set")
	}

	ctx := context.Background()
	db, err := surreal.New(address)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": "root",
		"pass": "root",
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbName := fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
	if err := db.Use(ctx, "trackfolio_test", dbName); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	if _, err := surreal.Query[any](ctx, db, "DEFINE TABLE IF NOT EXISTS performance SCHEMALESS", nil); err != nil {
		t.Fatalf("define table: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

func TestPerformanceStore_ReplaceAndRows(t *testing.T) {
	db := testDB(t)
	store := NewPerformanceStore(db, common.NewSilentLogger())
	ctx := context.Background()

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	rows := []models.PerformanceRow{
		{Date: d2, EntityName: "AAPL", MetricType: models.MetricValuation, Value: 110, ReportingCurrency: "EUR", RunID: "run-1"},
		{Date: d1, EntityName: "AAPL", MetricType: models.MetricValuation, Value: 100, ReportingCurrency: "EUR", RunID: "run-1"},
		{Date: d1, EntityName: "AAPL", MetricType: models.MetricPRU, Value: 100.1, ReportingCurrency: "EUR", RunID: "run-1"},
	}
	if err := store.Replace(ctx, []string{"AAPL"}, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Rows(ctx, "AAPL", models.MetricValuation)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Errorf("rows not sorted by date: %v then %v", got[0].Date, got[1].Date)
	}

	// A second replace for the same entity removes the first run entirely.
	if err := store.Replace(ctx, []string{"AAPL"}, []models.PerformanceRow{
		{Date: d1, EntityName: "AAPL", MetricType: models.MetricValuation, Value: 105, ReportingCurrency: "EUR", RunID: "run-2"},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err = store.Rows(ctx, "AAPL", models.MetricValuation)
	if err != nil {
		t.Fatalf("rows after replace: %v", err)
	}
	if len(got) != 1 || got[0].RunID != "run-2" {
		t.Fatalf("replace did not swap rows: %+v", got)
	}
}
