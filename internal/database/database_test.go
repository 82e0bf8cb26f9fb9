package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/STRATINT/radar/internal/config"
	"github.com/STRATINT/radar/internal/logging"
	"github.com/STRATINT/radar/internal/models"
)

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	if err := HealthCheck(context.Background(), db); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(2))
	if err := HealthCheck(context.Background(), db); err == nil {
		t.Fatal("expected error for unexpected result")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConnectRequiresTarget(t *testing.T) {
	if _, err := Connect(context.Background(), config.DatabaseConfig{}); err == nil {
		t.Fatal("expected error without DATABASE_URL or Cloud SQL instance")
	}
}

func TestVersionCacheRoundTrip_Postgres(t *testing.T) {
	dbURL := os.Getenv("RADAR_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Requires database connection - set RADAR_TEST_DATABASE_URL to run")
	}

	ctx := context.Background()
	db, err := Connect(ctx, config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
		ConnMaxLifetime:    time.Minute,
		ConnectTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, logging.Discard()); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}

	repo := NewVersionCacheRepository(db)
	snap := models.Snapshot{
		SourceID:  "ANM",
		Version:   "v2025.10",
		FetchedAt: time.Now().UTC().Truncate(time.Second),
		Updates:   []models.RawUpdate{{Title: "Resolution 125/2025", Impact: models.ImpactHigh}},
	}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	slots, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, ok := slots["ANM"]
	if !ok || got.Version != "v2025.10" || len(got.Updates) != 1 {
		t.Errorf("unexpected slot after round trip: %+v", got)
	}
}
