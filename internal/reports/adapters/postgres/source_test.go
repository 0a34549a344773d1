//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/reportwebhook/internal/database/dbtest"
	"github.com/dejobratic/reportwebhook/internal/reports/adapters/postgres"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedLeads(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE leads (
			id            INTEGER,
			lastname      VARCHAR(128),
			firstname     VARCHAR(128),
			mobile        VARCHAR(32),
			email         VARCHAR(256),
			postal_code   VARCHAR(16),
			energy_class  VARCHAR(8),
			building_type VARCHAR(32)
		)
	`)
	if err != nil {
		t.Fatalf("failed to create leads table: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO leads (id, lastname, firstname, mobile, email, postal_code, energy_class, building_type) VALUES
			(2, 'Martin', 'Lea',  NULL,         'lea@example.fr',  '75011', 'C', 'house'),
			(2, NULL,     NULL,   '0600000002', NULL,              NULL,    'C', 'house'),
			(1, 'Durand', 'Paul', '0600000001', 'paul@example.fr', '69003', 'C', 'house'),
			(3, 'Bernard','Anne', '0600000003', 'anne@example.fr', '13001', 'C', 'apartment'),
			(4, 'Petit',  'Marc', '0600000004', 'marc@example.fr', '33000', 'E', 'house')
	`)
	if err != nil {
		t.Fatalf("failed to seed leads: %v", err)
	}
}

func TestSourceFetch(t *testing.T) {
	pool := dbtest.Setup(t, false)
	seedLeads(t, pool)
	ctx := context.Background()

	source := postgres.NewSource(pool, postgres.SourceConfig{Table: "leads", BuildingType: "house", MaxRows: 100})

	records, err := source.Fetch(ctx, "C")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 deduplicated records, got %d: %+v", len(records), records)
	}
	if records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("expected records ordered by id, got %s, %s", records[0].ID, records[1].ID)
	}

	lea := records[1]
	if lea.LastName != "Martin" || lea.Mobile != "0600000002" || lea.Email != "lea@example.fr" {
		t.Errorf("expected non-null values aggregated per id, got %+v", lea)
	}
	if lea.Classification != "C" {
		t.Errorf("expected classification C, got %s", lea.Classification)
	}
}

func TestSourceFetch_RespectsCap(t *testing.T) {
	pool := dbtest.Setup(t, false)
	seedLeads(t, pool)

	source := postgres.NewSource(pool, postgres.SourceConfig{Table: "leads", BuildingType: "house", MaxRows: 1})

	records, err := source.Fetch(context.Background(), "C")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected cap of 1 record, got %d", len(records))
	}
}

func TestSourceFetch_NoMatches(t *testing.T) {
	pool := dbtest.Setup(t, false)
	seedLeads(t, pool)

	source := postgres.NewSource(pool, postgres.SourceConfig{Table: "leads", BuildingType: "house", MaxRows: 100})

	records, err := source.Fetch(context.Background(), "G")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestSourceFetch_MissingTable(t *testing.T) {
	pool := dbtest.Setup(t, false)

	source := postgres.NewSource(pool, postgres.SourceConfig{Table: "missing", BuildingType: "house", MaxRows: 100})

	_, err := source.Fetch(context.Background(), "C")
	if !errors.Is(err, domain.ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}

	// The failed query must have released its connection.
	if stat := pool.Stat(); stat.AcquiredConns() != 0 {
		t.Errorf("expected no acquired connections, got %d", stat.AcquiredConns())
	}
}

func TestSourceFetch_ClosedPool(t *testing.T) {
	pool := dbtest.Setup(t, false)
	source := postgres.NewSource(pool, postgres.SourceConfig{Table: "leads", BuildingType: "house", MaxRows: 100})
	pool.Close()

	_, err := source.Fetch(context.Background(), "C")
	if !errors.Is(err, domain.ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}
}
