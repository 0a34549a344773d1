//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/dejobratic/reportwebhook/internal/database/dbtest"
	"github.com/dejobratic/reportwebhook/internal/ledger/postgres"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

func TestStoreReserveAndGet(t *testing.T) {
	pool := dbtest.Setup(t, true)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	entry := domain.LedgerEntry{
		OrderID:      "4521",
		Code:         "C",
		ArtifactName: "report_4521.csv",
	}

	stored, err := store.Reserve(ctx, entry)
	if err != nil {
		t.Fatalf("failed to reserve entry: %v", err)
	}
	if stored.Code != entry.Code {
		t.Errorf("expected reserved code %s, got %s", entry.Code, stored.Code)
	}

	retrieved, err := store.Get(ctx, "4521")
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}

	if retrieved == nil {
		t.Fatal("expected entry, got nil")
	}
	if retrieved.OrderID != entry.OrderID {
		t.Errorf("expected order id %s, got %s", entry.OrderID, retrieved.OrderID)
	}
	if retrieved.Code != entry.Code {
		t.Errorf("expected code %s, got %s", entry.Code, retrieved.Code)
	}
	if retrieved.ArtifactName != entry.ArtifactName {
		t.Errorf("expected artifact %s, got %s", entry.ArtifactName, retrieved.ArtifactName)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("expected created_at to be set by the database")
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	pool := dbtest.Setup(t, true)
	store := postgres.NewStore(pool)

	retrieved, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if retrieved != nil {
		t.Errorf("expected nil entry, got %+v", retrieved)
	}
}

func TestStoreReserve_ReturnsFirstCode(t *testing.T) {
	pool := dbtest.Setup(t, true)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, domain.LedgerEntry{OrderID: "9", Code: "C", ArtifactName: "report_9.csv"}); err != nil {
		t.Fatalf("failed to reserve first entry: %v", err)
	}
	stored, err := store.Reserve(ctx, domain.LedgerEntry{OrderID: "9", Code: "E", ArtifactName: "report_9.csv"})
	if err != nil {
		t.Fatalf("failed to reserve conflicting entry: %v", err)
	}
	if stored.Code != "C" {
		t.Errorf("expected first code to win, got %s", stored.Code)
	}

	retrieved, err := store.Get(ctx, "9")
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if retrieved.Code != "C" {
		t.Errorf("expected first code to be preserved, got %s", retrieved.Code)
	}
}

func TestStoreReserve_ConcurrentCallersAgree(t *testing.T) {
	pool := dbtest.Setup(t, true)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	codes := []string{"A", "B", "C", "D", "E", "F", "G"}
	winners := make([]string, 20)

	var wg sync.WaitGroup
	for i := range winners {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := store.Reserve(ctx, domain.LedgerEntry{OrderID: "77", Code: codes[i%len(codes)], ArtifactName: "report_77.csv"})
			if err != nil {
				t.Errorf("failed to reserve entry: %v", err)
				return
			}
			winners[i] = stored.Code
		}(i)
	}
	wg.Wait()

	for _, code := range winners {
		if code != winners[0] {
			t.Fatalf("reservations disagree: %v", winners)
		}
	}
}
