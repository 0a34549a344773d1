package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, orderID domain.OrderID) (*domain.LedgerEntry, error) {
	query := `
		SELECT order_id, code, artifact_name, created_at
		FROM report_artifacts
		WHERE order_id = $1
	`

	var entry domain.LedgerEntry
	var id string
	err := s.pool.QueryRow(ctx, query, orderID.String()).Scan(
		&id,
		&entry.Code,
		&entry.ArtifactName,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select report artifact: %w", err)
	}
	entry.OrderID = domain.OrderID(id)

	return &entry, nil
}

// Reserve inserts entry unless the order is already bound and returns the
// stored row. A concurrent insert for the same order blocks on the primary
// key until the first transaction commits, so both callers read one winner.
func (s *Store) Reserve(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	query := `
		INSERT INTO report_artifacts (order_id, code, artifact_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING order_id, code, artifact_name, created_at
	`

	var stored domain.LedgerEntry
	var id string
	err := s.pool.QueryRow(ctx, query, entry.OrderID.String(), entry.Code, entry.ArtifactName).Scan(
		&id,
		&stored.Code,
		&stored.ArtifactName,
		&stored.CreatedAt,
	)
	if err == nil {
		stored.OrderID = domain.OrderID(id)
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerEntry{}, fmt.Errorf("insert report artifact: %w", err)
	}

	existing, err := s.Get(ctx, entry.OrderID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if existing == nil {
		return domain.LedgerEntry{}, fmt.Errorf("report artifact for order %s missing after conflict", entry.OrderID)
	}

	return *existing, nil
}
