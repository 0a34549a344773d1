package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceConfig names the lead table and the fixed filter applied to it.
type SourceConfig struct {
	Table        string
	BuildingType string
	MaxRows      int
}

// Source reads report records from Redshift over the Postgres protocol.
type Source struct {
	pool  *pgxpool.Pool
	cfg   SourceConfig
	query string
}

func NewSource(pool *pgxpool.Pool, cfg SourceConfig) *Source {
	return &Source{pool: pool, cfg: cfg, query: buildQuery(cfg.Table)}
}

// buildQuery groups by lead id so each entity appears once. Contact columns
// are functionally dependent on the id, so MAX just picks the non-null value.
// Rows come back ordered by id. table may be schema-qualified.
func buildQuery(table string) string {
	return fmt.Sprintf(`
		SELECT CAST(id AS VARCHAR),
		       MAX(lastname),
		       MAX(firstname),
		       MAX(mobile),
		       MAX(email),
		       MAX(postal_code),
		       MAX(energy_class)
		FROM %s
		WHERE building_type = $1 AND energy_class = $2 AND id IS NOT NULL
		GROUP BY id
		ORDER BY id
		LIMIT $3
	`, pgx.Identifier(strings.Split(table, ".")).Sanitize())
}

func (s *Source) Fetch(ctx context.Context, code string) ([]domain.ReportRecord, error) {
	rows, err := s.pool.Query(ctx, s.query, s.cfg.BuildingType, code, s.cfg.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrDataSource, s.cfg.Table, err)
	}
	defer rows.Close()

	var records []domain.ReportRecord
	for rows.Next() {
		var (
			id                                                   string
			lastName, firstName, mobile, email, postal, category pgtype.Text
		)
		if err := rows.Scan(&id, &lastName, &firstName, &mobile, &email, &postal, &category); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", domain.ErrDataSource, err)
		}
		records = append(records, domain.ReportRecord{
			ID:             id,
			LastName:       lastName.String,
			FirstName:      firstName.String,
			Mobile:         mobile.String,
			Email:          email.String,
			PostalCode:     postal.String,
			Classification: category.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", domain.ErrDataSource, err)
	}

	return records, nil
}
