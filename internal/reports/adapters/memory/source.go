package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

// HouseBuildingType is the building type NewSource matches.
const HouseBuildingType = "house"

type row struct {
	record       domain.ReportRecord
	buildingType string
}

// Source serves report records from memory. Useful for local development
// and tests. Like the Redshift source it only returns records of one
// building type; records added without a type carry the source's own.
type Source struct {
	mu           sync.RWMutex
	rows         []row
	buildingType string
	maxRows      int
}

// NewSource returns a Source matching houses.
func NewSource(maxRows int, records ...domain.ReportRecord) *Source {
	return NewSourceFor(HouseBuildingType, maxRows, records...)
}

// NewSourceFor returns a Source matching buildingType, seeded with records
// of that type.
func NewSourceFor(buildingType string, maxRows int, records ...domain.ReportRecord) *Source {
	s := &Source{buildingType: buildingType, maxRows: maxRows}
	s.AddBuilding(buildingType, records...)
	return s
}

// Add appends records of the source's building type as if they had been
// loaded into the data store.
func (s *Source) Add(records ...domain.ReportRecord) {
	s.AddBuilding(s.buildingType, records...)
}

// AddBuilding appends records of the given building type.
func (s *Source) AddBuilding(buildingType string, records ...domain.ReportRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.rows = append(s.rows, row{record: rec, buildingType: buildingType})
	}
}

// Fetch returns records of the source's building type whose classification
// equals code, keeping the first record seen for each id and at most
// maxRows records.
func (s *Source) Fetch(ctx context.Context, code string) ([]domain.ReportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var result []domain.ReportRecord
	for _, r := range s.rows {
		if r.buildingType != s.buildingType || r.record.Classification != code {
			continue
		}
		if _, ok := seen[r.record.ID]; ok {
			continue
		}
		seen[r.record.ID] = struct{}{}
		result = append(result, r.record)
		if s.maxRows > 0 && len(result) >= s.maxRows {
			break
		}
	}
	return result, nil
}
