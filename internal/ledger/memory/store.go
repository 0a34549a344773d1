package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

// Store keeps ledger entries in process memory. Entries are lost on restart.
type Store struct {
	mu      sync.RWMutex
	entries map[domain.OrderID]domain.LedgerEntry
}

func NewStore() *Store {
	return &Store{entries: make(map[domain.OrderID]domain.LedgerEntry)}
}

// Get returns the entry for an order, or nil when none exists.
func (s *Store) Get(_ context.Context, orderID domain.OrderID) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[orderID]
	if !ok {
		return nil, nil
	}
	found := entry
	return &found, nil
}

// Reserve stores entry unless the order already has one, and returns the
// entry that holds the order.
func (s *Store) Reserve(_ context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.OrderID]; ok {
		return existing, nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries[entry.OrderID] = entry
	return entry, nil
}
