package store

import (
	"context"
	"sort"
	"sync"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// MemoryStore is an in-memory TradeStore used for tests and dry runs. It
// mirrors the SQLiteStore's ordering and atomicity semantics.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[int64]models.Trade
	nextID int64

	// FailErr, when set, is returned by the FailAt-th ApplyMatch call
	// (1-based) before anything is mutated. Used to exercise failure
	// paths in tests.
	FailErr    error
	FailAt     int
	applyCalls int
}

// NewMemoryStore creates an empty in-memory trade store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make(map[int64]models.Trade),
		nextID: 1,
	}
}

// ListTrades returns trades matching the filter, ordered by entry date then id.
func (m *MemoryStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Trade
	for _, t := range m.trades {
		if filter.Symbol != "" && t.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartDate.IsZero() && t.EntryDate.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && t.EntryDate.After(filter.EndDate) {
			continue
		}
		if filter.OpenOnly && !t.IsOpen() {
			continue
		}
		out = append(out, cloneTrade(t))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListUnmatched returns trades whose P&L is not yet set.
func (m *MemoryStore) ListUnmatched(ctx context.Context) ([]models.Trade, error) {
	return m.ListTrades(ctx, TradeFilter{OpenOnly: true})
}

// GetTrade returns the trade with the given id.
func (m *MemoryStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, apperrors.ErrTradeNotFound
	}
	c := cloneTrade(t)
	return &c, nil
}

// InsertTrade stores a new trade and returns its assigned id.
func (m *MemoryStore) InsertTrade(ctx context.Context, trade *models.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(trade), nil
}

func (m *MemoryStore) insertLocked(trade *models.Trade) int64 {
	id := m.nextID
	m.nextID++
	trade.ID = id
	m.trades[id] = cloneTrade(*trade)
	return id
}

// DeleteTrade removes a trade by id.
func (m *MemoryStore) DeleteTrade(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trades[id]; !ok {
		return false, nil
	}
	delete(m.trades, id)
	return true, nil
}

// ApplyMatch atomically inserts and deletes under one lock. All originals
// must still exist or nothing is applied.
func (m *MemoryStore) ApplyMatch(ctx context.Context, inserts []models.Trade, deleteIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyCalls++
	if m.FailErr != nil && m.applyCalls == m.FailAt {
		return m.FailErr
	}

	for _, id := range deleteIDs {
		if _, ok := m.trades[id]; !ok {
			return apperrors.Wrapf(apperrors.ErrTradeNotFound, "delete trade %d", id)
		}
	}

	for i := range inserts {
		m.insertLocked(&inserts[i])
	}
	for _, id := range deleteIDs {
		delete(m.trades, id)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored trades.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

func cloneTrade(t models.Trade) models.Trade {
	c := t
	if t.StrikePrice != nil {
		c.StrikePrice = models.Float64Ptr(*t.StrikePrice)
	}
	if t.Expiration != nil {
		c.Expiration = models.TimePtr(*t.Expiration)
	}
	if t.ExitPrice != nil {
		c.ExitPrice = models.Float64Ptr(*t.ExitPrice)
	}
	if t.ExitDate != nil {
		c.ExitDate = models.TimePtr(*t.ExitDate)
	}
	if t.PnL != nil {
		c.PnL = models.Float64Ptr(*t.PnL)
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.Screenshots = append([]string(nil), t.Screenshots...)
	return c
}
