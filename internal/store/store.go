// Package store provides trade persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// TradeStore defines the interface for trade persistence. The matching engine
// mutates the store; the metrics and calendar engines only read from it.
type TradeStore interface {
	// ListTrades returns trades matching the filter, ordered by entry date
	// ascending with ties broken by identifier.
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// ListUnmatched returns trades whose realized P&L is not yet set.
	ListUnmatched(ctx context.Context) ([]models.Trade, error)

	// GetTrade returns the trade with the given id, or ErrTradeNotFound.
	GetTrade(ctx context.Context, id int64) (*models.Trade, error)

	// InsertTrade persists a new trade and returns its store-assigned id.
	InsertTrade(ctx context.Context, trade *models.Trade) (int64, error)

	// DeleteTrade removes a trade. Returns false when no such trade exists.
	DeleteTrade(ctx context.Context, id int64) (bool, error)

	// ApplyMatch atomically inserts the given trades and deletes the given
	// ids. Either the whole match is applied or none of it.
	ApplyMatch(ctx context.Context, inserts []models.Trade, deleteIDs []int64) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	OpenOnly  bool
	Limit     int
}

// DateRange represents a date range. Zero bounds are unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}
