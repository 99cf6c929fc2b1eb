// Package store provides trade persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// timeLayout is the persisted date format: local time without a UTC offset
// suffix, so values re-read in another timezone configuration do not shift
// across a calendar day boundary.
const timeLayout = "2006-01-02 15:04:05"

// SQLiteStore implements TradeStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore creates a new SQLite-based trade store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, logger: zerolog.Nop()}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the trades table and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trades table: one row per execution, or per matched round trip once
	-- the closure columns are populated. Nullable numerics are stored as
	-- NULL when absent, never as a sentinel number.
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL DEFAULT 'STOCK',
		option_type TEXT,
		strike_price REAL,
		expiration TEXT,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		entry_date TEXT NOT NULL,
		commission REAL NOT NULL DEFAULT 0,
		exit_price REAL,
		exit_date TEXT,
		pnl REAL,
		strategy TEXT,
		notes TEXT,
		tags TEXT,
		screenshots TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_date ON trades(entry_date);
	CREATE INDEX IF NOT EXISTS idx_trades_pnl ON trades(pnl);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SetLogger attaches a logger for non-fatal events such as skipped rows.
func (s *SQLiteStore) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const tradeColumns = `id, symbol, asset_type, option_type, strike_price, expiration,
	side, quantity, entry_price, entry_date, commission,
	exit_price, exit_date, pnl, strategy, notes, tags, screenshots`

// ListTrades retrieves trades matching the filter.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND entry_date >= ?"
		args = append(args, filter.StartDate.Format(timeLayout))
	}
	if !filter.EndDate.IsZero() {
		query += " AND entry_date <= ?"
		args = append(args, filter.EndDate.Format(timeLayout))
	}
	if filter.OpenOnly {
		query += " AND pnl IS NULL"
	}

	query += " ORDER BY entry_date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	return s.scanTrades(rows)
}

// ListUnmatched retrieves trades whose P&L is not yet set.
func (s *SQLiteStore) ListUnmatched(ctx context.Context) ([]models.Trade, error) {
	return s.ListTrades(ctx, TradeFilter{OpenOnly: true})
}

// GetTrade retrieves a single trade by id.
func (s *SQLiteStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)

	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// InsertTrade persists a new trade and returns its assigned id.
func (s *SQLiteStore) InsertTrade(ctx context.Context, trade *models.Trade) (int64, error) {
	res, err := insertTrade(ctx, s.db, trade)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	trade.ID = id
	return id, nil
}

// DeleteTrade removes a trade by id.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// ApplyMatch atomically inserts the matched and remainder trades and deletes
// the consumed originals. A failure at any step rolls back the whole match.
func (s *SQLiteStore) ApplyMatch(ctx context.Context, inserts []models.Trade, deleteIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range inserts {
		if _, err := insertTrade(ctx, tx, &inserts[i]); err != nil {
			return fmt.Errorf("failed to insert matched trade: %w", err)
		}
	}

	for _, id := range deleteIDs {
		res, err := tx.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete original trade %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if n == 0 {
			// Original vanished under us; applying the match would
			// duplicate shares.
			return fmt.Errorf("delete trade %d: %w", id, apperrors.ErrTradeNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTrade(ctx context.Context, db execer, t *models.Trade) (sql.Result, error) {
	tags, _ := json.Marshal(t.Tags)
	screenshots, _ := json.Marshal(t.Screenshots)

	return db.ExecContext(ctx, `
		INSERT INTO trades (symbol, asset_type, option_type, strike_price, expiration,
			side, quantity, entry_price, entry_date, commission,
			exit_price, exit_date, pnl, strategy, notes, tags, screenshots)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Symbol,
		string(t.AssetType),
		nullString(string(t.OptionType)),
		nullFloat(t.StrikePrice),
		nullTime(t.Expiration),
		string(t.Side),
		t.Quantity,
		t.EntryPrice,
		t.EntryDate.Format(timeLayout),
		t.Commission,
		nullFloat(t.ExitPrice),
		nullTime(t.ExitDate),
		nullFloat(t.PnL),
		t.Strategy,
		t.Notes,
		string(tags),
		string(screenshots),
	)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row scanner) (*models.Trade, error) {
	var t models.Trade
	var optionType, expiration, exitDate, strategy, notes sql.NullString
	var tagsJSON, screenshotsJSON sql.NullString
	var strikePrice, exitPrice, pnl sql.NullFloat64
	var entryDate string
	var assetType, side string

	err := row.Scan(
		&t.ID, &t.Symbol, &assetType, &optionType, &strikePrice, &expiration,
		&side, &t.Quantity, &t.EntryPrice, &entryDate, &t.Commission,
		&exitPrice, &exitDate, &pnl, &strategy, &notes, &tagsJSON, &screenshotsJSON,
	)
	if err != nil {
		return nil, err
	}

	t.AssetType = models.AssetType(assetType)
	t.Side = models.TradeSide(side)
	t.OptionType = models.OptionType(optionType.String)
	t.Strategy = strategy.String
	t.Notes = notes.String

	t.EntryDate, err = parseLocalTime(entryDate)
	if err != nil {
		return nil, fmt.Errorf("trade %d: bad entry date %q: %w", t.ID, entryDate, err)
	}

	if strikePrice.Valid {
		t.StrikePrice = models.Float64Ptr(strikePrice.Float64)
	}
	if exitPrice.Valid {
		t.ExitPrice = models.Float64Ptr(exitPrice.Float64)
	}
	if pnl.Valid {
		t.PnL = models.Float64Ptr(pnl.Float64)
	}
	if expiration.Valid && expiration.String != "" {
		ts, err := parseLocalTime(expiration.String)
		if err != nil {
			return nil, fmt.Errorf("trade %d: bad expiration %q: %w", t.ID, expiration.String, err)
		}
		t.Expiration = models.TimePtr(ts)
	}
	if exitDate.Valid && exitDate.String != "" {
		ts, err := parseLocalTime(exitDate.String)
		if err != nil {
			return nil, fmt.Errorf("trade %d: bad exit date %q: %w", t.ID, exitDate.String, err)
		}
		t.ExitDate = models.TimePtr(ts)
	}

	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &t.Tags)
	}
	if screenshotsJSON.Valid {
		json.Unmarshal([]byte(screenshotsJSON.String), &t.Screenshots)
	}

	return &t, nil
}

// scanTrades collects the result rows, skipping rows that cannot be decoded.
// One malformed persisted record must not take down a whole listing, so it is
// logged and dropped rather than returned as an error.
func (s *SQLiteStore) scanTrades(rows *sql.Rows) ([]models.Trade, error) {
	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unreadable trade row")
			continue
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

func parseLocalTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.Local)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
