package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/oklog/ulid/v2"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

// Repository implements ports.RunRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRunID returns a new lexicographically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trendbot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode lets report readers run alongside a writing backtest.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %w", ports.ErrDBConnection, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %w", ports.ErrDBConnection, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "SQLite run journal ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		period_start TIMESTAMP NOT NULL,
		period_end TIMESTAMP NOT NULL,
		symbols TEXT NOT NULL,
		initial_capital REAL NOT NULL,
		final_capital REAL NOT NULL,
		total_return_pct REAL NOT NULL,
		max_drawdown_pct REAL NOT NULL,
		win_rate_pct REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		trade_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		size REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		close_reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_equity (
		run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		equity REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, seq);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun stores the run, its trades and its equity curve atomically. An empty
// run ID is filled with a fresh one.
func (r *Repository) SaveRun(ctx context.Context, run *domain.BacktestRun, trades []domain.Trade, equity []float64) (err error) {
	if run == nil {
		return fmt.Errorf("nil run: %w", ports.ErrInvalidRequest)
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const runQuery = `
	INSERT INTO backtest_runs (id, started_at, period_start, period_end, symbols, initial_capital,
	                           final_capital, total_return_pct, max_drawdown_pct, win_rate_pct,
	                           sharpe_ratio, trade_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, runQuery,
		run.ID, run.StartedAt.UTC(), run.PeriodStart.UTC(), run.PeriodEnd.UTC(), strings.Join(run.Symbols, ","),
		finite(run.InitialCapital), finite(run.FinalCapital), finite(run.TotalReturnPct),
		finite(run.MaxDrawdownPct), finite(run.WinRatePct), finite(run.SharpeRatio), run.TradeCount)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("run %s: %w", run.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO backtest_trades (run_id, seq, symbol, entry_price, exit_price, size, pnl, pnl_pct,
	                             entry_time, exit_time, close_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trade insert: %w", err)
	}
	defer tradeStmt.Close()
	for i, t := range trades {
		_, err = tradeStmt.ExecContext(ctx, run.ID, i, t.Symbol, t.EntryPrice, t.ExitPrice, t.Size,
			finite(t.PNL), finite(t.PNLPercent), t.EntryTime.UTC(), t.ExitTime.UTC(), string(t.CloseReason))
		if err != nil {
			return fmt.Errorf("failed to insert trade %d of run %s: %w: %w", i, run.ID, ports.ErrQueryFailed, err)
		}
	}

	equityStmt, err := tx.PrepareContext(ctx, `INSERT INTO backtest_equity (run_id, seq, equity) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare equity insert: %w", err)
	}
	defer equityStmt.Close()
	for i, v := range equity {
		if _, err = equityStmt.ExecContext(ctx, run.ID, i, finite(v)); err != nil {
			return fmt.Errorf("failed to insert equity point %d of run %s: %w: %w", i, run.ID, ports.ErrQueryFailed, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Backtest run journaled", map[string]interface{}{"runID": run.ID, "trades": len(trades), "equityPoints": len(equity)})
	return nil
}

const runColumns = `id, started_at, period_start, period_end, symbols, initial_capital, final_capital,
	       total_return_pct, max_drawdown_pct, win_rate_pct, sharpe_ratio, trade_count`

// GetRun retrieves a run by ID. Returns nil, nil when no such run exists.
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.BacktestRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Run not found", map[string]interface{}{"runID": id})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all runs.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM backtest_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	runs := make([]*domain.BacktestRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run during ListRuns: %w", err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// GetRunTrades returns the trade log of a run in the order it was recorded.
func (r *Repository) GetRunTrades(ctx context.Context, id string) ([]domain.Trade, error) {
	const query = `
	SELECT symbol, entry_price, exit_price, size, pnl, pnl_pct, entry_time, exit_time, close_reason
	FROM backtest_trades
	WHERE run_id = ? ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades of run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during GetRunTrades: %w", err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// GetRunEquity returns the equity curve of a run.
func (r *Repository) GetRunEquity(ctx context.Context, id string) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT equity FROM backtest_equity WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity of run %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	equity := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		equity = append(equity, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equity rows: %w", err)
	}
	return equity, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*domain.BacktestRun, error) {
	run := &domain.BacktestRun{}
	var symbols string
	err := s.Scan(
		&run.ID, &run.StartedAt, &run.PeriodStart, &run.PeriodEnd, &symbols, &run.InitialCapital,
		&run.FinalCapital, &run.TotalReturnPct, &run.MaxDrawdownPct, &run.WinRatePct,
		&run.SharpeRatio, &run.TradeCount)
	if err != nil {
		return nil, err
	}
	if symbols != "" {
		run.Symbols = strings.Split(symbols, ",")
	}
	return run, nil
}

func scanTrade(s scanner) (domain.Trade, error) {
	var t domain.Trade
	var reason string
	err := s.Scan(&t.Symbol, &t.EntryPrice, &t.ExitPrice, &t.Size, &t.PNL, &t.PNLPercent,
		&t.EntryTime, &t.ExitTime, &reason)
	if err != nil {
		return domain.Trade{}, err
	}
	t.CloseReason = domain.CloseReason(reason)
	return t, nil
}

// finite maps NaN and infinities to zero; SQLite stores NaN as NULL.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
