// Package store persists raw engine inputs in SQLite so periodic refresh
// runs can recompute from the latest ingested batch.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

// SQLiteStore persists triangle observations and year aggregates.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance while batches land.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened",
		zap.String("op", "store.NewSQLiteStore"),
		zap.String("path", dbPath),
	)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		// The unique key enforces the one-point-per-tuple invariant; the
		// upsert in UpsertPoints makes the most recently ingested amount win.
		`CREATE TABLE IF NOT EXISTS triangle_points (
			accident_year      INTEGER NOT NULL,
			development_months INTEGER NOT NULL,
			metric_type        TEXT    NOT NULL,
			amount             REAL    NOT NULL,
			UNIQUE(accident_year, development_months, metric_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_year ON triangle_points(accident_year)`,

		`CREATE TABLE IF NOT EXISTS year_aggregates (
			accident_year  INTEGER PRIMARY KEY,
			earned_premium REAL,
			net_paid       REAL,
			reserves       REAL,
			incurred       REAL,
			has_incurred   INTEGER NOT NULL DEFAULT 0,
			has_paid_data  INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS record_loss_ratios (
			accident_year INTEGER NOT NULL,
			loss_ratio    REAL    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_record_ratios_year ON record_loss_ratios(accident_year)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// UpsertPoints appends a batch of observations; duplicates of an existing
// (year, months, metric) key replace the stored amount.
func (s *SQLiteStore) UpsertPoints(points []triangle.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(`INSERT INTO triangle_points
		(accident_year, development_months, metric_type, amount)
		VALUES (?,?,?,?)
		ON CONFLICT(accident_year, development_months, metric_type)
		DO UPDATE SET amount = excluded.amount`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.AccidentYear, p.DevelopmentMonths, string(p.Metric), p.Amount); err != nil {
			return fmt.Errorf("upsert point (%d, %d, %s): %w", p.AccidentYear, p.DevelopmentMonths, p.Metric, err)
		}
	}
	return tx.Commit()
}

// ReplaceSnapshot replaces the entire stored snapshot with the given one.
func (s *SQLiteStore) ReplaceSnapshot(snapshot engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"triangle_points", "year_aggregates", "record_loss_ratios"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, p := range snapshot.Points {
		if _, err := tx.Exec(`INSERT INTO triangle_points
			(accident_year, development_months, metric_type, amount)
			VALUES (?,?,?,?)
			ON CONFLICT(accident_year, development_months, metric_type)
			DO UPDATE SET amount = excluded.amount`,
			p.AccidentYear, p.DevelopmentMonths, string(p.Metric), p.Amount,
		); err != nil {
			return fmt.Errorf("insert point: %w", err)
		}
	}

	for _, agg := range snapshot.Aggregates {
		if _, err := tx.Exec(`INSERT INTO year_aggregates
			(accident_year, earned_premium, net_paid, reserves, incurred, has_incurred, has_paid_data)
			VALUES (?,?,?,?,?,?,?)`,
			agg.AccidentYear, agg.EarnedPremium, agg.NetPaid, agg.Reserves,
			agg.Incurred, boolToInt(agg.HasIncurred), boolToInt(agg.HasPaidReserveData),
		); err != nil {
			return fmt.Errorf("insert aggregate for %d: %w", agg.AccidentYear, err)
		}
		for _, ratio := range agg.RecordLossRatios {
			if _, err := tx.Exec(`INSERT INTO record_loss_ratios (accident_year, loss_ratio) VALUES (?,?)`,
				agg.AccidentYear, ratio,
			); err != nil {
				return fmt.Errorf("insert record ratio for %d: %w", agg.AccidentYear, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the full stored snapshot back out.
func (s *SQLiteStore) LoadSnapshot() (engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot engine.Snapshot

	rows, err := s.db.Query(`SELECT accident_year, development_months, metric_type, amount
		FROM triangle_points ORDER BY accident_year, development_months, metric_type`)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p triangle.Point
		var metric string
		if err := rows.Scan(&p.AccidentYear, &p.DevelopmentMonths, &metric, &p.Amount); err != nil {
			return engine.Snapshot{}, fmt.Errorf("scan point: %w", err)
		}
		p.Metric = triangle.MetricType(metric)
		snapshot.Points = append(snapshot.Points, p)
	}
	if err := rows.Err(); err != nil {
		return engine.Snapshot{}, fmt.Errorf("iterate points: %w", err)
	}

	ratios, err := s.loadRecordRatios()
	if err != nil {
		return engine.Snapshot{}, err
	}

	aggRows, err := s.db.Query(`SELECT accident_year, earned_premium, net_paid, reserves, incurred, has_incurred, has_paid_data
		FROM year_aggregates ORDER BY accident_year`)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("query aggregates: %w", err)
	}
	defer aggRows.Close()
	for aggRows.Next() {
		var agg projection.YearAggregate
		var hasIncurred, hasPaid int
		if err := aggRows.Scan(&agg.AccidentYear, &agg.EarnedPremium, &agg.NetPaid,
			&agg.Reserves, &agg.Incurred, &hasIncurred, &hasPaid); err != nil {
			return engine.Snapshot{}, fmt.Errorf("scan aggregate: %w", err)
		}
		agg.HasIncurred = hasIncurred != 0
		agg.HasPaidReserveData = hasPaid != 0
		agg.RecordLossRatios = ratios[agg.AccidentYear]
		snapshot.Aggregates = append(snapshot.Aggregates, agg)
	}
	if err := aggRows.Err(); err != nil {
		return engine.Snapshot{}, fmt.Errorf("iterate aggregates: %w", err)
	}

	return snapshot, nil
}

func (s *SQLiteStore) loadRecordRatios() (map[int][]float64, error) {
	rows, err := s.db.Query(`SELECT accident_year, loss_ratio FROM record_loss_ratios ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query record ratios: %w", err)
	}
	defer rows.Close()

	ratios := make(map[int][]float64)
	for rows.Next() {
		var year int
		var ratio float64
		if err := rows.Scan(&year, &ratio); err != nil {
			return nil, fmt.Errorf("scan record ratio: %w", err)
		}
		ratios[year] = append(ratios[year], ratio)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record ratios: %w", err)
	}
	return ratios, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store", zap.String("op", "store.Close"))
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
