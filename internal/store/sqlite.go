package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/sellerfin/offer-engine/internal/model"
)

// sqliteSchema stores amounts as TEXT to keep exact decimal strings and
// created_at as Unix nanoseconds so ordering is numeric.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                   TEXT PRIMARY KEY,
	address              TEXT NOT NULL DEFAULT '',
	listed_price         TEXT NOT NULL,
	monthly_rent         TEXT NOT NULL,
	monthly_property_tax TEXT NOT NULL,
	monthly_insurance    TEXT NOT NULL,
	monthly_hoa_fee      TEXT NOT NULL,
	monthly_other_fees   TEXT NOT NULL,
	offers               TEXT NOT NULL,
	best_viability       TEXT NOT NULL,
	created_at_ns        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at_ns DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_viability ON analyses(best_viability, created_at_ns DESC);
`

// SQLiteStore implements Store on a local SQLite file. It backs the CLI
// history and single-node servers without PostgreSQL.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	offers, err := json.Marshal(a.Offers)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}

	p := a.Property
	_, err = s.db.ExecContext(ctx, `INSERT INTO analyses
		(id, address, listed_price, monthly_rent, monthly_property_tax,
		 monthly_insurance, monthly_hoa_fee, monthly_other_fees,
		 offers, best_viability, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Address,
		p.ListedPrice.String(), p.MonthlyRent.String(), p.MonthlyPropertyTax.String(),
		p.MonthlyInsurance.String(), p.MonthlyHOAFee.String(), p.MonthlyOtherFees.String(),
		string(offers), string(a.BestViability), a.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM analyses WHERE id = ?`, id)

	a, err := scanSQLiteAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, f ListFilter) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+`
		FROM analyses
		WHERE (? = '' OR best_viability = ?)
		ORDER BY created_at_ns DESC, id DESC
		LIMIT ?`,
		string(f.Viability), string(f.Viability), f.EffectiveLimit())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanSQLiteAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const sqliteColumns = `id, address,
	listed_price, monthly_rent, monthly_property_tax,
	monthly_insurance, monthly_hoa_fee, monthly_other_fees,
	offers, best_viability, created_at_ns`

func scanSQLiteAnalysis(row rowScanner) (*model.Analysis, error) {
	var a model.Analysis
	var price, rent, tax, insurance, hoa, other, offers, viability string
	var createdNs int64

	if err := row.Scan(&a.ID, &a.Address,
		&price, &rent, &tax, &insurance, &hoa, &other,
		&offers, &viability, &createdNs); err != nil {
		return nil, err
	}

	if err := decodeAnalysis(&a, [6]string{price, rent, tax, insurance, hoa, other}, offers, viability); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(0, createdNs).UTC()
	return &a, nil
}
