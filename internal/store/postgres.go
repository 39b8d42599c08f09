package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/model"
)

// postgresSchema creates the analyses table. Property inputs are NUMERIC
// for exact decimal precision; offers are stored whole as JSONB.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                   UUID PRIMARY KEY,
	address              TEXT NOT NULL DEFAULT '',
	listed_price         NUMERIC NOT NULL,
	monthly_rent         NUMERIC NOT NULL,
	monthly_property_tax NUMERIC NOT NULL,
	monthly_insurance    NUMERIC NOT NULL,
	monthly_hoa_fee      NUMERIC NOT NULL,
	monthly_other_fees   NUMERIC NOT NULL,
	offers               JSONB NOT NULL,
	best_viability       TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analyses_created_at_idx ON analyses (created_at DESC);
CREATE INDEX IF NOT EXISTS analyses_best_viability_idx ON analyses (best_viability, created_at DESC);
`

const analysisColumns = `id::TEXT, address,
	listed_price::TEXT, monthly_rent::TEXT,
	monthly_property_tax::TEXT, monthly_insurance::TEXT,
	monthly_hoa_fee::TEXT, monthly_other_fees::TEXT,
	offers::TEXT, best_viability, created_at`

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the analyses table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	offers, err := json.Marshal(a.Offers)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}

	p := a.Property
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, address,
			listed_price, monthly_rent, monthly_property_tax,
			monthly_insurance, monthly_hoa_fee, monthly_other_fees,
			offers, best_viability, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC,
			$6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::JSONB, $10, $11)`,
		a.ID, a.Address,
		p.ListedPrice.String(), p.MonthlyRent.String(), p.MonthlyPropertyTax.String(),
		p.MonthlyInsurance.String(), p.MonthlyHOAFee.String(), p.MonthlyOtherFees.String(),
		string(offers), string(a.BestViability), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	key, err := analysisUUID(id)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, key)

	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, f ListFilter) ([]model.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+analysisColumns+`
		 FROM analyses
		 WHERE ($1::TEXT = '' OR best_viability = $1::TEXT)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		string(f.Viability), f.EffectiveLimit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	key, err := analysisUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// analysisUUID parses id for comparison against the UUID primary key. A
// malformed ID can never match a row, so it reports ErrNotFound.
func analysisUUID(id string) (uuid.UUID, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return key, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*model.Analysis, error) {
	var a model.Analysis
	var price, rent, tax, insurance, hoa, other, offers, viability string

	if err := row.Scan(&a.ID, &a.Address,
		&price, &rent, &tax, &insurance, &hoa, &other,
		&offers, &viability, &a.CreatedAt); err != nil {
		return nil, err
	}

	if err := decodeAnalysis(&a, [6]string{price, rent, tax, insurance, hoa, other}, offers, viability); err != nil {
		return nil, err
	}
	return &a, nil
}

// decodeAnalysis fills the text-encoded columns shared by the SQL stores.
func decodeAnalysis(a *model.Analysis, amounts [6]string, offers, viability string) error {
	fields := []*decimal.Decimal{
		&a.Property.ListedPrice, &a.Property.MonthlyRent,
		&a.Property.MonthlyPropertyTax, &a.Property.MonthlyInsurance,
		&a.Property.MonthlyHOAFee, &a.Property.MonthlyOtherFees,
	}
	for i, s := range amounts {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("decode analysis %s: %w", a.ID, err)
		}
		*fields[i] = v
	}

	if err := json.Unmarshal([]byte(offers), &a.Offers); err != nil {
		return fmt.Errorf("decode offers for %s: %w", a.ID, err)
	}
	a.BestViability = model.Viability(viability)
	return nil
}
