package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/legacyfund/internal/domain"
)

// RatesTable reads the daily snapshot written by the rates job.
type RatesTable struct {
	db *DB
}

func NewRatesTable(db *DB) *RatesTable { return &RatesTable{db: db} }

// Fetch returns the most recent row, or the zero snapshot when the table is empty.
func (t *RatesTable) Fetch(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	var snap domain.ExchangeRateSnapshot
	err := t.db.Pool.QueryRow(ctx, `
SELECT mxn_rate, cop_rate, clp_rate, rate_date
FROM exchange_rates
ORDER BY rate_date DESC
LIMIT 1`).Scan(&snap.MXNRate, &snap.COPRate, &snap.CLPRate, &snap.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExchangeRateSnapshot{}, nil
	}
	if err != nil {
		return domain.ExchangeRateSnapshot{}, fmt.Errorf("scan rates: %w", err)
	}
	return snap, nil
}

// Save upserts the snapshot for its date.
func (t *RatesTable) Save(ctx context.Context, snap domain.ExchangeRateSnapshot) error {
	_, err := t.db.Pool.Exec(ctx, `
INSERT INTO exchange_rates (rate_date, mxn_rate, cop_rate, clp_rate)
VALUES ($1,$2,$3,$4)
ON CONFLICT (rate_date) DO UPDATE
SET mxn_rate=EXCLUDED.mxn_rate, cop_rate=EXCLUDED.cop_rate, clp_rate=EXCLUDED.clp_rate`,
		snap.Date, snap.MXNRate, snap.COPRate, snap.CLPRate)
	if err != nil {
		return fmt.Errorf("save rates: %w", err)
	}
	return nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
