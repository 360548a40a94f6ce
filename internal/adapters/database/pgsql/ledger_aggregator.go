package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxLedgerAggregator totals a person's ledger entries for a statement period.
// person_ledger_entries is fed by the trip and expense modules of the wider application.
type PgxLedgerAggregator struct {
	BaseRepository
}

// NewPgxLedgerAggregator creates the aggregator over the shared pool.
func NewPgxLedgerAggregator(pool *pgxpool.Pool) portssvc.StatementTotalsAggregator {
	return &PgxLedgerAggregator{BaseRepository: BaseRepository{Pool: pool}}
}

func (a *PgxLedgerAggregator) ComputeStatementTotals(ctx context.Context, personID string, periodFrom, periodTo time.Time) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_kind = 'REVENUE'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_kind = 'EXPENSE'), 0)
		FROM person_ledger_entries
		WHERE person_id = $1 AND entry_date BETWEEN $2 AND $3;
	`
	var revenues, expenses decimal.Decimal
	if err := a.db(ctx).QueryRow(ctx, query, personID, periodFrom, periodTo).Scan(&revenues, &expenses); err != nil {
		return decimal.Zero, decimal.Zero, apperrors.NewAppError(500, "failed to aggregate ledger entries for person "+personID, err)
	}
	return revenues.Round(2), expenses.Round(2), nil
}
