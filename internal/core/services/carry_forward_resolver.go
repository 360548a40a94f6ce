package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

type carryForwardResolver struct {
	BaseService
	statementRepo portsrepo.StatementReader
}

// NewCarryForwardResolver creates the resolver that seeds a statement's previous balance.
func NewCarryForwardResolver(statementRepo portsrepo.StatementReader) portssvc.CarryForwardResolverSvc {
	return &carryForwardResolver{statementRepo: statementRepo}
}

var _ portssvc.CarryForwardResolverSvc = (*carryForwardResolver)(nil)

// Resolve returns the net due of the person's latest signed-off statement. A
// statement whose payment batch has completed counts as signed off even when it
// stayed POSTED because the batch only paid part of it. Zero for a person's first
// statement; that is not an error.
func (r *carryForwardResolver) Resolve(ctx context.Context, personID string, periodFrom time.Time) (decimal.Decimal, error) {
	prior, err := r.statementRepo.FindLatestSignedOffBefore(ctx, personID, periodFrom)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			r.LogDebug(ctx, "No signed-off statement to carry forward",
				slog.String("person_id", personID),
				slog.String("period_from", periodFrom.Format("2006-01-02")))
			return decimal.Zero, nil
		}
		r.LogError(ctx, err, "Failed to look up carry-forward statement", slog.String("person_id", personID))
		return decimal.Zero, err
	}

	r.LogDebug(ctx, "Carrying forward balance",
		slog.String("person_id", personID),
		slog.String("from_statement_id", prior.StatementID),
		slog.String("net_due", prior.NetDue.String()))
	return prior.NetDue, nil
}
