package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
)

// statementStore is the single write path for statement rows. Every change is
// persisted, audited and then re-read to check the net due invariant, all
// inside the caller's transaction.
type statementStore struct {
	repo  portsrepo.StatementRepositoryFacade
	audit portssvc.AuditTrailSvc
}

type statementChange struct {
	from    domain.StatementStatus
	action  domain.AuditAction
	actorID string
	at      time.Time
	details *string
}

func (st *statementStore) apply(ctx context.Context, stmt *domain.Statement, change statementChange) error {
	stmt.Recompute()
	stmt.Touch(change.actorID, change.at)
	if err := st.repo.UpdateStatement(ctx, stmt); err != nil {
		return err
	}
	if err := st.record(ctx, stmt, change); err != nil {
		return err
	}
	return st.verify(ctx, stmt.StatementID)
}

func (st *statementStore) record(ctx context.Context, stmt *domain.Statement, change statementChange) error {
	return st.audit.Record(ctx, domain.StatementAuditLog{
		StatementID: stmt.StatementID,
		Action:      change.action,
		FromStatus:  change.from,
		ToStatus:    stmt.Status,
		PerformedBy: change.actorID,
		Timestamp:   change.at,
		Details:     change.details,
	})
}

func (st *statementStore) verify(ctx context.Context, statementID string) error {
	stored, err := st.repo.FindStatementByID(ctx, statementID)
	if err != nil {
		return err
	}
	return stored.CheckConsistency()
}

func stringPtr(s string) *string {
	return &s
}
