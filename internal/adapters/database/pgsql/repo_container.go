package pgsql

import (
	"time"

	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every settlement repository over one pool. All of
// them share the transaction manager, so a unit of work started by a service
// is visible to each repository through the context.
func NewRepositoryProvider(pool *pgxpool.Pool, txTimeout time.Duration) portsrepo.RepositoryProvider {
	base := BaseRepository{Pool: pool, TxTimeout: txTimeout}
	return portsrepo.RepositoryProvider{
		StatementRepo:    newPgxStatementRepository(base),
		PaymentBatchRepo: newPgxPaymentBatchRepository(base),
		PaymentRepo:      newPgxPaymentRepository(base),
		AuditLogRepo:     newPgxAuditLogRepository(base),
		TxManager:        &base,
	}
}
