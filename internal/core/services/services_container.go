package services

import (
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/observability"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(
	repos portsrepo.RepositoryProvider,
	aggregator portssvc.StatementTotalsAggregator,
	methods portssvc.PaymentMethodResolver,
	metrics *observability.Metrics,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The audit trail and resolver are leaves; every other service depends on them.
	container.AuditTrail = NewAuditTrailService(repos.AuditLogRepo, repos.StatementRepo)
	container.CarryForward = NewCarryForwardResolver(repos.StatementRepo)

	container.Statement = NewStatementService(
		repos,
		container.CarryForward,
		aggregator,
		container.AuditTrail,
		WithStatementMetrics(metrics),
	)
	container.PaymentLedger = NewPaymentLedgerService(
		repos,
		methods,
		container.AuditTrail,
		WithLedgerMetrics(metrics),
	)
	container.PaymentBatch = NewPaymentBatchService(
		repos,
		container.AuditTrail,
		WithBatchMetrics(metrics),
	)

	return container
}
