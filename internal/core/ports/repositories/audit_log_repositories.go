package repositories

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
)

// AuditLogReader defines read operations for statement audit entries
type AuditLogReader interface {
	// ListAuditLogsForStatement returns the statement's entries, most recent first.
	ListAuditLogsForStatement(ctx context.Context, statementID string) ([]domain.StatementAuditLog, error)
}

// AuditLogWriter appends audit entries. There is no update or delete.
type AuditLogWriter interface {
	AppendAuditLog(ctx context.Context, entry domain.StatementAuditLog) error
}

// AuditLogRepositoryFacade combines the audit log repository interfaces
type AuditLogRepositoryFacade interface {
	AuditLogReader
	AuditLogWriter
}
