package pgsql

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
	"github.com/SscSPs/fleet_settlement_app/internal/utils/mapping"
)

type PgxAuditLogRepository struct {
	BaseRepository
}

// newPgxAuditLogRepository creates a new repository for the statement audit trail.
func newPgxAuditLogRepository(base BaseRepository) portsrepo.AuditLogRepositoryFacade {
	return &PgxAuditLogRepository{BaseRepository: base}
}

var _ portsrepo.AuditLogRepositoryFacade = (*PgxAuditLogRepository)(nil)

// AppendAuditLog inserts one entry. The table rejects updates and deletes.
func (r *PgxAuditLogRepository) AppendAuditLog(ctx context.Context, entry domain.StatementAuditLog) error {
	m := mapping.ToModelStatementAuditLog(entry)
	query := `
		INSERT INTO statement_audit_logs (
			audit_log_id, statement_id, action, from_status, to_status, performed_by, performed_at, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		m.AuditLogID,
		m.StatementID,
		m.Action,
		m.FromStatus,
		m.ToStatus,
		m.PerformedBy,
		m.Timestamp,
		m.Details,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to append audit log for statement "+m.StatementID, err)
	}
	return nil
}

func (r *PgxAuditLogRepository) ListAuditLogsForStatement(ctx context.Context, statementID string) ([]domain.StatementAuditLog, error) {
	query := `
		SELECT audit_log_id, statement_id, action, from_status, to_status, performed_by, performed_at, details
		FROM statement_audit_logs
		WHERE statement_id = $1
		ORDER BY performed_at DESC, audit_seq DESC;
	`
	rows, err := r.db(ctx).Query(ctx, query, statementID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list audit logs for statement "+statementID, err)
	}
	defer rows.Close()

	out := []domain.StatementAuditLog{}
	for rows.Next() {
		var m models.StatementAuditLog
		if err := rows.Scan(
			&m.AuditLogID,
			&m.StatementID,
			&m.Action,
			&m.FromStatus,
			&m.ToStatus,
			&m.PerformedBy,
			&m.Timestamp,
			&m.Details,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan audit log row", err)
		}
		out = append(out, mapping.ToDomainStatementAuditLog(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating audit log rows", err)
	}
	return out, nil
}
