package mapping

import (
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
)

// ToModelStatement converts a domain Statement to a model Statement
func ToModelStatement(d domain.Statement) models.Statement {
	return models.Statement{
		StatementID:     d.StatementID,
		PersonID:        d.PersonID,
		PersonKind:      string(d.PersonKind),
		PeriodFrom:      d.PeriodFrom,
		PeriodTo:        d.PeriodTo,
		PreviousBalance: d.PreviousBalance,
		TotalRevenues:   d.TotalRevenues,
		TotalExpenses:   d.TotalExpenses,
		PaidAmount:      d.PaidAmount,
		NetDue:          d.NetDue,
		Status:          models.StatementStatus(d.Status),
		FinalizedAt:     d.FinalizedAt,
		Version:         d.Version,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainStatement converts a model Statement to a domain Statement.
// DATE columns come back at UTC midnight; DateOf keeps that explicit.
func ToDomainStatement(m models.Statement) domain.Statement {
	return domain.Statement{
		StatementID:     m.StatementID,
		PersonID:        m.PersonID,
		PersonKind:      domain.PersonKind(m.PersonKind),
		PeriodFrom:      domain.DateOf(m.PeriodFrom),
		PeriodTo:        domain.DateOf(m.PeriodTo),
		PreviousBalance: m.PreviousBalance,
		TotalRevenues:   m.TotalRevenues,
		TotalExpenses:   m.TotalExpenses,
		PaidAmount:      m.PaidAmount,
		NetDue:          m.NetDue,
		Status:          domain.StatementStatus(m.Status),
		FinalizedAt:     utcPtr(m.FinalizedAt),
		Version:         m.Version,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainStatementSlice converts a slice of model Statements to a slice of domain Statements
func ToDomainStatementSlice(ms []models.Statement) []domain.Statement {
	ds := make([]domain.Statement, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainStatement(m)
	}
	return ds
}

// ToModelStatementAuditLog converts a domain audit entry to its row.
func ToModelStatementAuditLog(d domain.StatementAuditLog) models.StatementAuditLog {
	return models.StatementAuditLog{
		AuditLogID:  d.AuditLogID,
		StatementID: d.StatementID,
		Action:      string(d.Action),
		FromStatus:  string(d.FromStatus),
		ToStatus:    string(d.ToStatus),
		PerformedBy: d.PerformedBy,
		Timestamp:   d.Timestamp,
		Details:     d.Details,
	}
}

// ToDomainStatementAuditLog converts an audit row to a domain entry.
func ToDomainStatementAuditLog(m models.StatementAuditLog) domain.StatementAuditLog {
	return domain.StatementAuditLog{
		AuditLogID:  m.AuditLogID,
		StatementID: m.StatementID,
		Action:      domain.AuditAction(m.Action),
		FromStatus:  domain.StatementStatus(m.FromStatus),
		ToStatus:    domain.StatementStatus(m.ToStatus),
		PerformedBy: m.PerformedBy,
		Timestamp:   m.Timestamp.UTC(),
		Details:     m.Details,
	}
}
