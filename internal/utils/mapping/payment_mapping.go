package mapping

import (
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
)

// ToModelPaymentBatch converts a domain PaymentBatch to a model PaymentBatch.
// The statement snapshot lives in payment_batch_statements and is not part of the row.
func ToModelPaymentBatch(d domain.PaymentBatch) models.PaymentBatch {
	return models.PaymentBatch{
		BatchID:     d.BatchID,
		BatchDate:   d.BatchDate,
		PeriodFrom:  d.PeriodFrom,
		PeriodTo:    d.PeriodTo,
		Status:      string(d.Status),
		Notes:       d.Notes,
		PostedAt:    d.PostedAt,
		PostedBy:    d.PostedBy,
		CompletedAt: d.CompletedAt,
		CompletedBy: d.CompletedBy,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainPaymentBatch converts a model PaymentBatch and its statement ids to a domain PaymentBatch
func ToDomainPaymentBatch(m models.PaymentBatch, statementIDs []string) domain.PaymentBatch {
	if statementIDs == nil {
		statementIDs = []string{}
	}
	return domain.PaymentBatch{
		BatchID:      m.BatchID,
		BatchDate:    domain.DateOf(m.BatchDate),
		PeriodFrom:   domain.DateOf(m.PeriodFrom),
		PeriodTo:     domain.DateOf(m.PeriodTo),
		Status:       domain.BatchStatus(m.Status),
		StatementIDs: statementIDs,
		Notes:        m.Notes,
		PostedAt:     utcPtr(m.PostedAt),
		PostedBy:     m.PostedBy,
		CompletedAt:  utcPtr(m.CompletedAt),
		CompletedBy:  m.CompletedBy,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelPayment converts a domain Payment to a model Payment
func ToModelPayment(d domain.Payment) models.Payment {
	return models.Payment{
		PaymentID:       d.PaymentID,
		StatementID:     d.StatementID,
		PaymentBatchID:  d.PaymentBatchID,
		Amount:          d.Amount,
		PaymentDate:     d.PaymentDate,
		PaymentMethodID: d.PaymentMethodID,
		ReferenceNumber: d.ReferenceNumber,
		Notes:           d.Notes,
		VoidedAt:        d.VoidedAt,
		VoidedBy:        d.VoidedBy,
		VoidReason:      d.VoidReason,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainPayment converts a model Payment to a domain Payment
func ToDomainPayment(m models.Payment) domain.Payment {
	return domain.Payment{
		PaymentID:       m.PaymentID,
		StatementID:     m.StatementID,
		PaymentBatchID:  m.PaymentBatchID,
		Amount:          m.Amount,
		PaymentDate:     domain.DateOf(m.PaymentDate),
		PaymentMethodID: m.PaymentMethodID,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		VoidedAt:        utcPtr(m.VoidedAt),
		VoidedBy:        m.VoidedBy,
		VoidReason:      m.VoidReason,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainStatementPayment converts a join row to the domain projection.
func ToDomainStatementPayment(m models.StatementPayment) domain.StatementPayment {
	return domain.StatementPayment{
		PaymentID:       m.PaymentID,
		StatementID:     m.StatementID,
		PaymentBatchID:  m.PaymentBatchID,
		Amount:          m.Amount,
		PaymentDate:     domain.DateOf(m.PaymentDate),
		PaymentMethodID: m.PaymentMethodID,
		ReferenceNumber: m.ReferenceNumber,
		Voided:          m.VoidedAt != nil,
	}
}

// ToDomainPaymentMethod converts a payment_methods row.
func ToDomainPaymentMethod(m models.PaymentMethod) domain.PaymentMethod {
	return domain.PaymentMethod{
		PaymentMethodID: m.PaymentMethodID,
		Name:            m.Name,
		IsActive:        m.IsActive,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
