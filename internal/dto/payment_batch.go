package dto

import (
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateBatchRequest defines the payload for opening a payment batch.
type CreateBatchRequest struct {
	BatchDate  CalendarDate `json:"batchDate" binding:"required"`
	PeriodFrom CalendarDate `json:"periodFrom" binding:"required"`
	PeriodTo   CalendarDate `json:"periodTo" binding:"required"`
	Notes      *string      `json:"notes"`
}

// ListBatchesParams defines query parameters for listing batches.
type ListBatchesParams struct {
	Status    *string `form:"status" binding:"omitempty,oneof=DRAFT POSTED COMPLETED"`
	Limit     int     `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// AddPaymentRequest defines the payload for recording a payment in a batch.
type AddPaymentRequest struct {
	StatementID     string          `json:"statementID" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required,decimal_gt0,decimal_money"`
	PaymentDate     CalendarDate    `json:"paymentDate" binding:"required"`
	PaymentMethodID string          `json:"paymentMethodID" binding:"required"`
	ReferenceNumber *string         `json:"referenceNumber"`
	Notes           *string         `json:"notes"`
}

// UpdatePaymentRequest edits a payment while its batch is DRAFT. Nil fields are left unchanged.
type UpdatePaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount" binding:"omitempty,decimal_gt0,decimal_money"`
	ReferenceNumber *string          `json:"referenceNumber"`
	Notes           *string          `json:"notes"`
}

// VoidPaymentRequest carries the reason a payment is voided.
type VoidPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PaymentBatchResponse defines the data returned for a batch.
type PaymentBatchResponse struct {
	BatchID      string       `json:"batchID"`
	BatchDate    CalendarDate `json:"batchDate"`
	PeriodFrom   CalendarDate `json:"periodFrom"`
	PeriodTo     CalendarDate `json:"periodTo"`
	Status       string       `json:"status"`
	StatementIDs []string     `json:"statementIDs"`
	Notes        *string      `json:"notes,omitempty"`
	PostedAt     *time.Time   `json:"postedAt,omitempty"`
	PostedBy     *string      `json:"postedBy,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	CompletedBy  *string      `json:"completedBy,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	CreatedBy    string       `json:"createdBy"`
}

// ListBatchesResponse wraps a page of batches.
type ListBatchesResponse struct {
	Batches   []PaymentBatchResponse `json:"batches"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// PaymentResponse defines the data returned for a payment.
type PaymentResponse struct {
	PaymentID       string          `json:"paymentID"`
	StatementID     string          `json:"statementID"`
	PaymentBatchID  string          `json:"paymentBatchID"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     CalendarDate    `json:"paymentDate"`
	PaymentMethodID string          `json:"paymentMethodID"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	VoidedAt        *time.Time      `json:"voidedAt,omitempty"`
	VoidReason      *string         `json:"voidReason,omitempty"`
	CreatedBy       string          `json:"createdBy"`
}

// StatementPaymentResponse is one row of a payment listing.
type StatementPaymentResponse struct {
	PaymentID       string          `json:"paymentID"`
	StatementID     string          `json:"statementID"`
	PaymentBatchID  string          `json:"paymentBatchID"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     CalendarDate    `json:"paymentDate"`
	PaymentMethodID string          `json:"paymentMethodID"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	Voided          bool            `json:"voided"`
}

// ToPaymentBatchResponse converts a domain.PaymentBatch to its response DTO.
func ToPaymentBatchResponse(b *domain.PaymentBatch) PaymentBatchResponse {
	ids := b.StatementIDs
	if ids == nil {
		ids = []string{}
	}
	return PaymentBatchResponse{
		BatchID:      b.BatchID,
		BatchDate:    NewCalendarDate(b.BatchDate),
		PeriodFrom:   NewCalendarDate(b.PeriodFrom),
		PeriodTo:     NewCalendarDate(b.PeriodTo),
		Status:       string(b.Status),
		StatementIDs: ids,
		Notes:        b.Notes,
		PostedAt:     b.PostedAt,
		PostedBy:     b.PostedBy,
		CompletedAt:  b.CompletedAt,
		CompletedBy:  b.CompletedBy,
		CreatedAt:    b.CreatedAt,
		CreatedBy:    b.CreatedBy,
	}
}

// ToListBatchesResponse converts a page of batches.
func ToListBatchesResponse(batches []domain.PaymentBatch, nextToken *string) ListBatchesResponse {
	resp := ListBatchesResponse{
		Batches:   make([]PaymentBatchResponse, len(batches)),
		NextToken: nextToken,
	}
	for i := range batches {
		resp.Batches[i] = ToPaymentBatchResponse(&batches[i])
	}
	return resp
}

// ToPaymentResponse converts a domain.Payment to its response DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:       p.PaymentID,
		StatementID:     p.StatementID,
		PaymentBatchID:  p.PaymentBatchID,
		Amount:          p.Amount,
		PaymentDate:     NewCalendarDate(p.PaymentDate),
		PaymentMethodID: p.PaymentMethodID,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		VoidedAt:        p.VoidedAt,
		VoidReason:      p.VoidReason,
		CreatedBy:       p.CreatedBy,
	}
}

// ToStatementPaymentResponses converts a payment listing.
func ToStatementPaymentResponses(rows []domain.StatementPayment) []StatementPaymentResponse {
	out := make([]StatementPaymentResponse, len(rows))
	for i, r := range rows {
		out[i] = StatementPaymentResponse{
			PaymentID:       r.PaymentID,
			StatementID:     r.StatementID,
			PaymentBatchID:  r.PaymentBatchID,
			Amount:          r.Amount,
			PaymentDate:     NewCalendarDate(r.PaymentDate),
			PaymentMethodID: r.PaymentMethodID,
			ReferenceNumber: r.ReferenceNumber,
			Voided:          r.Voided,
		}
	}
	return out
}
