package dto

import (
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GenerateStatementRequest asks for a draft statement for one person and period.
type GenerateStatementRequest struct {
	PersonID   string       `json:"personID" binding:"required"`
	PersonKind string       `json:"personKind" binding:"required,oneof=DRIVER OWNER"`
	PeriodFrom CalendarDate `json:"periodFrom" binding:"required"`
	PeriodTo   CalendarDate `json:"periodTo" binding:"required"`
}

// FinalizeStatementRequest persists a statement for the period. Lock finalizes it straight to LOCKED.
type FinalizeStatementRequest struct {
	GenerateStatementRequest
	Lock bool `json:"lock"`
}

// UpdateStatementTotalsRequest edits the inputs of a DRAFT statement. Nil fields are left unchanged.
type UpdateStatementTotalsRequest struct {
	PreviousBalance *decimal.Decimal `json:"previousBalance" binding:"omitempty,decimal_money"`
	TotalRevenues   *decimal.Decimal `json:"totalRevenues" binding:"omitempty,decimal_money"`
	TotalExpenses   *decimal.Decimal `json:"totalExpenses" binding:"omitempty,decimal_money"`
}

// RecallStatementRequest carries the mandatory recall reason.
type RecallStatementRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListPersonStatementsParams defines query parameters for a person's statements.
type ListPersonStatementsParams struct {
	Status    *string `form:"status" binding:"omitempty,oneof=DRAFT POSTED LOCKED PAID"`
	Limit     int     `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListPeriodStatementsParams defines query parameters for statements overlapping a period.
type ListPeriodStatementsParams struct {
	PeriodFrom time.Time `form:"periodFrom" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	PeriodTo   time.Time `form:"periodTo" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	Status     *string   `form:"status" binding:"omitempty,oneof=DRAFT POSTED LOCKED PAID"`
	Limit      int       `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken  *string   `form:"nextToken"`
}

// StatementResponse defines the data returned for a statement.
type StatementResponse struct {
	StatementID     string          `json:"statementID,omitempty"`
	PersonID        string          `json:"personID"`
	PersonKind      string          `json:"personKind"`
	PeriodFrom      CalendarDate    `json:"periodFrom"`
	PeriodTo        CalendarDate    `json:"periodTo"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	TotalRevenues   decimal.Decimal `json:"totalRevenues"`
	TotalExpenses   decimal.Decimal `json:"totalExpenses"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	NetDue          decimal.Decimal `json:"netDue"`
	Status          string          `json:"status"`
	Persisted       bool            `json:"persisted"`
	FinalizedAt     *time.Time      `json:"finalizedAt,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	LastUpdatedAt   *time.Time      `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy   string          `json:"lastUpdatedBy,omitempty"`
}

// ListStatementsResponse wraps a page of statements.
type ListStatementsResponse struct {
	Statements []StatementResponse `json:"statements"`
	NextToken  *string             `json:"nextToken,omitempty"`
}

// AuditLogResponse defines the data returned for one history entry.
type AuditLogResponse struct {
	AuditLogID  string    `json:"auditLogID"`
	Action      string    `json:"action"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
	Details     *string   `json:"details,omitempty"`
}

// ToStatementResponse converts a domain.Statement to its response DTO.
func ToStatementResponse(s *domain.Statement) StatementResponse {
	resp := StatementResponse{
		StatementID:     s.StatementID,
		PersonID:        s.PersonID,
		PersonKind:      string(s.PersonKind),
		PeriodFrom:      NewCalendarDate(s.PeriodFrom),
		PeriodTo:        NewCalendarDate(s.PeriodTo),
		PreviousBalance: s.PreviousBalance,
		TotalRevenues:   s.TotalRevenues,
		TotalExpenses:   s.TotalExpenses,
		PaidAmount:      s.PaidAmount,
		NetDue:          s.NetDue,
		Status:          string(s.Status),
		Persisted:       s.IsPersisted(),
		FinalizedAt:     s.FinalizedAt,
		CreatedBy:       s.CreatedBy,
		LastUpdatedBy:   s.LastUpdatedBy,
	}
	if !s.LastUpdatedAt.IsZero() {
		updated := s.LastUpdatedAt
		resp.LastUpdatedAt = &updated
	}
	return resp
}

// ToListStatementsResponse converts a page of statements.
func ToListStatementsResponse(statements []domain.Statement, nextToken *string) ListStatementsResponse {
	resp := ListStatementsResponse{
		Statements: make([]StatementResponse, len(statements)),
		NextToken:  nextToken,
	}
	for i := range statements {
		resp.Statements[i] = ToStatementResponse(&statements[i])
	}
	return resp
}

// ToAuditLogResponses converts a statement history.
func ToAuditLogResponses(entries []domain.StatementAuditLog) []AuditLogResponse {
	out := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditLogResponse{
			AuditLogID:  e.AuditLogID,
			Action:      string(e.Action),
			FromStatus:  string(e.FromStatus),
			ToStatus:    string(e.ToStatus),
			PerformedBy: e.PerformedBy,
			Timestamp:   e.Timestamp,
			Details:     e.Details,
		}
	}
	return out
}
