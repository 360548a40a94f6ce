package domain

import (
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/shopspring/decimal"
)

// StatementStatus is the lifecycle state of a statement.
type StatementStatus string

const (
	StatementDraft  StatementStatus = "DRAFT"
	StatementPosted StatementStatus = "POSTED"
	StatementLocked StatementStatus = "LOCKED"
	StatementPaid   StatementStatus = "PAID"
)

// forward transitions; recall is handled separately by RecallTarget.
var statementTransitions = map[StatementStatus][]StatementStatus{
	StatementDraft:  {StatementPosted, StatementLocked},
	StatementPosted: {StatementLocked, StatementPaid},
	StatementLocked: {StatementPaid},
}

// IsValid reports whether s is one of the enumerated statement statuses.
func (s StatementStatus) IsValid() bool {
	switch s {
	case StatementDraft, StatementPosted, StatementLocked, StatementPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether a forward move from s to next is allowed.
func (s StatementStatus) CanTransitionTo(next StatementStatus) bool {
	for _, allowed := range statementTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RecallTarget returns the status a recall moves s back to.
func (s StatementStatus) RecallTarget() (StatementStatus, bool) {
	switch s {
	case StatementLocked:
		return StatementPosted, true
	case StatementPosted:
		return StatementDraft, true
	}
	return "", false
}

// IsSignedOff reports whether the statement is authoritative for carry-forward.
func (s StatementStatus) IsSignedOff() bool {
	return s == StatementLocked || s == StatementPaid
}

// Statement is one person's settlement for one period.
type Statement struct {
	StatementID     string          `json:"statementID"`
	PersonID        string          `json:"personID"`
	PersonKind      PersonKind      `json:"personKind"`
	PeriodFrom      time.Time       `json:"periodFrom"`
	PeriodTo        time.Time       `json:"periodTo"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	TotalRevenues   decimal.Decimal `json:"totalRevenues"`
	TotalExpenses   decimal.Decimal `json:"totalExpenses"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	NetDue          decimal.Decimal `json:"netDue"`
	Status          StatementStatus `json:"status"`
	FinalizedAt     *time.Time      `json:"finalizedAt,omitempty"`
	Version         int             `json:"version"`
	AuditFields
}

// ComputeNetDue applies the net-due-to-person sign convention: positive means
// the company owes the person.
func ComputeNetDue(previousBalance, totalRevenues, totalExpenses, paidAmount decimal.Decimal) decimal.Decimal {
	return previousBalance.Add(totalRevenues).Sub(totalExpenses).Sub(paidAmount)
}

// AmountDue is the gross amount owed before any payment.
func (s *Statement) AmountDue() decimal.Decimal {
	return s.PreviousBalance.Add(s.TotalRevenues).Sub(s.TotalExpenses)
}

// Recompute refreshes NetDue from the other amounts.
func (s *Statement) Recompute() {
	s.NetDue = ComputeNetDue(s.PreviousBalance, s.TotalRevenues, s.TotalExpenses, s.PaidAmount)
}

// IsFullyPaid reports whether payments cover the amount due.
func (s *Statement) IsFullyPaid() bool {
	return s.PaidAmount.GreaterThanOrEqual(s.AmountDue())
}

// IsPersisted reports whether the statement has been finalized into storage.
func (s *Statement) IsPersisted() bool {
	return s.FinalizedAt != nil
}

// Overlaps reports whether the statement period shares any day with [from, to].
func (s *Statement) Overlaps(from, to time.Time) bool {
	return !s.PeriodFrom.After(to) && !from.After(s.PeriodTo)
}

// CheckConsistency verifies the stored NetDue against its components.
func (s *Statement) CheckConsistency() error {
	expected := ComputeNetDue(s.PreviousBalance, s.TotalRevenues, s.TotalExpenses, s.PaidAmount)
	if !expected.Equal(s.NetDue) {
		return &apperrors.ConsistencyError{
			StatementID: s.StatementID,
			Expected:    expected.StringFixed(2),
			Actual:      s.NetDue.StringFixed(2),
		}
	}
	return nil
}

// StatementFilter narrows a statement listing.
type StatementFilter struct {
	PersonID   *string
	PeriodFrom *time.Time
	PeriodTo   *time.Time
	Status     *StatementStatus
}
