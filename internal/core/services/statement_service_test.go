package services_test

import (
	"errors"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/stretchr/testify/mock"
)

func (s *SettlementSuite) TestGenerateDraft_FirstStatementStartsFromZero() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")

	draft, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-01-01", "2025-01-31"))

	s.Require().NoError(err)
	s.Equal(domain.StatementDraft, draft.Status)
	s.Empty(draft.StatementID)
	s.True(draft.PreviousBalance.IsZero())
	s.Equal("200.00", draft.NetDue.StringFixed(2))
	s.False(draft.IsPersisted())
	s.Empty(s.store.statements)
}

func (s *SettlementSuite) TestGenerateDraft_CarriesForwardLockedNetDue() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "220.00", "100.00")
	jan := s.finalize("drv-1", "2025-01-01", "2025-01-31", true)
	s.Require().Equal("120.00", jan.NetDue.StringFixed(2))

	s.expectTotals("drv-1", "2025-02-01", "2025-02-28", "50.00", "10.00")
	feb, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-02-28"))

	s.Require().NoError(err)
	s.Equal("120.00", feb.PreviousBalance.StringFixed(2))
	s.Equal("160.00", feb.NetDue.StringFixed(2))
}

func (s *SettlementSuite) TestGenerateDraft_IgnoresStatementsNotSignedOff() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "220.00", "100.00")
	s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	s.expectTotals("drv-1", "2025-02-01", "2025-02-28", "50.00", "10.00")
	feb, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-02-28"))

	s.Require().NoError(err)
	s.True(feb.PreviousBalance.IsZero())
}

func (s *SettlementSuite) TestGenerateDraft_RejectsInvertedPeriod() {
	_, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-01-01"))

	s.ErrorIs(err, apperrors.ErrValidation)
	s.aggregator.AssertNotCalled(s.T(), "ComputeStatementTotals", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *SettlementSuite) TestGenerateDraft_AggregatorFailurePropagates() {
	s.aggregator.On("ComputeStatementTotals", mock.Anything, "drv-1", day("2025-01-01"), day("2025-01-31")).
		Return(dec("0"), dec("0"), errors.New("ledger offline"))

	_, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-01-01", "2025-01-31"))

	s.Require().Error(err)
	s.Contains(err.Error(), "ledger offline")
}

func (s *SettlementSuite) TestRoundTrip_FinalizedPeriodIsReturnedAndOtherPeriodsRecompute() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")

	_, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-01-01", "2025-01-31"))
	s.Require().NoError(err)
	finalized := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	again, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-01-01", "2025-01-31"))
	s.Require().NoError(err)
	s.Equal(finalized.StatementID, again.StatementID)
	s.True(again.IsPersisted())
	s.Len(s.store.statements, 1)
	s.aggregator.AssertNumberOfCalls(s.T(), "ComputeStatementTotals", 2)

	s.aggregator.On("ComputeStatementTotals", mock.Anything, "drv-1", day("2025-02-01"), day("2025-02-28")).
		Return(dec("80.00"), dec("30.00"), nil).Once()
	s.aggregator.On("ComputeStatementTotals", mock.Anything, "drv-1", day("2025-02-01"), day("2025-02-28")).
		Return(dec("95.00"), dec("30.00"), nil).Once()

	first, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-02-28"))
	s.Require().NoError(err)
	second, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-02-28"))
	s.Require().NoError(err)

	s.Equal("50.00", first.NetDue.StringFixed(2))
	s.Equal("65.00", second.NetDue.StringFixed(2))
	s.Len(s.store.statements, 1)
}

func (s *SettlementSuite) TestFinalize_LockedRecordsSingleAuditEntry() {
	s.expectTotals("own-1", "2025-01-01", "2025-01-31", "500.00", "120.50")

	stmt := s.finalize("own-1", "2025-01-01", "2025-01-31", true)

	s.Equal(domain.StatementLocked, stmt.Status)
	s.NotNil(stmt.FinalizedAt)
	s.Equal(testActor, stmt.CreatedBy)
	entries := s.history(stmt.StatementID)
	s.Require().Len(entries, 1)
	s.Equal(domain.AuditFinalize, entries[0].Action)
	s.Equal(domain.StatementDraft, entries[0].FromStatus)
	s.Equal(domain.StatementLocked, entries[0].ToStatus)
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestFinalize_DuplicateAndOverlapRejected() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	_, err := s.svc.Statement.FinalizeStatement(s.ctx, dto.FinalizeStatementRequest{
		GenerateStatementRequest: generateReq("drv-1", "2025-01-01", "2025-01-31"),
	}, testActor)
	s.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = s.svc.Statement.FinalizeStatement(s.ctx, dto.FinalizeStatementRequest{
		GenerateStatementRequest: generateReq("drv-1", "2025-01-15", "2025-02-14"),
	}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Len(s.store.statements, 1)
}

func (s *SettlementSuite) TestFinalize_RequiresActor() {
	_, err := s.svc.Statement.FinalizeStatement(s.ctx, dto.FinalizeStatementRequest{
		GenerateStatementRequest: generateReq("drv-1", "2025-01-01", "2025-01-31"),
	}, " ")

	s.ErrorIs(err, apperrors.ErrValidation)
	s.Empty(s.store.statements)
}

func (s *SettlementSuite) TestUpdateTotals_OnlyInDraft() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	rev := dec("350.25")
	updated, err := s.svc.Statement.UpdateStatementTotals(s.ctx, stmt.StatementID, dto.UpdateStatementTotalsRequest{TotalRevenues: &rev}, testActor)
	s.Require().NoError(err)
	s.Equal("250.25", updated.NetDue.StringFixed(2))

	entries := s.history(stmt.StatementID)
	s.Require().Len(entries, 2)
	s.Equal(domain.AuditUpdateTotals, entries[0].Action)
	s.Require().NotNil(entries[0].Details)
	s.Contains(*entries[0].Details, "totalRevenues 300.00 -> 350.25")

	_, err = s.svc.Statement.PostStatement(s.ctx, stmt.StatementID, testActor)
	s.Require().NoError(err)

	_, err = s.svc.Statement.UpdateStatementTotals(s.ctx, stmt.StatementID, dto.UpdateStatementTotalsRequest{TotalRevenues: &rev}, testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal(string(domain.StatementPosted), guard.CurrentStatus)
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestUpdateTotals_RejectsEmptyAndFractionalCents() {
	_, err := s.svc.Statement.UpdateStatementTotals(s.ctx, "any", dto.UpdateStatementTotalsRequest{}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	exp := dec("10.005")
	_, err = s.svc.Statement.UpdateStatementTotals(s.ctx, "any", dto.UpdateStatementTotalsRequest{TotalExpenses: &exp}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *SettlementSuite) TestRecalculate_PullsFreshTotals() {
	s.aggregator.On("ComputeStatementTotals", mock.Anything, "drv-1", day("2025-01-01"), day("2025-01-31")).
		Return(dec("300.00"), dec("100.00"), nil).Once()
	s.aggregator.On("ComputeStatementTotals", mock.Anything, "drv-1", day("2025-01-01"), day("2025-01-31")).
		Return(dec("310.00"), dec("100.00"), nil).Once()
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	recalculated, err := s.svc.Statement.RecalculateStatement(s.ctx, stmt.StatementID, testActor)

	s.Require().NoError(err)
	s.Equal("210.00", recalculated.NetDue.StringFixed(2))
	s.Equal(domain.AuditRecalculate, s.history(stmt.StatementID)[0].Action)
}

func (s *SettlementSuite) TestPostAndLock_Guards() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	_, err := s.svc.Statement.LockStatement(s.ctx, stmt.StatementID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)

	posted, err := s.svc.Statement.PostStatement(s.ctx, stmt.StatementID, testActor)
	s.Require().NoError(err)
	s.Equal(domain.StatementPosted, posted.Status)

	_, err = s.svc.Statement.PostStatement(s.ctx, stmt.StatementID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)

	locked, err := s.svc.Statement.LockStatement(s.ctx, stmt.StatementID, testActor)
	s.Require().NoError(err)
	s.Equal(domain.StatementLocked, locked.Status)
	s.Equal(domain.StatementLocked, s.stored(stmt.StatementID).Status)
}

func (s *SettlementSuite) TestRecall_LockedRevertsToPostedWithOneAuditEntry() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", true)
	before := len(s.history(stmt.StatementID))

	recalled, err := s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "correction", testActor)

	s.Require().NoError(err)
	s.Equal(domain.StatementPosted, recalled.Status)
	entries := s.history(stmt.StatementID)
	s.Require().Len(entries, before+1)
	s.Equal(domain.AuditRecall, entries[0].Action)
	s.Equal(domain.StatementLocked, entries[0].FromStatus)
	s.Equal(domain.StatementPosted, entries[0].ToStatus)
	s.Require().NotNil(entries[0].Details)
	s.Equal("correction", *entries[0].Details)
}

func (s *SettlementSuite) TestRecall_Guards() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)

	_, err := s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "  ", testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "correction", testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard, "DRAFT has nowhere to go back to")

	batch := s.createBatch()
	s.pay(batch.BatchID, stmt.StatementID, "50.00")

	_, err = s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "correction", testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal(string(domain.StatementPosted), guard.CurrentStatus)
	s.Contains(guard.Reason, "active payments")
}

func (s *SettlementSuite) TestConsistencyFailureRollsBack() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	s.store.corruptNetDue = true

	_, err := s.svc.Statement.PostStatement(s.ctx, stmt.StatementID, testActor)

	var consistency *apperrors.ConsistencyError
	s.Require().ErrorAs(err, &consistency)
	s.ErrorIs(err, apperrors.ErrConsistency)
	s.store.corruptNetDue = false
	s.Equal(domain.StatementDraft, s.stored(stmt.StatementID).Status)
	s.Len(s.history(stmt.StatementID), 1)
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestGetStatement_NotFound() {
	_, err := s.svc.Statement.GetStatement(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.AuditTrail.History(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *SettlementSuite) TestListStatements_FiltersByStatusAndPeriod() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	s.expectTotals("drv-1", "2025-02-01", "2025-02-28", "300.00", "100.00")
	s.expectTotals("drv-2", "2025-01-01", "2025-01-31", "300.00", "100.00")
	s.finalize("drv-1", "2025-01-01", "2025-01-31", true)
	s.finalize("drv-1", "2025-02-01", "2025-02-28", false)
	s.finalize("drv-2", "2025-01-01", "2025-01-31", false)

	all, err := s.svc.Statement.ListStatementsForPerson(s.ctx, "drv-1", dto.ListPersonStatementsParams{})
	s.Require().NoError(err)
	s.Len(all.Statements, 2)
	s.Equal("2025-02-01", all.Statements[0].PeriodFrom.String())

	locked := string(domain.StatementLocked)
	onlyLocked, err := s.svc.Statement.ListStatementsForPerson(s.ctx, "drv-1", dto.ListPersonStatementsParams{Status: &locked})
	s.Require().NoError(err)
	s.Require().Len(onlyLocked.Statements, 1)
	s.Equal(locked, onlyLocked.Statements[0].Status)

	january, err := s.svc.Statement.ListStatementsForPeriod(s.ctx, dto.ListPeriodStatementsParams{
		PeriodFrom: day("2025-01-10"),
		PeriodTo:   day("2025-01-20"),
	})
	s.Require().NoError(err)
	s.Len(january.Statements, 2)

	bogus := "ARCHIVED"
	_, err = s.svc.Statement.ListStatementsForPerson(s.ctx, "drv-1", dto.ListPersonStatementsParams{Status: &bogus})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Statement.ListStatementsForPeriod(s.ctx, dto.ListPeriodStatementsParams{
		PeriodFrom: day("2025-02-01"),
		PeriodTo:   day("2025-01-01"),
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}
