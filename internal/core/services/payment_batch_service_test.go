package services_test

import (
	"bytes"
	"sync"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/SscSPs/fleet_settlement_app/internal/export"
	"github.com/xuri/excelize/v2"
)

func (s *SettlementSuite) TestCreateBatch_Validation() {
	_, err := s.svc.PaymentBatch.CreateBatch(s.ctx, dto.CreateBatchRequest{
		BatchDate:  dto.MustParseDate("2025-02-05"),
		PeriodFrom: dto.MustParseDate("2025-02-01"),
		PeriodTo:   dto.MustParseDate("2025-01-01"),
	}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.PaymentBatch.CreateBatch(s.ctx, dto.CreateBatchRequest{
		PeriodFrom: dto.MustParseDate("2025-01-01"),
		PeriodTo:   dto.MustParseDate("2025-01-31"),
	}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	batch := s.createBatch()
	s.Equal(domain.BatchDraft, batch.Status)
	s.NotNil(batch.StatementIDs)
	s.Empty(batch.StatementIDs)
}

func (s *SettlementSuite) TestPostBatch_TwiceRejectsSecondCall() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	s.pay(batch.BatchID, stmt.StatementID, "50.00")

	posted, err := s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)
	s.Equal(domain.BatchPosted, posted.Status)
	s.Equal([]string{stmt.StatementID}, posted.StatementIDs)
	s.Equal(testActor, *posted.PostedBy)

	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal(string(domain.BatchPosted), guard.CurrentStatus)

	reloaded, err := s.svc.PaymentBatch.GetBatch(s.ctx, batch.BatchID)
	s.Require().NoError(err)
	s.Equal(domain.BatchPosted, reloaded.Status)

	entry := s.history(stmt.StatementID)[0]
	s.Equal(domain.AuditBatchPosted, entry.Action)
	s.Equal(domain.StatementPosted, entry.FromStatus)
	s.Equal(domain.StatementPosted, entry.ToStatus)
}

func (s *SettlementSuite) TestPostBatch_EmptyOrFullyVoidedIsRejected() {
	batch := s.createBatch()
	_, err := s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)

	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	payment := s.pay(batch.BatchID, stmt.StatementID, "50.00")
	_, err = s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, payment.PaymentID, "wrong driver", testActor)
	s.Require().NoError(err)

	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)

	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, "missing", testActor)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *SettlementSuite) TestPostBatch_SnapshotSkipsVoidedStatements() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	s.expectTotals("drv-2", "2025-01-01", "2025-01-31", "300.00", "100.00")
	kept := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	dropped := s.finalize("drv-2", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	s.pay(batch.BatchID, kept.StatementID, "50.00")
	voided := s.pay(batch.BatchID, dropped.StatementID, "50.00")
	_, err := s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, voided.PaymentID, "entered twice", testActor)
	s.Require().NoError(err)

	posted, err := s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)

	s.Require().NoError(err)
	s.Equal([]string{kept.StatementID}, posted.StatementIDs)
}

func (s *SettlementSuite) TestCompleteBatch_FullAndPartialPayments() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "150.00", "50.00")
	s.expectTotals("drv-2", "2025-01-01", "2025-01-31", "300.00", "100.00")
	full := s.finalize("drv-1", "2025-01-01", "2025-01-31", true)
	partial := s.finalize("drv-2", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()

	_, err := s.svc.PaymentBatch.CompleteBatch(s.ctx, batch.BatchID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard, "a DRAFT batch cannot be completed")

	s.pay(batch.BatchID, full.StatementID, "100.00")
	s.pay(batch.BatchID, partial.StatementID, "150.00")
	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)

	completed, err := s.svc.PaymentBatch.CompleteBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)
	s.Equal(domain.BatchCompleted, completed.Status)
	s.Require().NotNil(completed.CompletedBy)
	s.Equal(testActor, *completed.CompletedBy)

	paid := s.stored(full.StatementID)
	s.Equal(domain.StatementPaid, paid.Status)
	s.True(paid.NetDue.IsZero())
	s.Equal(domain.AuditPay, s.history(full.StatementID)[0].Action)

	short := s.stored(partial.StatementID)
	s.Equal(domain.StatementPosted, short.Status)
	s.Equal("50.00", short.NetDue.StringFixed(2))
	s.Equal(domain.AuditBatchCompleted, s.history(partial.StatementID)[0].Action)

	_, err = s.svc.PaymentBatch.CompleteBatch(s.ctx, batch.BatchID, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)
	_, err = s.svc.PaymentLedger.AddPayment(s.ctx, batch.BatchID, s.addPaymentReq(partial.StatementID, "1.00"), testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)

	// The completed batch settles the period, so the shortfall carries forward as is.
	s.expectTotals("drv-2", "2025-02-01", "2025-02-28", "0", "0")
	next, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-2", "2025-02-01", "2025-02-28"))
	s.Require().NoError(err)
	s.Equal("50.00", next.PreviousBalance.StringFixed(2))

	_, err = s.svc.PaymentLedger.AddPayment(s.ctx, s.createBatch().BatchID, s.addPaymentReq(full.StatementID, "1.00"), testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard, "PAID is terminal")
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestRecall_FailsOnceBatchCompleted() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", true)

	_, err := s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "correction", testActor)
	s.Require().NoError(err)
	_, err = s.svc.Statement.LockStatement(s.ctx, stmt.StatementID, testActor)
	s.Require().NoError(err)

	batch := s.createBatch()
	s.pay(batch.BatchID, stmt.StatementID, "40.00")
	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)
	_, err = s.svc.PaymentBatch.CompleteBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)
	s.Require().Equal(domain.StatementLocked, s.stored(stmt.StatementID).Status)
	before := len(s.history(stmt.StatementID))

	_, err = s.svc.Statement.RecallStatement(s.ctx, stmt.StatementID, "correction", testActor)

	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Contains(guard.Reason, "COMPLETED")
	s.Equal(domain.StatementLocked, s.stored(stmt.StatementID).Status)
	s.Len(s.history(stmt.StatementID), before)
}

func (s *SettlementSuite) TestPostBatch_ConcurrentPostsSucceedOnce() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	s.pay(batch.BatchID, stmt.StatementID, "50.00")

	s.Equal(1, s.racePosts(batch.BatchID, batch.BatchID))
}

func (s *SettlementSuite) TestPostBatch_StatementJoinsOnlyOnePostedBatch() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	first := s.createBatch()
	second := s.createBatch()
	s.pay(first.BatchID, stmt.StatementID, "50.00")

	var wg sync.WaitGroup
	var postErr, payErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, postErr = s.svc.PaymentBatch.PostBatch(s.ctx, first.BatchID, testActor)
	}()
	go func() {
		defer wg.Done()
		_, payErr = s.svc.PaymentLedger.AddPayment(s.ctx, second.BatchID, s.addPaymentReq(stmt.StatementID, "30.00"), testActor)
	}()
	wg.Wait()

	s.Require().True((postErr == nil) != (payErr == nil), "exactly one of post and add payment must win")
	if postErr != nil {
		s.ErrorIs(postErr, apperrors.ErrStateGuard)
		s.Equal("80.00", s.stored(stmt.StatementID).PaidAmount.StringFixed(2))
	} else {
		s.ErrorIs(payErr, apperrors.ErrStateGuard)
		s.Equal("50.00", s.stored(stmt.StatementID).PaidAmount.StringFixed(2))
	}
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestPostBatch_RejectsStatementWithPaymentsInAnotherDraftBatch() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "150.00", "50.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	first := s.createBatch()
	second := s.createBatch()
	s.pay(first.BatchID, stmt.StatementID, "60.00")
	pending := s.pay(second.BatchID, stmt.StatementID, "40.00")
	s.Require().True(s.stored(stmt.StatementID).NetDue.IsZero())

	_, err := s.svc.PaymentBatch.PostBatch(s.ctx, first.BatchID, testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal("statement", guard.Entity)
	s.Contains(guard.Reason, second.BatchID)
	reloaded, err := s.svc.PaymentBatch.GetBatch(s.ctx, first.BatchID)
	s.Require().NoError(err)
	s.Equal(domain.BatchDraft, reloaded.Status)

	// Once the other batch lets go, completing the first pays out only its own 60.00.
	_, err = s.svc.PaymentLedger.VoidPayment(s.ctx, second.BatchID, pending.PaymentID, "moved to next run", testActor)
	s.Require().NoError(err)
	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, first.BatchID, testActor)
	s.Require().NoError(err)
	_, err = s.svc.PaymentBatch.CompleteBatch(s.ctx, first.BatchID, testActor)
	s.Require().NoError(err)

	after := s.stored(stmt.StatementID)
	s.Equal(domain.StatementPosted, after.Status)
	s.Equal("60.00", after.PaidAmount.StringFixed(2))
	s.Equal("40.00", after.NetDue.StringFixed(2))

	s.expectTotals("drv-1", "2025-02-01", "2025-02-28", "0", "0")
	next, err := s.svc.Statement.GenerateDraft(s.ctx, generateReq("drv-1", "2025-02-01", "2025-02-28"))
	s.Require().NoError(err)
	s.Equal("40.00", next.PreviousBalance.StringFixed(2))
	s.assertAllConsistent()
}

// racePosts posts the given batches concurrently and returns how many succeeded.
// Every failure must be a guard violation.
func (s *SettlementSuite) racePosts(batchIDs ...string) int {
	var wg sync.WaitGroup
	errs := make([]error, len(batchIDs))
	for i, id := range batchIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.svc.PaymentBatch.PostBatch(s.ctx, id, testActor)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, apperrors.ErrStateGuard)
	}
	return succeeded
}

func (s *SettlementSuite) TestListBatches_FiltersByStatus() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	posted := s.createBatch()
	s.createBatch()
	s.pay(posted.BatchID, stmt.StatementID, "10.00")
	_, err := s.svc.PaymentBatch.PostBatch(s.ctx, posted.BatchID, testActor)
	s.Require().NoError(err)

	status := string(domain.BatchPosted)
	resp, err := s.svc.PaymentBatch.ListBatches(s.ctx, dto.ListBatchesParams{Status: &status})
	s.Require().NoError(err)
	s.Require().Len(resp.Batches, 1)
	s.Equal(posted.BatchID, resp.Batches[0].BatchID)

	all, err := s.svc.PaymentBatch.ListBatches(s.ctx, dto.ListBatchesParams{})
	s.Require().NoError(err)
	s.Len(all.Batches, 2)

	bogus := "OPEN"
	_, err = s.svc.PaymentBatch.ListBatches(s.ctx, dto.ListBatchesParams{Status: &bogus})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.PaymentBatch.GetBatch(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *SettlementSuite) TestExportBatchRemittance() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	s.expectTotals("own-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	driver := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	owner := s.finalize("own-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	s.pay(batch.BatchID, driver.StatementID, "40.25")
	s.pay(batch.BatchID, owner.StatementID, "30.25")
	voided := s.pay(batch.BatchID, owner.StatementID, "99.00")
	_, err := s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, voided.PaymentID, "typo", testActor)
	s.Require().NoError(err)

	data, err := s.svc.PaymentBatch.ExportBatchRemittance(s.ctx, batch.BatchID)
	s.Require().NoError(err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	s.Require().NoError(err)
	defer f.Close()
	total, err := f.GetCellValue(export.SummarySheet, "B6")
	s.Require().NoError(err)
	s.Equal("70.50", total)
	rows, err := f.GetRows(export.PaymentsSheet)
	s.Require().NoError(err)
	s.Len(rows, 4)

	_, err = s.svc.PaymentBatch.ExportBatchRemittance(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
}
