package services_test

import (
	"sync"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/stretchr/testify/mock"
)

func (s *SettlementSuite) TestAddPayment_FirstPaymentPostsDraftStatement() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	s.Require().Equal("200.00", stmt.NetDue.StringFixed(2))
	batch := s.createBatch()

	payment := s.pay(batch.BatchID, stmt.StatementID, "50.00")

	s.Equal(batch.BatchID, payment.PaymentBatchID)
	after := s.stored(stmt.StatementID)
	s.Equal("50.00", after.PaidAmount.StringFixed(2))
	s.Equal("150.00", after.NetDue.StringFixed(2))
	s.Equal(domain.StatementPosted, after.Status)

	entries := s.history(stmt.StatementID)
	s.Require().Len(entries, 2)
	s.Equal(domain.AuditPaymentAdded, entries[0].Action)
	s.Equal(domain.StatementDraft, entries[0].FromStatus)
	s.Equal(domain.StatementPosted, entries[0].ToStatus)

	s.pay(batch.BatchID, stmt.StatementID, "25.00")
	after = s.stored(stmt.StatementID)
	s.Equal("75.00", after.PaidAmount.StringFixed(2))
	s.Equal("125.00", after.NetDue.StringFixed(2))
	s.Equal(domain.StatementPosted, s.history(stmt.StatementID)[0].FromStatus)
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestAddPayment_RejectsBadInput() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	s.methods.On("ResolvePaymentMethod", mock.Anything, "GONE").Return(nil, apperrors.NewNotFoundError("payment method GONE"))
	s.methods.On("ResolvePaymentMethod", mock.Anything, "CHEQUE").
		Return(&domain.PaymentMethod{PaymentMethodID: "CHEQUE", Name: "Cheque", IsActive: false}, nil)

	cases := map[string]dto.AddPaymentRequest{
		"zero amount":     s.addPaymentReq(stmt.StatementID, "0"),
		"negative amount": s.addPaymentReq(stmt.StatementID, "-5.00"),
		"sub-cent amount": s.addPaymentReq(stmt.StatementID, "10.001"),
		"missing date": func() dto.AddPaymentRequest {
			r := s.addPaymentReq(stmt.StatementID, "10")
			r.PaymentDate = dto.CalendarDate{}
			return r
		}(),
		"unknown method": func() dto.AddPaymentRequest {
			r := s.addPaymentReq(stmt.StatementID, "10")
			r.PaymentMethodID = "GONE"
			return r
		}(),
		"inactive method": func() dto.AddPaymentRequest {
			r := s.addPaymentReq(stmt.StatementID, "10")
			r.PaymentMethodID = "CHEQUE"
			return r
		}(),
		"missing statement": func() dto.AddPaymentRequest { r := s.addPaymentReq("", "10"); return r }(),
	}
	for name, req := range cases {
		_, err := s.svc.PaymentLedger.AddPayment(s.ctx, batch.BatchID, req, testActor)
		s.ErrorIs(err, apperrors.ErrValidation, name)
	}

	_, err := s.svc.PaymentLedger.AddPayment(s.ctx, "no-such-batch", s.addPaymentReq(stmt.StatementID, "10"), testActor)
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.svc.PaymentLedger.AddPayment(s.ctx, batch.BatchID, s.addPaymentReq("no-such-statement", "10"), testActor)
	s.ErrorIs(err, apperrors.ErrNotFound)

	s.Empty(s.store.payments)
	s.Equal(domain.StatementDraft, s.stored(stmt.StatementID).Status)
}

func (s *SettlementSuite) TestAddPayment_LockedAndFullyPaidIsRejected() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", true)
	batch := s.createBatch()

	s.pay(batch.BatchID, stmt.StatementID, "120.00")
	s.Equal(domain.StatementLocked, s.stored(stmt.StatementID).Status)
	s.pay(batch.BatchID, stmt.StatementID, "80.00")

	_, err := s.svc.PaymentLedger.AddPayment(s.ctx, batch.BatchID, s.addPaymentReq(stmt.StatementID, "1.00"), testActor)

	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal(string(domain.StatementLocked), guard.CurrentStatus)
	s.True(s.stored(stmt.StatementID).NetDue.IsZero())
}

func (s *SettlementSuite) TestAddPayment_RejectsNonDraftBatchAndForeignPostedBatch() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	first := s.createBatch()
	s.pay(first.BatchID, stmt.StatementID, "50.00")
	_, err := s.svc.PaymentBatch.PostBatch(s.ctx, first.BatchID, testActor)
	s.Require().NoError(err)

	_, err = s.svc.PaymentLedger.AddPayment(s.ctx, first.BatchID, s.addPaymentReq(stmt.StatementID, "10.00"), testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal("payment batch", guard.Entity)
	s.Equal(string(domain.BatchPosted), guard.CurrentStatus)

	second := s.createBatch()
	_, err = s.svc.PaymentLedger.AddPayment(s.ctx, second.BatchID, s.addPaymentReq(stmt.StatementID, "10.00"), testActor)
	s.Require().ErrorAs(err, &guard)
	s.Equal("statement", guard.Entity)
	s.Contains(guard.Reason, first.BatchID)
	s.Equal("50.00", s.stored(stmt.StatementID).PaidAmount.StringFixed(2))
}

func (s *SettlementSuite) TestUpdatePayment_RecomputesWhileBatchIsDraft() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	payment := s.pay(batch.BatchID, stmt.StatementID, "50.00")

	amount := dec("80.00")
	ref := "RCPT-7"
	updated, err := s.svc.PaymentLedger.UpdatePayment(s.ctx, batch.BatchID, payment.PaymentID, dto.UpdatePaymentRequest{Amount: &amount, ReferenceNumber: &ref}, testActor)

	s.Require().NoError(err)
	s.Equal("80.00", updated.Amount.StringFixed(2))
	s.Equal(&ref, updated.ReferenceNumber)
	after := s.stored(stmt.StatementID)
	s.Equal("80.00", after.PaidAmount.StringFixed(2))
	s.Equal("120.00", after.NetDue.StringFixed(2))
	entry := s.history(stmt.StatementID)[0]
	s.Equal(domain.AuditPaymentUpdated, entry.Action)
	s.Contains(*entry.Details, "50.00 -> 80.00")

	_, err = s.svc.PaymentLedger.UpdatePayment(s.ctx, "other-batch", payment.PaymentID, dto.UpdatePaymentRequest{Amount: &amount}, testActor)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.PaymentBatch.PostBatch(s.ctx, batch.BatchID, testActor)
	s.Require().NoError(err)
	_, err = s.svc.PaymentLedger.UpdatePayment(s.ctx, batch.BatchID, payment.PaymentID, dto.UpdatePaymentRequest{Amount: &amount}, testActor)
	s.ErrorIs(err, apperrors.ErrStateGuard)
	s.assertAllConsistent()
}

func (s *SettlementSuite) TestUpdatePayment_RequiresAChange() {
	_, err := s.svc.PaymentLedger.UpdatePayment(s.ctx, "b", "p", dto.UpdatePaymentRequest{}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	negative := dec("-1")
	_, err = s.svc.PaymentLedger.UpdatePayment(s.ctx, "b", "p", dto.UpdatePaymentRequest{Amount: &negative}, testActor)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *SettlementSuite) TestVoidPayment_ExcludesAmountAndKeepsHistory() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()
	payment := s.pay(batch.BatchID, stmt.StatementID, "50.00")

	_, err := s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, payment.PaymentID, "", testActor)
	s.ErrorIs(err, apperrors.ErrValidation)

	voided, err := s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, payment.PaymentID, "duplicate entry", testActor)
	s.Require().NoError(err)
	s.True(voided.IsVoided())

	after := s.stored(stmt.StatementID)
	s.True(after.PaidAmount.IsZero())
	s.Equal("200.00", after.NetDue.StringFixed(2))
	s.Equal(domain.StatementPosted, after.Status)
	s.Equal(domain.AuditPaymentVoided, s.history(stmt.StatementID)[0].Action)

	rows, err := s.svc.PaymentLedger.ListPaymentsForStatement(s.ctx, stmt.StatementID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.True(rows[0].Voided)

	_, err = s.svc.PaymentLedger.VoidPayment(s.ctx, batch.BatchID, payment.PaymentID, "again", testActor)
	var guard *apperrors.StateGuardError
	s.Require().ErrorAs(err, &guard)
	s.Equal("VOIDED", guard.CurrentStatus)
}

func (s *SettlementSuite) TestListPayments_UnknownParent() {
	_, err := s.svc.PaymentLedger.ListPaymentsForStatement(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.svc.PaymentLedger.ListPaymentsForBatch(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *SettlementSuite) TestAddPayment_ConcurrentPaymentsAllCount() {
	s.expectTotals("drv-1", "2025-01-01", "2025-01-31", "300.00", "100.00")
	stmt := s.finalize("drv-1", "2025-01-01", "2025-01-31", false)
	batch := s.createBatch()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.PaymentLedger.AddPayment(s.ctx, batch.BatchID, s.addPaymentReq(stmt.StatementID, "10.00"), testActor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	after := s.stored(stmt.StatementID)
	s.Equal("100.00", after.PaidAmount.StringFixed(2))
	s.Equal("100.00", after.NetDue.StringFixed(2))
	s.Len(s.history(stmt.StatementID), 11)
	s.assertAllConsistent()
}
