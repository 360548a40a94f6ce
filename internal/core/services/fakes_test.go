package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock StatementTotalsAggregator ---
type MockAggregator struct {
	mock.Mock
}

var _ portssvc.StatementTotalsAggregator = (*MockAggregator)(nil)

func (m *MockAggregator) ComputeStatementTotals(ctx context.Context, personID string, periodFrom, periodTo time.Time) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, personID, periodFrom, periodTo)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

// --- Mock PaymentMethodResolver ---
type MockPaymentMethodResolver struct {
	mock.Mock
}

var _ portssvc.PaymentMethodResolver = (*MockPaymentMethodResolver)(nil)

func (m *MockPaymentMethodResolver) ResolvePaymentMethod(ctx context.Context, paymentMethodID string) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}

// --- In-memory repositories ---

type inTxKey struct{}

// memStore implements every repository port over maps. RunInTx serializes
// transactions, which stands in for row locks, and restores a snapshot when
// the unit of work fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	statements      map[string]domain.Statement
	batches         map[string]domain.PaymentBatch
	batchStatements map[string][]string
	payments        map[string]domain.Payment
	paymentOrder    []string
	auditLogs       []domain.StatementAuditLog

	// corruptNetDue makes UpdateStatement persist a wrong net due.
	corruptNetDue bool
}

type memSnapshot struct {
	statements      map[string]domain.Statement
	batches         map[string]domain.PaymentBatch
	batchStatements map[string][]string
	payments        map[string]domain.Payment
	paymentOrder    []string
	auditLogs       []domain.StatementAuditLog
}

func newMemStore() *memStore {
	return &memStore{
		statements:      map[string]domain.Statement{},
		batches:         map[string]domain.PaymentBatch{},
		batchStatements: map[string][]string{},
		payments:        map[string]domain.Payment{},
	}
}

func (s *memStore) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		StatementRepo:    s,
		PaymentBatchRepo: s,
		PaymentRepo:      s,
		AuditLogRepo:     s,
		TxManager:        s,
	}
}

var (
	_ portsrepo.StatementRepositoryFacade    = (*memStore)(nil)
	_ portsrepo.PaymentBatchRepositoryFacade = (*memStore)(nil)
	_ portsrepo.PaymentRepositoryFacade      = (*memStore)(nil)
	_ portsrepo.AuditLogRepositoryFacade     = (*memStore)(nil)
	_ portsrepo.TransactionManager           = (*memStore)(nil)
)

func (s *memStore) snapshot() memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memSnapshot{
		statements:      make(map[string]domain.Statement, len(s.statements)),
		batches:         make(map[string]domain.PaymentBatch, len(s.batches)),
		batchStatements: make(map[string][]string, len(s.batchStatements)),
		payments:        make(map[string]domain.Payment, len(s.payments)),
		paymentOrder:    append([]string(nil), s.paymentOrder...),
		auditLogs:       append([]domain.StatementAuditLog(nil), s.auditLogs...),
	}
	for k, v := range s.statements {
		snap.statements[k] = v
	}
	for k, v := range s.batches {
		snap.batches[k] = v
	}
	for k, v := range s.batchStatements {
		snap.batchStatements[k] = append([]string(nil), v...)
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = snap.statements
	s.batches = snap.batches
	s.batchStatements = snap.batchStatements
	s.payments = snap.payments
	s.paymentOrder = snap.paymentOrder
	s.auditLogs = snap.auditLogs
}

func (s *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- statements ---

func (s *memStore) FindStatementByID(_ context.Context, statementID string) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stmt, ok := s.statements[statementID]
	if !ok {
		return nil, apperrors.NewNotFoundError("statement " + statementID)
	}
	return &stmt, nil
}

func (s *memStore) FindStatementByIDForUpdate(ctx context.Context, statementID string) (*domain.Statement, error) {
	if ctx.Value(inTxKey{}) == nil {
		return nil, errors.New("FindStatementByIDForUpdate called outside a transaction")
	}
	return s.FindStatementByID(ctx, statementID)
}

func (s *memStore) LockStatementsForUpdate(ctx context.Context, statementIDs []string) (map[string]domain.Statement, error) {
	if ctx.Value(inTxKey{}) == nil {
		return nil, errors.New("LockStatementsForUpdate called outside a transaction")
	}
	if !sort.StringsAreSorted(statementIDs) {
		return nil, errors.New("statements must be locked in ascending id order")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Statement, len(statementIDs))
	for _, id := range statementIDs {
		if stmt, ok := s.statements[id]; ok {
			out[id] = stmt
		}
	}
	return out, nil
}

func (s *memStore) FindStatementByPeriod(_ context.Context, personID string, periodFrom, periodTo time.Time) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stmt := range s.statements {
		if stmt.PersonID == personID && stmt.PeriodFrom.Equal(periodFrom) && stmt.PeriodTo.Equal(periodTo) {
			found := stmt
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFoundError("statement for period")
}

func (s *memStore) FindOverlappingStatements(_ context.Context, personID string, periodFrom, periodTo time.Time) ([]domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Statement
	for _, stmt := range s.statements {
		if stmt.PersonID == personID && stmt.Overlaps(periodFrom, periodTo) {
			out = append(out, stmt)
		}
	}
	return out, nil
}

func (s *memStore) FindLatestSignedOffBefore(_ context.Context, personID string, before time.Time) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settled := map[string]bool{}
	for batchID, ids := range s.batchStatements {
		if s.batches[batchID].Status != domain.BatchCompleted {
			continue
		}
		for _, id := range ids {
			settled[id] = true
		}
	}
	var best *domain.Statement
	for _, stmt := range s.statements {
		if stmt.PersonID != personID || !stmt.PeriodTo.Before(before) {
			continue
		}
		if !stmt.Status.IsSignedOff() && !settled[stmt.StatementID] {
			continue
		}
		candidate := stmt
		if best == nil ||
			candidate.PeriodTo.After(best.PeriodTo) ||
			(candidate.PeriodTo.Equal(best.PeriodTo) && candidate.FinalizedAt.After(*best.FinalizedAt)) {
			best = &candidate
		}
	}
	if best == nil {
		return nil, apperrors.NewNotFoundError("signed-off statement")
	}
	return best, nil
}

func (s *memStore) ListStatements(_ context.Context, filter domain.StatementFilter, limit int, _ *string) ([]domain.Statement, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Statement
	for _, stmt := range s.statements {
		if filter.PersonID != nil && stmt.PersonID != *filter.PersonID {
			continue
		}
		if filter.Status != nil && stmt.Status != *filter.Status {
			continue
		}
		if filter.PeriodFrom != nil && filter.PeriodTo != nil && !stmt.Overlaps(*filter.PeriodFrom, *filter.PeriodTo) {
			continue
		}
		out = append(out, stmt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodFrom.After(out[j].PeriodFrom) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil, nil
}

func (s *memStore) SaveStatement(_ context.Context, statement domain.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.statements {
		if existing.PersonID == statement.PersonID && existing.PeriodFrom.Equal(statement.PeriodFrom) && existing.PeriodTo.Equal(statement.PeriodTo) {
			return fmt.Errorf("%w: statement period", apperrors.ErrDuplicate)
		}
	}
	s.statements[statement.StatementID] = statement
	return nil
}

func (s *memStore) UpdateStatement(_ context.Context, statement *domain.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.statements[statement.StatementID]
	if !ok {
		return apperrors.NewNotFoundError("statement " + statement.StatementID)
	}
	if stored.Version != statement.Version {
		return apperrors.NewStateGuardError("statement", statement.StatementID, string(stored.Status), "update", "version changed")
	}
	statement.Version++
	persisted := *statement
	if s.corruptNetDue {
		persisted.NetDue = persisted.NetDue.Add(decimal.RequireFromString("0.01"))
	}
	s.statements[statement.StatementID] = persisted
	return nil
}

// --- batches ---

func (s *memStore) batchWithStatements(b domain.PaymentBatch) domain.PaymentBatch {
	if snap, ok := s.batchStatements[b.BatchID]; ok {
		b.StatementIDs = append([]string(nil), snap...)
		return b
	}
	b.StatementIDs = s.activeStatementIDs(b.BatchID)
	return b
}

func (s *memStore) FindBatchByID(_ context.Context, batchID string) (*domain.PaymentBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, apperrors.NewNotFoundError("payment batch " + batchID)
	}
	b = s.batchWithStatements(b)
	return &b, nil
}

func (s *memStore) FindBatchByIDForUpdate(ctx context.Context, batchID string) (*domain.PaymentBatch, error) {
	if ctx.Value(inTxKey{}) == nil {
		return nil, errors.New("FindBatchByIDForUpdate called outside a transaction")
	}
	return s.FindBatchByID(ctx, batchID)
}

func (s *memStore) ListBatches(_ context.Context, status *domain.BatchStatus, limit int, _ *string) ([]domain.PaymentBatch, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PaymentBatch
	for _, b := range s.batches {
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, s.batchWithStatements(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchDate.After(out[j].BatchDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil, nil
}

func (s *memStore) FindBatchesReferencingStatement(_ context.Context, statementID string) ([]domain.PaymentBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	for batchID, ids := range s.batchStatements {
		for _, id := range ids {
			if id == statementID {
				seen[batchID] = true
			}
		}
	}
	for _, p := range s.payments {
		if p.StatementID == statementID && !p.IsVoided() {
			seen[p.PaymentBatchID] = true
		}
	}
	out := make([]domain.PaymentBatch, 0, len(seen))
	for batchID := range seen {
		out = append(out, s.batchWithStatements(s.batches[batchID]))
	}
	return out, nil
}

func (s *memStore) SaveBatch(_ context.Context, batch domain.PaymentBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch.StatementIDs = nil
	s.batches[batch.BatchID] = batch
	return nil
}

func (s *memStore) UpdateBatch(_ context.Context, batch domain.PaymentBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.BatchID]; !ok {
		return apperrors.NewNotFoundError("payment batch " + batch.BatchID)
	}
	batch.StatementIDs = nil
	s.batches[batch.BatchID] = batch
	return nil
}

func (s *memStore) SaveBatchStatements(_ context.Context, batchID string, statementIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchStatements[batchID] = append([]string(nil), statementIDs...)
	return nil
}

// --- payments ---

func (s *memStore) activeStatementIDs(batchID string) []string {
	set := map[string]bool{}
	for _, p := range s.payments {
		if p.PaymentBatchID == batchID && !p.IsVoided() {
			set[p.StatementID] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *memStore) FindPaymentByID(_ context.Context, paymentID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("payment " + paymentID)
	}
	return &p, nil
}

func (s *memStore) listPayments(match func(domain.Payment) bool) []domain.StatementPayment {
	var out []domain.StatementPayment
	for i := len(s.paymentOrder) - 1; i >= 0; i-- {
		p := s.payments[s.paymentOrder[i]]
		if !match(p) {
			continue
		}
		out = append(out, domain.StatementPayment{
			PaymentID:       p.PaymentID,
			StatementID:     p.StatementID,
			PaymentBatchID:  p.PaymentBatchID,
			Amount:          p.Amount,
			PaymentDate:     p.PaymentDate,
			PaymentMethodID: p.PaymentMethodID,
			ReferenceNumber: p.ReferenceNumber,
			Voided:          p.IsVoided(),
		})
	}
	return out
}

func (s *memStore) ListPaymentsForStatement(_ context.Context, statementID string) ([]domain.StatementPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(func(p domain.Payment) bool { return p.StatementID == statementID }), nil
}

func (s *memStore) ListPaymentsForBatch(_ context.Context, batchID string) ([]domain.StatementPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(func(p domain.Payment) bool { return p.PaymentBatchID == batchID }), nil
}

func (s *memStore) SumActivePaymentsForStatement(_ context.Context, statementID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.StatementID == statementID && !p.IsVoided() {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (s *memStore) CountActivePaymentsForStatement(_ context.Context, statementID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.payments {
		if p.StatementID == statementID && !p.IsVoided() {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListActiveStatementIDsForBatch(_ context.Context, batchID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeStatementIDs(batchID), nil
}

func (s *memStore) SavePayment(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.PaymentID] = payment
	s.paymentOrder = append(s.paymentOrder, payment.PaymentID)
	return nil
}

func (s *memStore) UpdatePayment(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.PaymentID]; !ok {
		return apperrors.NewNotFoundError("payment " + payment.PaymentID)
	}
	s.payments[payment.PaymentID] = payment
	return nil
}

// --- audit ---

func (s *memStore) AppendAuditLog(_ context.Context, entry domain.StatementAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *memStore) ListAuditLogsForStatement(_ context.Context, statementID string) ([]domain.StatementAuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StatementAuditLog
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		if s.auditLogs[i].StatementID == statementID {
			out = append(out, s.auditLogs[i])
		}
	}
	return out, nil
}
