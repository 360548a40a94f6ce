package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
	"github.com/SscSPs/fleet_settlement_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PgxPaymentRepository struct {
	BaseRepository
}

// newPgxPaymentRepository creates a new repository for payments.
func newPgxPaymentRepository(base BaseRepository) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{BaseRepository: base}
}

var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

const selectPaymentFields = `
	payment_id, statement_id, payment_batch_id, amount, payment_date, payment_method_id,
	reference_number, notes, voided_at, voided_by, void_reason,
	created_at, created_by, last_updated_at, last_updated_by
`

// FindPaymentByID retrieves a payment, voided or not.
func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + selectPaymentFields + ` FROM payments WHERE payment_id = $1;`
	var m models.Payment
	err := r.db(ctx).QueryRow(ctx, query, paymentID).Scan(
		&m.PaymentID,
		&m.StatementID,
		&m.PaymentBatchID,
		&m.Amount,
		&m.PaymentDate,
		&m.PaymentMethodID,
		&m.ReferenceNumber,
		&m.Notes,
		&m.VoidedAt,
		&m.VoidedBy,
		&m.VoidReason,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("payment " + paymentID)
		}
		return nil, apperrors.NewAppError(500, "failed to find payment "+paymentID, err)
	}
	p := mapping.ToDomainPayment(m)
	return &p, nil
}

func (r *PgxPaymentRepository) listStatementPayments(ctx context.Context, column, id string) ([]domain.StatementPayment, error) {
	query := fmt.Sprintf(`
		SELECT sp.payment_id, sp.statement_id, sp.payment_batch_id, p.amount, p.payment_date,
		       p.payment_method_id, p.reference_number, p.voided_at
		FROM statement_payments sp
		JOIN payments p ON p.payment_id = sp.payment_id
		WHERE sp.%s = $1
		ORDER BY p.created_at DESC, sp.payment_id DESC;
	`, column)

	rows, err := r.db(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list payments by "+column, err)
	}
	defer rows.Close()

	out := []domain.StatementPayment{}
	for rows.Next() {
		var m models.StatementPayment
		if err := rows.Scan(
			&m.PaymentID,
			&m.StatementID,
			&m.PaymentBatchID,
			&m.Amount,
			&m.PaymentDate,
			&m.PaymentMethodID,
			&m.ReferenceNumber,
			&m.VoidedAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payment row", err)
		}
		out = append(out, mapping.ToDomainStatementPayment(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payment rows", err)
	}
	return out, nil
}

func (r *PgxPaymentRepository) ListPaymentsForStatement(ctx context.Context, statementID string) ([]domain.StatementPayment, error) {
	return r.listStatementPayments(ctx, "statement_id", statementID)
}

func (r *PgxPaymentRepository) ListPaymentsForBatch(ctx context.Context, batchID string) ([]domain.StatementPayment, error) {
	return r.listStatementPayments(ctx, "payment_batch_id", batchID)
}

// SumActivePaymentsForStatement totals non-voided payments. An unpaid statement sums to zero.
func (r *PgxPaymentRepository) SumActivePaymentsForStatement(ctx context.Context, statementID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE statement_id = $1 AND voided_at IS NULL;`
	var total decimal.Decimal
	if err := r.db(ctx).QueryRow(ctx, query, statementID).Scan(&total); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum payments for statement "+statementID, err)
	}
	return total, nil
}

func (r *PgxPaymentRepository) CountActivePaymentsForStatement(ctx context.Context, statementID string) (int, error) {
	query := `SELECT COUNT(*) FROM payments WHERE statement_id = $1 AND voided_at IS NULL;`
	var n int
	if err := r.db(ctx).QueryRow(ctx, query, statementID).Scan(&n); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count payments for statement "+statementID, err)
	}
	return n, nil
}

func (r *PgxPaymentRepository) ListActiveStatementIDsForBatch(ctx context.Context, batchID string) ([]string, error) {
	query := `
		SELECT DISTINCT statement_id FROM payments
		WHERE payment_batch_id = $1 AND voided_at IS NULL
		ORDER BY statement_id;
	`
	rows, err := r.db(ctx).Query(ctx, query, batchID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list statements for payment batch "+batchID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan statement ids for payment batch "+batchID, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// SavePayment inserts the payment and its statement_payments projection row in the caller's transaction.
func (r *PgxPaymentRepository) SavePayment(ctx context.Context, payment domain.Payment) error {
	m := mapping.ToModelPayment(payment)
	return r.RunInTx(ctx, func(ctx context.Context) error {
		insertPayment := `
			INSERT INTO payments (
				payment_id, statement_id, payment_batch_id, amount, payment_date, payment_method_id,
				reference_number, notes, voided_at, voided_by, void_reason,
				created_at, created_by, last_updated_at, last_updated_by
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
		`
		_, err := r.db(ctx).Exec(ctx, insertPayment,
			m.PaymentID,
			m.StatementID,
			m.PaymentBatchID,
			m.Amount,
			m.PaymentDate,
			m.PaymentMethodID,
			m.ReferenceNumber,
			m.Notes,
			m.VoidedAt,
			m.VoidedBy,
			m.VoidReason,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: payment %s", apperrors.ErrDuplicate, m.PaymentID)
			}
			return apperrors.NewAppError(500, "failed to insert payment "+m.PaymentID, err)
		}

		insertLink := `
			INSERT INTO statement_payments (payment_id, statement_id, payment_batch_id)
			VALUES ($1, $2, $3);
		`
		if _, err := r.db(ctx).Exec(ctx, insertLink, m.PaymentID, m.StatementID, m.PaymentBatchID); err != nil {
			return apperrors.NewAppError(500, "failed to link payment "+m.PaymentID+" to statement", err)
		}
		return nil
	})
}

// UpdatePayment writes amount, reference, notes and void columns.
func (r *PgxPaymentRepository) UpdatePayment(ctx context.Context, payment domain.Payment) error {
	m := mapping.ToModelPayment(payment)
	query := `
		UPDATE payments
		SET amount = $2, payment_date = $3, payment_method_id = $4, reference_number = $5, notes = $6,
		    voided_at = $7, voided_by = $8, void_reason = $9,
		    last_updated_at = $10, last_updated_by = $11
		WHERE payment_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		m.PaymentID,
		m.Amount,
		m.PaymentDate,
		m.PaymentMethodID,
		m.ReferenceNumber,
		m.Notes,
		m.VoidedAt,
		m.VoidedBy,
		m.VoidReason,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment "+m.PaymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + m.PaymentID)
	}
	return nil
}
