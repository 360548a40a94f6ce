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
	"github.com/SscSPs/fleet_settlement_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxPaymentBatchRepository struct {
	BaseRepository
}

// newPgxPaymentBatchRepository creates a new repository for payment batches.
func newPgxPaymentBatchRepository(base BaseRepository) portsrepo.PaymentBatchRepositoryFacade {
	return &PgxPaymentBatchRepository{BaseRepository: base}
}

var _ portsrepo.PaymentBatchRepositoryFacade = (*PgxPaymentBatchRepository)(nil)

// A DRAFT batch's statements are whatever its active payments touch; once posted
// the snapshot in payment_batch_statements is authoritative.
const selectBatchFields = `
	b.batch_id, b.batch_date, b.period_from, b.period_to, b.status, b.notes,
	b.posted_at, b.posted_by, b.completed_at, b.completed_by,
	b.created_at, b.created_by, b.last_updated_at, b.last_updated_by,
	COALESCE(CASE WHEN b.status = 'DRAFT' THEN
		(SELECT array_agg(DISTINCT p.statement_id ORDER BY p.statement_id)
		 FROM payments p WHERE p.payment_batch_id = b.batch_id AND p.voided_at IS NULL)
	ELSE
		(SELECT array_agg(s.statement_id ORDER BY s.statement_id)
		 FROM payment_batch_statements s WHERE s.batch_id = b.batch_id)
	END, '{}') AS statement_ids
`

func scanBatch(row pgx.Row) (domain.PaymentBatch, error) {
	var m models.PaymentBatch
	var statementIDs []string
	err := row.Scan(
		&m.BatchID,
		&m.BatchDate,
		&m.PeriodFrom,
		&m.PeriodTo,
		&m.Status,
		&m.Notes,
		&m.PostedAt,
		&m.PostedBy,
		&m.CompletedAt,
		&m.CompletedBy,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&statementIDs,
	)
	if err != nil {
		return domain.PaymentBatch{}, err
	}
	return mapping.ToDomainPaymentBatch(m, statementIDs), nil
}

func collectBatches(rows pgx.Rows) ([]domain.PaymentBatch, error) {
	defer rows.Close()
	var out []domain.PaymentBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payment batch row", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payment batch rows", err)
	}
	return out, nil
}

func (r *PgxPaymentBatchRepository) findOne(ctx context.Context, query, batchID string) (*domain.PaymentBatch, error) {
	b, err := scanBatch(r.db(ctx).QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("payment batch " + batchID)
		}
		return nil, apperrors.NewAppError(500, "failed to find payment batch "+batchID, err)
	}
	return &b, nil
}

// FindBatchByID retrieves a batch and its statement ids.
func (r *PgxPaymentBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.PaymentBatch, error) {
	query := `SELECT ` + selectBatchFields + ` FROM payment_batches b WHERE b.batch_id = $1;`
	return r.findOne(ctx, query, batchID)
}

// FindBatchByIDForUpdate retrieves and row-locks a batch inside the caller's transaction.
func (r *PgxPaymentBatchRepository) FindBatchByIDForUpdate(ctx context.Context, batchID string) (*domain.PaymentBatch, error) {
	if !inTx(ctx) {
		return nil, apperrors.NewAppError(500, "batch lock requested outside a transaction", nil)
	}
	query := `SELECT ` + selectBatchFields + ` FROM payment_batches b WHERE b.batch_id = $1 FOR UPDATE OF b;`
	return r.findOne(ctx, query, batchID)
}

// ListBatches returns a page of batches ordered by batch date, newest first.
func (r *PgxPaymentBatchRepository) ListBatches(ctx context.Context, status *domain.BatchStatus, limit int, nextToken *string) ([]domain.PaymentBatch, *string, error) {
	var args []any
	where := " WHERE TRUE"
	if status != nil {
		args = append(args, string(*status))
		where += fmt.Sprintf(" AND b.status = $%d", len(args))
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, cursor.SortDate, cursor.CreatedAt, cursor.ID)
		n := len(args)
		where += fmt.Sprintf(" AND (b.batch_date, b.created_at, b.batch_id) < ($%d::date, $%d::timestamptz, $%d::text)", n-2, n-1, n)
	}
	args = append(args, limit+1)
	query := `SELECT ` + selectBatchFields + ` FROM payment_batches b` + where +
		fmt.Sprintf(" ORDER BY b.batch_date DESC, b.created_at DESC, b.batch_id DESC LIMIT $%d;", len(args))

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list payment batches", err)
	}
	batches, err := collectBatches(rows)
	if err != nil {
		return nil, nil, err
	}

	fetched := len(batches)
	if fetched > limit {
		batches = batches[:limit]
	}
	var next *string
	if len(batches) > 0 {
		last := batches[len(batches)-1]
		next = pagination.NextToken(fetched, limit, pagination.Cursor{SortDate: last.BatchDate, CreatedAt: last.CreatedAt, ID: last.BatchID})
	}
	return batches, next, nil
}

// FindBatchesReferencingStatement lists batches holding the statement in their
// snapshot or carrying an active payment against it.
func (r *PgxPaymentBatchRepository) FindBatchesReferencingStatement(ctx context.Context, statementID string) ([]domain.PaymentBatch, error) {
	query := `
		SELECT ` + selectBatchFields + `
		FROM payment_batches b
		WHERE b.batch_id IN (
			SELECT batch_id FROM payment_batch_statements WHERE statement_id = $1
			UNION
			SELECT payment_batch_id FROM payments WHERE statement_id = $1 AND voided_at IS NULL
		)
		ORDER BY b.batch_date, b.batch_id;
	`
	rows, err := r.db(ctx).Query(ctx, query, statementID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query batches for statement "+statementID, err)
	}
	return collectBatches(rows)
}

// SaveBatch inserts a new batch row.
func (r *PgxPaymentBatchRepository) SaveBatch(ctx context.Context, batch domain.PaymentBatch) error {
	m := mapping.ToModelPaymentBatch(batch)
	query := `
		INSERT INTO payment_batches (
			batch_id, batch_date, period_from, period_to, status, notes,
			posted_at, posted_by, completed_at, completed_by,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		m.BatchID,
		m.BatchDate,
		m.PeriodFrom,
		m.PeriodTo,
		m.Status,
		m.Notes,
		m.PostedAt,
		m.PostedBy,
		m.CompletedAt,
		m.CompletedBy,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment batch %s", apperrors.ErrDuplicate, m.BatchID)
		}
		return apperrors.NewAppError(500, "failed to insert payment batch "+m.BatchID, err)
	}
	return nil
}

// UpdateBatch writes the batch status and its posted/completed stamps.
func (r *PgxPaymentBatchRepository) UpdateBatch(ctx context.Context, batch domain.PaymentBatch) error {
	m := mapping.ToModelPaymentBatch(batch)
	query := `
		UPDATE payment_batches
		SET status = $2, notes = $3,
		    posted_at = $4, posted_by = $5, completed_at = $6, completed_by = $7,
		    last_updated_at = $8, last_updated_by = $9
		WHERE batch_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		m.BatchID,
		m.Status,
		m.Notes,
		m.PostedAt,
		m.PostedBy,
		m.CompletedAt,
		m.CompletedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment batch "+m.BatchID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment batch " + m.BatchID)
	}
	return nil
}

// SaveBatchStatements stores the statement snapshot taken when a batch is posted.
func (r *PgxPaymentBatchRepository) SaveBatchStatements(ctx context.Context, batchID string, statementIDs []string) error {
	query := `
		INSERT INTO payment_batch_statements (batch_id, statement_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING;
	`
	if _, err := r.db(ctx).Exec(ctx, query, batchID, statementIDs); err != nil {
		return apperrors.NewAppError(500, "failed to snapshot statements for payment batch "+batchID, err)
	}
	return nil
}
