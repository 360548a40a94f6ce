package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
	"github.com/SscSPs/fleet_settlement_app/internal/utils/mapping"
	"github.com/SscSPs/fleet_settlement_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxStatementRepository struct {
	BaseRepository
}

// newPgxStatementRepository creates a new repository for statement data.
func newPgxStatementRepository(base BaseRepository) portsrepo.StatementRepositoryFacade {
	return &PgxStatementRepository{BaseRepository: base}
}

var _ portsrepo.StatementRepositoryFacade = (*PgxStatementRepository)(nil)

const selectStatementFields = `
	statement_id, person_id, person_kind, period_from, period_to,
	previous_balance, total_revenues, total_expenses, paid_amount, net_due,
	status, finalized_at, version,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanStatement(row pgx.Row) (domain.Statement, error) {
	var m models.Statement
	err := row.Scan(
		&m.StatementID,
		&m.PersonID,
		&m.PersonKind,
		&m.PeriodFrom,
		&m.PeriodTo,
		&m.PreviousBalance,
		&m.TotalRevenues,
		&m.TotalExpenses,
		&m.PaidAmount,
		&m.NetDue,
		&m.Status,
		&m.FinalizedAt,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Statement{}, err
	}
	return mapping.ToDomainStatement(m), nil
}

func collectStatements(rows pgx.Rows) ([]domain.Statement, error) {
	defer rows.Close()
	var out []domain.Statement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan statement row", err)
		}
		out = append(out, stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating statement rows", err)
	}
	return out, nil
}

func (r *PgxStatementRepository) findOne(ctx context.Context, query, what string, args ...any) (*domain.Statement, error) {
	stmt, err := scanStatement(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(what)
		}
		return nil, apperrors.NewAppError(500, "failed to find "+what, err)
	}
	return &stmt, nil
}

// FindStatementByID retrieves a statement by its ID.
func (r *PgxStatementRepository) FindStatementByID(ctx context.Context, statementID string) (*domain.Statement, error) {
	query := `SELECT ` + selectStatementFields + ` FROM statements WHERE statement_id = $1;`
	return r.findOne(ctx, query, "statement "+statementID, statementID)
}

// FindStatementByIDForUpdate retrieves and row-locks a statement inside the caller's transaction.
func (r *PgxStatementRepository) FindStatementByIDForUpdate(ctx context.Context, statementID string) (*domain.Statement, error) {
	if !inTx(ctx) {
		return nil, apperrors.NewAppError(500, "statement lock requested outside a transaction", nil)
	}
	query := `SELECT ` + selectStatementFields + ` FROM statements WHERE statement_id = $1 FOR UPDATE;`
	return r.findOne(ctx, query, "statement "+statementID, statementID)
}

// LockStatementsForUpdate row-locks the given statements. The ORDER BY keeps the
// lock order stable across concurrent callers.
func (r *PgxStatementRepository) LockStatementsForUpdate(ctx context.Context, statementIDs []string) (map[string]domain.Statement, error) {
	if len(statementIDs) == 0 {
		return map[string]domain.Statement{}, nil
	}
	if !inTx(ctx) {
		return nil, apperrors.NewAppError(500, "statement lock requested outside a transaction", nil)
	}
	query := `
		SELECT ` + selectStatementFields + `
		FROM statements
		WHERE statement_id = ANY($1)
		ORDER BY statement_id
		FOR UPDATE;
	`
	rows, err := r.db(ctx).Query(ctx, query, statementIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock statements", err)
	}
	statements, err := collectStatements(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Statement, len(statements))
	for _, s := range statements {
		out[s.StatementID] = s
	}
	return out, nil
}

// FindStatementByPeriod retrieves the statement of a person for an exact period.
func (r *PgxStatementRepository) FindStatementByPeriod(ctx context.Context, personID string, periodFrom, periodTo time.Time) (*domain.Statement, error) {
	query := `
		SELECT ` + selectStatementFields + `
		FROM statements
		WHERE person_id = $1 AND period_from = $2 AND period_to = $3;
	`
	return r.findOne(ctx, query, "statement for person "+personID+" and period", personID, periodFrom, periodTo)
}

// FindOverlappingStatements lists the person's statements sharing at least one day with the period.
func (r *PgxStatementRepository) FindOverlappingStatements(ctx context.Context, personID string, periodFrom, periodTo time.Time) ([]domain.Statement, error) {
	query := `
		SELECT ` + selectStatementFields + `
		FROM statements
		WHERE person_id = $1 AND period_from <= $3 AND period_to >= $2
		ORDER BY period_from;
	`
	rows, err := r.db(ctx).Query(ctx, query, personID, periodFrom, periodTo)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query overlapping statements", err)
	}
	return collectStatements(rows)
}

// FindLatestSignedOffBefore returns the most recent statement ending before the given date
// that is LOCKED or PAID or held by a COMPLETED payment batch.
func (r *PgxStatementRepository) FindLatestSignedOffBefore(ctx context.Context, personID string, before time.Time) (*domain.Statement, error) {
	query := `
		SELECT ` + selectStatementFields + `
		FROM statements s
		WHERE s.person_id = $1 AND s.period_to < $2
			AND (s.status IN ('LOCKED', 'PAID') OR EXISTS (
				SELECT 1
				FROM payment_batch_statements bs
				JOIN payment_batches b ON b.batch_id = bs.batch_id
				WHERE bs.statement_id = s.statement_id AND b.status = 'COMPLETED'
			))
		ORDER BY s.period_to DESC, s.finalized_at DESC NULLS LAST
		LIMIT 1;
	`
	return r.findOne(ctx, query, "signed-off statement for person "+personID, personID, before)
}

// ListStatements returns a page of statements ordered by period start, newest first.
func (r *PgxStatementRepository) ListStatements(ctx context.Context, filter domain.StatementFilter, limit int, nextToken *string) ([]domain.Statement, *string, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PersonID != nil {
		conditions = append(conditions, "person_id = "+arg(*filter.PersonID))
	}
	if filter.PeriodFrom != nil && filter.PeriodTo != nil {
		conditions = append(conditions, "period_from <= "+arg(*filter.PeriodTo), "period_to >= "+arg(*filter.PeriodFrom))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		conditions = append(conditions, fmt.Sprintf("(period_from, created_at, statement_id) < (%s::date, %s::timestamptz, %s::text)",
			arg(cursor.SortDate), arg(cursor.CreatedAt), arg(cursor.ID)))
	}

	query := `SELECT ` + selectStatementFields + ` FROM statements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY period_from DESC, created_at DESC, statement_id DESC LIMIT " + arg(limit+1)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list statements", err)
	}
	statements, err := collectStatements(rows)
	if err != nil {
		return nil, nil, err
	}

	fetched := len(statements)
	if fetched > limit {
		statements = statements[:limit]
	}
	var next *string
	if len(statements) > 0 {
		last := statements[len(statements)-1]
		next = pagination.NextToken(fetched, limit, pagination.Cursor{SortDate: last.PeriodFrom, CreatedAt: last.CreatedAt, ID: last.StatementID})
	}
	return statements, next, nil
}

// SaveStatement inserts a finalized statement. The (person, period) unique key maps to ErrDuplicate.
func (r *PgxStatementRepository) SaveStatement(ctx context.Context, statement domain.Statement) error {
	m := mapping.ToModelStatement(statement)
	query := `
		INSERT INTO statements (` + selectStatementFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		m.StatementID,
		m.PersonID,
		m.PersonKind,
		m.PeriodFrom,
		m.PeriodTo,
		m.PreviousBalance,
		m.TotalRevenues,
		m.TotalExpenses,
		m.PaidAmount,
		m.NetDue,
		m.Status,
		m.FinalizedAt,
		m.Version,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: statement for person %s and period already exists", apperrors.ErrDuplicate, m.PersonID)
		}
		return apperrors.NewAppError(500, "failed to insert statement "+m.StatementID, err)
	}
	return nil
}

// UpdateStatement writes amounts and status guarded by the row version, then bumps statement.Version.
func (r *PgxStatementRepository) UpdateStatement(ctx context.Context, statement *domain.Statement) error {
	m := mapping.ToModelStatement(*statement)
	query := `
		UPDATE statements
		SET previous_balance = $2, total_revenues = $3, total_expenses = $4,
		    paid_amount = $5, net_due = $6, status = $7,
		    last_updated_at = $8, last_updated_by = $9,
		    version = version + 1
		WHERE statement_id = $1 AND version = $10;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		m.StatementID,
		m.PreviousBalance,
		m.TotalRevenues,
		m.TotalExpenses,
		m.PaidAmount,
		m.NetDue,
		m.Status,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.Version,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update statement "+m.StatementID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindStatementByID(ctx, m.StatementID); err != nil {
			return err
		}
		return apperrors.NewStateGuardError("statement", m.StatementID, string(m.Status), "update", "statement was modified concurrently")
	}
	statement.Version++
	return nil
}
