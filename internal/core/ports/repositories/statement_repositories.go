package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
)

// StatementReader defines read operations for statement data
type StatementReader interface {
	// FindStatementByID retrieves a statement by its unique identifier.
	FindStatementByID(ctx context.Context, statementID string) (*domain.Statement, error)

	// FindStatementByPeriod retrieves the statement for the exact person and period.
	FindStatementByPeriod(ctx context.Context, personID string, periodFrom, periodTo time.Time) (*domain.Statement, error)

	// FindOverlappingStatements lists the person's statements sharing any day with the period.
	FindOverlappingStatements(ctx context.Context, personID string, periodFrom, periodTo time.Time) ([]domain.Statement, error)

	// FindLatestSignedOffBefore returns the person's most recent statement ending before
	// the given date that is LOCKED or PAID or held by a COMPLETED payment batch, ordered
	// by period end then finalization time.
	FindLatestSignedOffBefore(ctx context.Context, personID string, before time.Time) (*domain.Statement, error)

	// ListStatements retrieves a paginated list of statements matching the filter.
	// It returns the statements, a token for the next page, and an error.
	ListStatements(ctx context.Context, filter domain.StatementFilter, limit int, nextToken *string) ([]domain.Statement, *string, error)
}

// StatementWriter defines write operations for statement data
type StatementWriter interface {
	// SaveStatement inserts a finalized statement.
	SaveStatement(ctx context.Context, statement domain.Statement) error

	// UpdateStatement writes amounts, status and audit columns, guarded by the version counter.
	UpdateStatement(ctx context.Context, statement *domain.Statement) error
}

// StatementLocker takes row locks on statements for the enclosing transaction.
type StatementLocker interface {
	FindStatementByIDForUpdate(ctx context.Context, statementID string) (*domain.Statement, error)

	// LockStatementsForUpdate locks all listed statements in ascending id order.
	LockStatementsForUpdate(ctx context.Context, statementIDs []string) (map[string]domain.Statement, error)
}

// StatementRepositoryFacade combines all statement-related repository interfaces
type StatementRepositoryFacade interface {
	StatementReader
	StatementWriter
	StatementLocker
}
