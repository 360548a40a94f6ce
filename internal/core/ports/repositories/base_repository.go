package repositories

import "context"

// TransactionManager runs a unit of work inside one database transaction.
type TransactionManager interface {
	// RunInTx executes fn with a context bound to a transaction. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls join the
	// outer transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
