package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/models"
	"github.com/SscSPs/fleet_settlement_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPaymentMethodRepository struct {
	BaseRepository
}

// NewPgxPaymentMethodResolver creates a resolver backed by the payment_methods table.
func NewPgxPaymentMethodResolver(pool *pgxpool.Pool) portssvc.PaymentMethodResolver {
	return &PgxPaymentMethodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

func (r *PgxPaymentMethodRepository) ResolvePaymentMethod(ctx context.Context, paymentMethodID string) (*domain.PaymentMethod, error) {
	query := `SELECT payment_method_id, name, is_active FROM payment_methods WHERE payment_method_id = $1;`
	var m models.PaymentMethod
	err := r.db(ctx).QueryRow(ctx, query, paymentMethodID).Scan(&m.PaymentMethodID, &m.Name, &m.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("payment method " + paymentMethodID)
		}
		return nil, apperrors.NewAppError(500, "failed to resolve payment method "+paymentMethodID, err)
	}
	pm := mapping.ToDomainPaymentMethod(m)
	return &pm, nil
}
