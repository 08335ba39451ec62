package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"
)

// CreateReservation persists a new reservation. The unique index on
// receipt rejects duplicate idempotency tokens at the store level.
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (
			renter_ref, vehicle_id, vehicle_brand, vehicle_model,
			price_per_day, rental_days, total_price,
			address_line1, address_line2, city, postal_code, renter_phone,
			payment_method, status,
			payment_provider, receipt, payment_currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		r.RenterRef, r.VehicleID, r.VehicleBrand, r.VehicleModel,
		r.PricePerDay, r.RentalDays, r.TotalPrice,
		r.AddressLine1, r.AddressLine2, r.City, r.PostalCode, r.RenterPhone,
		r.PaymentMethod, r.Status,
		r.Provider, r.Receipt, r.Currency,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: create reservation: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// GetReservationByID retrieves a reservation by ID
func (s *Store) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", apperr.ErrReservationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get reservation: %v", apperr.ErrPersistence, err)
	}
	return &r, nil
}

// GetReservationByOrderID retrieves a reservation by its gateway order
// id. This is the hot path for every webhook delivery; payment_order_id
// carries its own index.
func (s *Store) GetReservationByOrderID(ctx context.Context, orderID string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE payment_order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrReservationNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get reservation by order: %v", apperr.ErrPersistence, err)
	}
	return &r, nil
}

// GetReservationsByRenter retrieves reservations for a renter
func (s *Store) GetReservationsByRenter(ctx context.Context, renterRef string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE renter_ref = $1 ORDER BY created_at DESC", renterRef)
	if err != nil {
		return nil, fmt.Errorf("%w: list reservations: %v", apperr.ErrPersistence, err)
	}
	return reservations, nil
}

// SetGatewayOrder merges the gateway-assigned order id into the payment
// details of a reservation still awaiting payment.
func (s *Store) SetGatewayOrder(ctx context.Context, id int64, orderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET payment_order_id = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		orderID, models.PayStatusCreated, id, models.StatusPendingPayment)
	if err != nil {
		return fmt.Errorf("%w: set gateway order: %v", apperr.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: set gateway order: %v", apperr.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d not pending payment", apperr.ErrReservationNotFound, id)
	}
	return nil
}

// MarkOrderFailed records a gateway failure during order issuance. The
// reservation is retained, never rolled back, so the attempt stays
// auditable.
func (s *Store) MarkOrderFailed(ctx context.Context, id int64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, payment_status = $2, payment_error = $3, updated_at = NOW()
		WHERE id = $4`,
		models.StatusPaymentFailed, models.PayStatusFailed, reason, id)
	if err != nil {
		return fmt.Errorf("%w: mark order failed: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// ConfirmPayment applies the capture-success transition as a single
// conditional merge keyed by gateway order id. The guard closes the
// race between concurrent webhook deliveries: only the first writer
// transitions the row, duplicates and late arrivals affect zero rows.
// Rows never correlated to a gateway order (empty payment_order_id)
// are not eligible. Returns whether the transition was applied.
func (s *Store) ConfirmPayment(ctx context.Context, orderID, paymentID string, amountPaid float64, currency string, capturedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, payment_id = $2, payment_status = $3,
		    amount_paid = $4, payment_currency = $5, captured_at = $6,
		    payment_error = '', updated_at = NOW()
		WHERE payment_order_id = $7 AND payment_order_id <> ''
		  AND status NOT IN ($8, $9, $10, $11)`,
		models.StatusConfirmed, paymentID, models.PayStatusCaptured,
		amountPaid, currency, capturedAt,
		orderID,
		models.StatusConfirmed, models.StatusCompleted,
		models.StatusCancelledByUser, models.StatusCancelledBySystem)
	if err != nil {
		return false, fmt.Errorf("%w: confirm payment: %v", apperr.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: confirm payment: %v", apperr.ErrPersistence, err)
	}
	return n > 0, nil
}

// FailPayment applies the capture-failure transition. Only reservations
// still awaiting payment are eligible, so a stale failure can never
// downgrade a confirmed or otherwise settled reservation.
func (s *Store) FailPayment(ctx context.Context, orderID, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, payment_status = $2, payment_error = $3, updated_at = NOW()
		WHERE payment_order_id = $4 AND payment_order_id <> '' AND status = $5`,
		models.StatusPaymentFailed, models.PayStatusFailed, reason,
		orderID, models.StatusPendingPayment)
	if err != nil {
		return false, fmt.Errorf("%w: fail payment: %v", apperr.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: fail payment: %v", apperr.ErrPersistence, err)
	}
	return n > 0, nil
}
