package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/lib/pq"
)

// ErrProviderOrderAlreadySet is returned when a second provider order id is
// written for the same booking. The id is set at most once.
var ErrProviderOrderAlreadySet = fmt.Errorf("provider booking id already set")

// CreateBooking persists a new booking in PENDING/PENDING.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (
			reference, user_id, product_type, provider,
			base_price, markup_amount, service_fee, total_amount, currency,
			voucher_id, voucher_discount,
			status, payment_status, payment_provider, payment_info,
			provider_data, booking_data,
			contact_email, contact_name,
			cancellation_deadline, policy_snapshot, policy_accepted_at,
			client_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		b.Reference, b.UserID, b.ProductType, b.Provider,
		b.BasePrice, b.MarkupAmount, b.ServiceFee, b.TotalAmount, b.Currency,
		b.VoucherID, b.VoucherDiscount,
		b.Status, b.PaymentStatus, b.PaymentProvider, b.PaymentInfo,
		b.ProviderData, b.BookingData,
		b.ContactEmail, b.ContactName,
		b.CancellationDeadline, b.PolicySnapshot, b.PolicyAcceptedAt,
		b.ClientIP, b.UserAgent,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetBookingByID retrieves a booking by internal id
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByReference retrieves a booking by its customer-facing reference
func (s *Store) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE reference = $1", reference)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking not found: %s", reference)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByPaymentReference retrieves a booking by its PaymentIntent id.
// Returns (nil, nil) when no booking matches, so a webhook for an unknown
// intent is distinguishable from a database error.
func (s *Store) GetBookingByPaymentReference(ctx context.Context, paymentRef string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE payment_reference = $1", paymentRef)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SetPaymentReference attaches a PaymentIntent id and moves the booking to
// PAYMENT_PENDING.
func (s *Store) SetPaymentReference(ctx context.Context, bookingID int64, paymentRef string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_reference = $1, status = $2, updated_at = NOW()
		WHERE id = $3`,
		paymentRef, models.BookingStatusPaymentPending, bookingID)
	return err
}

// UpdateBookingPayment is the single settlement transition: status,
// payment status and the verified payment snapshot in one statement. The
// fromStatuses guard makes redelivered webhook events a no-op; callers get
// (false, nil) when nothing matched.
func (s *Store) UpdateBookingPayment(
	ctx context.Context,
	bookingID int64,
	status models.BookingStatus,
	paymentStatus models.PaymentStatus,
	info models.PaymentInfo,
	fromStatuses ...models.BookingStatus,
) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_info = $3, updated_at = NOW()
		WHERE id = $4`
	args := []interface{}{status, paymentStatus, info, bookingID}

	if len(fromStatuses) > 0 {
		query += " AND status = ANY($5)"
		from := make([]string, len(fromStatuses))
		for i, st := range fromStatuses {
			from[i] = string(st)
		}
		args = append(args, pq.Array(from))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateBookingStatus sets only the booking status
func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2",
		status, bookingID)
	return err
}

// SetProviderOrder records the provider's order id and, in the same
// statement, nulls the encrypted card blob inside booking_data so the vault
// material cannot be read again. The guard enforces set-at-most-once.
func (s *Store) SetProviderOrder(ctx context.Context, bookingID int64, orderID string, data models.ProviderData) error {
	data.OrderID = orderID
	data.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET provider_booking_id = $1,
		    provider_data = $2,
		    booking_data = jsonb_set(booking_data, '{payment_card_info,encrypted}', 'null'::jsonb, false),
		    updated_at = NOW()
		WHERE id = $3 AND provider_booking_id IS NULL`,
		orderID, data, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProviderOrderAlreadySet
	}
	return nil
}

// RecordOrderError merges a sanitized order-creation error into
// provider_data. Payment state is untouched; operators reconcile from here.
func (s *Store) RecordOrderError(ctx context.Context, bookingID int64, oe models.OrderError) error {
	return s.patchProviderData(ctx, bookingID, map[string]interface{}{
		"order_creation_error": oe,
		"updated_at":           time.Now().UTC(),
	})
}

// RecordMarginChargeError merges a margin-charge failure into provider_data
// for the one-step flow where the provider order succeeded but the margin
// charge did not.
func (s *Store) RecordMarginChargeError(ctx context.Context, bookingID int64, oe models.OrderError) error {
	return s.patchProviderData(ctx, bookingID, map[string]interface{}{
		"margin_charge_error": oe,
		"updated_at":          time.Now().UTC(),
	})
}

func (s *Store) patchProviderData(ctx context.Context, bookingID int64, patch map[string]interface{}) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE bookings
		SET provider_data = COALESCE(provider_data, '{}'::jsonb) || $1::jsonb, updated_at = NOW()
		WHERE id = $2`,
		raw, bookingID)
	return err
}
