package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
)

// GetVoucherByID retrieves a voucher by id
func (s *Store) GetVoucherByID(ctx context.Context, id int64) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vouchers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voucher not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVoucherByCode retrieves a voucher by its code. Returns (nil, nil) when
// the code is unknown.
func (s *Store) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vouchers WHERE code = $1", strings.ToUpper(strings.TrimSpace(code)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkVoucherUsed consumes a voucher exactly once. The status guard makes a
// second consumption attempt return (false, nil) instead of double-spending.
func (s *Store) MarkVoucherUsed(ctx context.Context, voucherID, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vouchers
		SET status = $1, used_on_booking_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.VoucherStatusUsed, bookingID, voucherID, models.VoucherStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
