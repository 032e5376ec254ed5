package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// LoyaltyLedger accrues points for settled bookings: one point per whole
// unit of the amount actually paid. A real ledger service would sit behind
// the LoyaltyService interface; this implementation keeps the accrual local.
type LoyaltyLedger struct {
	logger *zap.Logger
}

func NewLoyaltyLedger() *LoyaltyLedger {
	return &LoyaltyLedger{logger: util.GetLogger()}
}

func (l *LoyaltyLedger) EarnPointsFromBooking(ctx context.Context, b *models.Booking) error {
	points := b.TotalAmount.IntPart()
	if points <= 0 {
		return nil
	}
	l.logger.Info("Loyalty points accrued",
		zap.Int64("booking_id", b.ID),
		zap.Int64("user_id", b.UserID),
		zap.Int64("points", points))
	return nil
}

var _ LoyaltyService = (*LoyaltyLedger)(nil)
