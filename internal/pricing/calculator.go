// Package pricing computes markup, service fee and totals for a booking.
// It is pure: no I/O, deterministic, rounding fixed by the currency's
// minor-unit convention.
package pricing

import (
	"errors"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrConfigNotFound means no active markup configuration exists for the
	// productType/currency pair. Callers must not fall back to a default.
	ErrConfigNotFound = errors.New("no active markup configuration")

	// ErrInvalidPrice means a derived or supplied base price is not positive.
	ErrInvalidPrice = errors.New("invalid price")
)

// Quote is the priced breakdown frozen into a booking at creation time.
type Quote struct {
	BasePrice    decimal.Decimal
	MarkupAmount decimal.Decimal
	ServiceFee   decimal.Decimal
	TotalAmount  decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Currencies without a minor unit; amounts go to Stripe unscaled.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// Exponent returns the number of decimal places for a currency.
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[currency] {
		return 0
	}
	return 2
}

// Round rounds an amount to the currency's minor-unit precision.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(Exponent(currency))
}

// MinorUnits converts an amount to the currency's smallest unit, as the
// payment provider expects it.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	scale := decimal.New(1, Exponent(currency))
	return amount.Mul(scale).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}

// CalculateTotal prices a base amount:
// markup = basePrice * cfg.MarkupPercentage / 100, serviceFee = cfg.ServiceFeeAmount.
func CalculateTotal(basePrice decimal.Decimal, cfg *models.MarkupConfig, currency string) (Quote, error) {
	if cfg == nil || !cfg.IsActive {
		return Quote{}, ErrConfigNotFound
	}
	if basePrice.LessThanOrEqual(decimal.Zero) {
		return Quote{}, ErrInvalidPrice
	}

	base := Round(basePrice, currency)
	markup := Round(base.Mul(cfg.MarkupPercentage).Div(hundred), currency)
	fee := Round(cfg.ServiceFeeAmount, currency)

	return Quote{
		BasePrice:    base,
		MarkupAmount: markup,
		ServiceFee:   fee,
		TotalAmount:  base.Add(markup).Add(fee),
	}, nil
}

// DeriveBasePrice reverses CalculateTotal for a provider-quoted final price,
// solving finalPrice = basePrice*(1+percentage/100) + serviceFee.
func DeriveBasePrice(finalPrice decimal.Decimal, cfg *models.MarkupConfig, currency string) (decimal.Decimal, error) {
	if cfg == nil || !cfg.IsActive {
		return decimal.Decimal{}, ErrConfigNotFound
	}

	factor := decimal.NewFromInt(1).Add(cfg.MarkupPercentage.Div(hundred))
	base := Round(finalPrice.Sub(cfg.ServiceFeeAmount).DivRound(factor, Exponent(currency)+4), currency)
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return base, nil
}

// DiscountFor computes the discount a voucher grants against a total,
// clamped to the voucher's cap and never exceeding the total itself.
func DiscountFor(v *models.Voucher, total decimal.Decimal, currency string) decimal.Decimal {
	if v == nil || v.Status != models.VoucherStatusActive {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case models.DiscountPercentage:
		discount = total.Mul(v.DiscountValue).Div(hundred)
	case models.DiscountFixedAmount:
		discount = v.DiscountValue
	default:
		return decimal.Zero
	}

	if v.MaxDiscountAmount.Valid && discount.GreaterThan(v.MaxDiscountAmount.Decimal) {
		discount = v.MaxDiscountAmount.Decimal
	}
	if discount.GreaterThan(total) {
		discount = total
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return Round(discount, currency)
}
