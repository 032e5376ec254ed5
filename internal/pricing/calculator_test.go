package pricing

import (
	"testing"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeConfig(pct, fee string) *models.MarkupConfig {
	return &models.MarkupConfig{
		ProductType:      models.ProductHotel,
		Currency:         "USD",
		MarkupPercentage: decimal.RequireFromString(pct),
		ServiceFeeAmount: decimal.RequireFromString(fee),
		IsActive:         true,
	}
}

func TestCalculateTotal(t *testing.T) {
	cfg := activeConfig("10", "5")

	quote, err := CalculateTotal(decimal.RequireFromString("100"), cfg, "USD")
	require.NoError(t, err)

	assert.True(t, quote.MarkupAmount.Equal(decimal.RequireFromString("10")))
	assert.True(t, quote.ServiceFee.Equal(decimal.RequireFromString("5")))
	assert.True(t, quote.TotalAmount.Equal(decimal.RequireFromString("115")))
}

func TestCalculateTotalRoundsToMinorUnit(t *testing.T) {
	cfg := activeConfig("7.5", "2.50")

	quote, err := CalculateTotal(decimal.RequireFromString("99.99"), cfg, "USD")
	require.NoError(t, err)

	// 99.99 * 7.5% = 7.49925 -> 7.50
	assert.True(t, quote.MarkupAmount.Equal(decimal.RequireFromString("7.50")), quote.MarkupAmount.String())
	assert.True(t, quote.TotalAmount.Equal(decimal.RequireFromString("109.99")))
}

func TestCalculateTotalNoConfig(t *testing.T) {
	_, err := CalculateTotal(decimal.NewFromInt(100), nil, "USD")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	inactive := activeConfig("10", "5")
	inactive.IsActive = false
	_, err = CalculateTotal(decimal.NewFromInt(100), inactive, "USD")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestCalculateTotalRejectsNonPositiveBase(t *testing.T) {
	_, err := CalculateTotal(decimal.Zero, activeConfig("10", "5"), "USD")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestDeriveBasePriceRoundTrip(t *testing.T) {
	cases := []struct {
		pct, fee, base string
	}{
		{"10", "5", "100"},
		{"12.5", "3.75", "842.42"},
		{"0", "0", "19.99"},
		{"25", "10", "0.04"},
	}

	for _, tc := range cases {
		cfg := activeConfig(tc.pct, tc.fee)
		base := decimal.RequireFromString(tc.base)

		quote, err := CalculateTotal(base, cfg, "USD")
		require.NoError(t, err)

		derived, err := DeriveBasePrice(quote.BasePrice.Mul(decimal.NewFromInt(1).Add(cfg.MarkupPercentage.Div(decimal.NewFromInt(100)))).Add(cfg.ServiceFeeAmount), cfg, "USD")
		require.NoError(t, err)

		// Within one minor unit of the original.
		diff := derived.Sub(base).Abs()
		assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")),
			"pct=%s fee=%s base=%s derived=%s", tc.pct, tc.fee, tc.base, derived.String())
	}
}

func TestDeriveBasePriceRejectsNonPositiveResult(t *testing.T) {
	cfg := activeConfig("10", "50")

	// final price below the flat fee leaves a negative base
	_, err := DeriveBasePrice(decimal.RequireFromString("40"), cfg, "USD")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1275), MinorUnits(decimal.RequireFromString("12.75"), "USD"))
	assert.Equal(t, int64(1275), MinorUnits(decimal.RequireFromString("1275"), "JPY"))
	assert.Equal(t, int64(100), MinorUnits(decimal.NewFromInt(1), "EUR"))

	assert.True(t, FromMinorUnits(1275, "USD").Equal(decimal.RequireFromString("12.75")))
	assert.True(t, FromMinorUnits(1275, "JPY").Equal(decimal.RequireFromString("1275")))
}

func TestDiscountFor(t *testing.T) {
	total := decimal.RequireFromString("200")

	pct := &models.Voucher{
		DiscountType:  models.DiscountPercentage,
		DiscountValue: decimal.RequireFromString("10"),
		Status:        models.VoucherStatusActive,
	}
	assert.True(t, DiscountFor(pct, total, "USD").Equal(decimal.RequireFromString("20")))

	capped := &models.Voucher{
		DiscountType:      models.DiscountPercentage,
		DiscountValue:     decimal.RequireFromString("50"),
		MaxDiscountAmount: decimal.NewNullDecimal(decimal.RequireFromString("30")),
		Status:            models.VoucherStatusActive,
	}
	assert.True(t, DiscountFor(capped, total, "USD").Equal(decimal.RequireFromString("30")))

	fixed := &models.Voucher{
		DiscountType:  models.DiscountFixedAmount,
		DiscountValue: decimal.RequireFromString("500"),
		Status:        models.VoucherStatusActive,
	}
	// never exceeds the total
	assert.True(t, DiscountFor(fixed, total, "USD").Equal(total))

	used := &models.Voucher{
		DiscountType:  models.DiscountFixedAmount,
		DiscountValue: decimal.RequireFromString("5"),
		Status:        models.VoucherStatusUsed,
	}
	assert.True(t, DiscountFor(used, total, "USD").IsZero())
}
