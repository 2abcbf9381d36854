package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "got %s, want %s", got, want)
}

var (
	washIron = model.ServiceLine{
		Name:        "Cuci Setrika",
		Duration:    model.Duration{Value: 2, Unit: model.DurationDays},
		PricingMode: model.PricingKilo,
		KiloPrice:   dec("8000"),
	}
	bedCover = model.ServiceLine{
		Name:        "Bed Cover",
		Duration:    model.Duration{Value: 3, Unit: model.DurationDays},
		PricingMode: model.PricingUnit,
		UnitPrice:   dec("25000"),
	}
	express = model.ServiceLine{
		Name:        "Express",
		Duration:    model.Duration{Value: 6, Unit: model.DurationHours},
		PricingMode: model.PricingCombined,
		UnitPrice:   dec("5000"),
		KiloPrice:   dec("12000"),
	}
)

func TestComputeFinish(t *testing.T) {
	start := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration model.Duration
		start    time.Time
		want     time.Time
	}{
		{
			name:     "hours cross day boundary",
			duration: model.Duration{Value: 6, Unit: model.DurationHours},
			start:    start,
			want:     time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name:     "days",
			duration: model.Duration{Value: 3, Unit: model.DurationDays},
			start:    start,
			want:     time.Date(2024, 1, 4, 22, 0, 0, 0, time.UTC),
		},
		{
			name:     "days roll over leap february",
			duration: model.Duration{Value: 2, Unit: model.DurationDays},
			start:    time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "days roll over year",
			duration: model.Duration{Value: 1, Unit: model.DurationDays},
			start:    time.Date(2023, 12, 31, 8, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, ComputeFinish(tt.duration, tt.start).Equal(tt.want))
		})
	}
}

func TestComputeFinish_Monotonic(t *testing.T) {
	start := time.Date(2024, 3, 30, 23, 59, 0, 0, time.UTC)

	prev := start
	for v := 1; v <= 60; v++ {
		finish := ComputeFinish(model.Duration{Value: v, Unit: model.DurationDays}, start)
		require.True(t, finish.After(prev), "value %d", v)
		prev = finish
	}
}

func TestComputeOrderCompletion(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Nil(t, ComputeOrderCompletion(nil, start))

	lines := []model.OrderLine{
		{Service: express},
		{Service: bedCover},
		{Service: washIron},
	}

	got := ComputeOrderCompletion(lines, start)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)))

	// Без самой долгой строки срок не может стать позже.
	without := ComputeOrderCompletion([]model.OrderLine{lines[0], lines[2]}, start)
	require.NotNil(t, without)
	assert.False(t, without.After(*got))
	assert.True(t, without.Equal(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)))
}

func TestOrderCompletion_DurationTypesDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.DurationTypesEnabled = false
	opts.DefaultDuration = model.Duration{Value: 1, Unit: model.DurationDays}
	c := NewCalculator(opts)

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	got := c.OrderCompletion([]model.OrderLine{{Service: bedCover}, {Service: express}}, start)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)))
}

func TestDiscountFromManualAmount(t *testing.T) {
	amount, err := DiscountFromManualAmount(dec("5000"), dec("50000"))
	require.NoError(t, err)
	assertDec(t, "5000", amount)

	_, err = DiscountFromManualAmount(dec("60000"), dec("50000"))
	assert.ErrorIs(t, err, ErrDiscountExceedsTotal)
	assert.True(t, IsValidation(err))

	_, err = DiscountFromManualAmount(decimal.Zero, dec("50000"))
	assert.ErrorIs(t, err, ErrNonPositiveDiscount)
}

func TestDiscountFromPoints_Linear(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	for p := int64(0); p <= 1000; p += 37 {
		assertDec(t, decimal.NewFromInt(p*100).String(), c.DiscountFromPoints(p))
	}

	opts := DefaultOptions()
	opts.ConversionRate = dec("250")
	assertDec(t, "5000", NewCalculator(opts).DiscountFromPoints(20))
}

func TestValidateRedemption(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	tests := []struct {
		name      string
		points    int64
		available int64
		total     string
		wantErr   error
	}{
		{name: "valid", points: 20, available: 30, total: "10000"},
		{name: "zero points", points: 0, available: 30, total: "10000", wantErr: ErrNonPositivePoints},
		{name: "negative points", points: -5, available: 30, total: "10000", wantErr: ErrNonPositivePoints},
		{name: "insufficient", points: 50, available: 30, total: "100000", wantErr: ErrInsufficientPoints},
		{name: "exceeds total", points: 20, available: 30, total: "1500", wantErr: ErrDiscountExceedsTotal},
		{name: "exactly total", points: 15, available: 30, total: "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateRedemption(tt.points, tt.available, dec(tt.total))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRedemption_ReportsAvailable(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	err := c.ValidateRedemption(50, 30, dec("100000"))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.NotNil(t, vErr.Available)
	assert.Equal(t, int64(30), *vErr.Available)
	assert.Contains(t, err.Error(), "available 30")
}

func TestValidateRedemption_RejectsOverdraft(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	for available := int64(0); available < 20; available++ {
		for p := available + 1; p < 25; p++ {
			assert.ErrorIs(t, c.ValidateRedemption(p, available, dec("1000000")), ErrInsufficientPoints)
		}
	}
}

func TestValidateRedemption_PointsDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.PointsEnabled = false

	err := NewCalculator(opts).ValidateRedemption(1, 10, dec("10000"))
	assert.ErrorIs(t, err, ErrPointsDisabled)
}

func TestOrderTotal_Floor(t *testing.T) {
	assertDec(t, "100000", OrderTotal(dec("100000"), decimal.Zero))
	assertDec(t, "8000", OrderTotal(dec("10000"), dec("2000")))
	assertDec(t, "0", OrderTotal(dec("10000"), dec("10000")))
	assertDec(t, "0", OrderTotal(dec("10000"), dec("25000")))
	assertDec(t, "0", OrderTotal(decimal.Zero, decimal.Zero))
}

func TestChange(t *testing.T) {
	change, err := Change(dec("100000"), dec("100000"))
	require.NoError(t, err)
	assertDec(t, "0", change)

	change, err = Change(dec("50000"), dec("26400"))
	require.NoError(t, err)
	assertDec(t, "23600", change)

	_, err = Change(dec("20000"), dec("26400"))
	require.ErrorIs(t, err, ErrInsufficientCash)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.NotNil(t, vErr.Shortfall)
	assertDec(t, "6400", *vErr.Shortfall)
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name string
		line model.OrderLine
		want string
	}{
		{
			name: "unit",
			line: model.OrderLine{Service: bedCover, Quantity: dec("2")},
			want: "50000",
		},
		{
			name: "kilo raw weight",
			line: model.OrderLine{Service: washIron, Weight: dec("3.25")},
			want: "26000",
		},
		{
			name: "combined with items",
			line: model.OrderLine{
				Service: express,
				Weight:  dec("2"),
				Items: []model.SubLine{
					{Name: "Jas", PricePerUnit: dec("15000"), Quantity: dec("1")},
					{Name: "Kemeja", PricePerUnit: dec("7000"), Quantity: dec("3")},
				},
			},
			want: "60000",
		},
		{
			name: "combined without items",
			line: model.OrderLine{Service: express, Weight: dec("1.5"), Quantity: dec("2")},
			want: "28000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, LineTotal(tt.line))
		})
	}
}

func TestNormalizeLine(t *testing.T) {
	l := NormalizeLine(model.OrderLine{
		Service:  express,
		Weight:   dec("3.25"),
		Quantity: dec("1.2"),
		Items:    []model.SubLine{{Name: "Jas", PricePerUnit: dec("1000"), Quantity: dec("0.5")}},
	})

	assertDec(t, "3.3", l.Weight)
	assertDec(t, "2", l.Quantity)
	assertDec(t, "1", l.Items[0].Quantity)
}

func TestValidateLine(t *testing.T) {
	tests := []struct {
		name  string
		line  model.OrderLine
		valid bool
	}{
		{name: "unit ok", line: model.OrderLine{Service: bedCover, Quantity: dec("1")}, valid: true},
		{name: "unit zero quantity", line: model.OrderLine{Service: bedCover}, valid: false},
		{name: "kilo ok", line: model.OrderLine{Service: washIron, Weight: dec("0.5")}, valid: true},
		{name: "kilo no weight", line: model.OrderLine{Service: washIron}, valid: false},
		{name: "combined ok", line: model.OrderLine{Service: express, Quantity: dec("1")}, valid: true},
		{name: "combined negative weight", line: model.OrderLine{Service: express, Quantity: dec("1"), Weight: dec("-1")}, valid: false},
		{
			name: "kilo without price",
			line: model.OrderLine{
				Service: model.ServiceLine{Name: "x", Duration: washIron.Duration, PricingMode: model.PricingKilo},
				Weight:  dec("1"),
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLine(tt.line)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidLine)
		})
	}
}

func TestPointsEarned(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	lines := []model.OrderLine{
		{Service: washIron, Weight: dec("3.6")},
		{Service: bedCover, Quantity: dec("2")},
		{Service: express, Weight: dec("1.2"), Items: []model.SubLine{{Quantity: dec("2")}, {Quantity: dec("1")}}},
	}

	// 4 (вес 3.6) + 2 + 1 (вес 1.2) + 3 позиции
	assert.Equal(t, int64(10), c.PointsEarned(lines))

	opts := DefaultOptions()
	opts.PointsEnabled = false
	assert.Zero(t, NewCalculator(opts).PointsEarned(lines))
}

func TestQuote_Checkout(t *testing.T) {
	c := NewCalculator(DefaultOptions())
	dropOff := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)

	t.Run("exact cash", func(t *testing.T) {
		cash := dec("100000")
		q, err := c.Quote(QuoteRequest{
			Lines:        []model.OrderLine{{Service: bedCover, Quantity: dec("4")}},
			DropOffAt:    dropOff,
			CashReceived: &cash,
		})
		require.NoError(t, err)
		assertDec(t, "100000", q.TotalAmount)
		require.NotNil(t, q.ChangeAmount)
		assertDec(t, "0", *q.ChangeAmount)
	})

	t.Run("manual discount exceeds subtotal", func(t *testing.T) {
		_, err := c.Quote(QuoteRequest{
			Lines:     []model.OrderLine{{Service: bedCover, Quantity: dec("2")}},
			DropOffAt: dropOff,
			Discount:  Discount{Mode: DiscountManual, Amount: dec("60000")},
		})
		assert.ErrorIs(t, err, ErrDiscountExceedsTotal)
	})

	t.Run("insufficient points", func(t *testing.T) {
		_, err := c.Quote(QuoteRequest{
			Lines:           []model.OrderLine{{Service: bedCover, Quantity: dec("4")}},
			DropOffAt:       dropOff,
			Discount:        Discount{Mode: DiscountPoints, Points: 50},
			AvailablePoints: 30,
		})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.ErrorIs(t, err, ErrInsufficientPoints)
		assert.Equal(t, int64(30), *vErr.Available)
	})

	t.Run("points discount", func(t *testing.T) {
		tenK := model.ServiceLine{
			Name:        "Sepatu",
			Duration:    model.Duration{Value: 2, Unit: model.DurationDays},
			PricingMode: model.PricingUnit,
			UnitPrice:   dec("10000"),
		}
		q, err := c.Quote(QuoteRequest{
			Lines:           []model.OrderLine{{Service: tenK, Quantity: dec("1")}},
			DropOffAt:       dropOff,
			Discount:        Discount{Mode: DiscountPoints, Points: 20},
			AvailablePoints: 25,
		})
		require.NoError(t, err)
		assertDec(t, "2000", q.DiscountAmount)
		assert.Equal(t, int64(20), q.PointsRedeemed)
		assertDec(t, "8000", q.TotalAmount)
	})

	t.Run("weight rounded before pricing", func(t *testing.T) {
		q, err := c.Quote(QuoteRequest{
			Lines:     []model.OrderLine{{Service: washIron, Weight: dec("3.25")}},
			DropOffAt: dropOff,
		})
		require.NoError(t, err)
		assertDec(t, "3.3", q.Lines[0].Weight)
		assertDec(t, "26400", q.Lines[0].LineTotal)
		assertDec(t, "26400", q.Subtotal)
	})

	t.Run("completion crosses midnight", func(t *testing.T) {
		q, err := c.Quote(QuoteRequest{
			Lines:     []model.OrderLine{{Service: express, Weight: dec("1"), Quantity: dec("1")}},
			DropOffAt: dropOff,
		})
		require.NoError(t, err)
		require.NotNil(t, q.EstimatedCompletion)
		assert.True(t, q.EstimatedCompletion.Equal(time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)))
	})
}

func TestQuote_Errors(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	_, err := c.Quote(QuoteRequest{})
	assert.ErrorIs(t, err, ErrInvalidLine)

	cash := dec("1000")
	_, err = c.Quote(QuoteRequest{
		Lines:        []model.OrderLine{{Service: bedCover, Quantity: dec("1")}},
		CashReceived: &cash,
	})
	assert.ErrorIs(t, err, ErrInsufficientCash)

	_, err = c.Quote(QuoteRequest{
		Lines:    []model.OrderLine{{Service: bedCover, Quantity: dec("1")}},
		Discount: Discount{Mode: "coupon"},
	})
	assert.ErrorIs(t, err, ErrUnknownDiscountMode)
}
