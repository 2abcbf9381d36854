package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		amount decimal.Decimal
		want   string
	}{
		{decimal.NewFromInt(0), "Rp 0"},
		{decimal.NewFromInt(8000), "Rp 8.000"},
		{decimal.NewFromInt(100000), "Rp 100.000"},
		{decimal.NewFromInt(1250000), "Rp 1.250.000"},
		{decimal.RequireFromString("26400.75"), "Rp 26.400"},
		{decimal.NewFromInt(-6400), "-Rp 6.400"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRupiah(tt.amount))
		})
	}
}

func TestFormatTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	ts := time.Date(2026, time.October, 18, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, "18 Okt 2026 14:00", FormatTime(ts, loc))
}

func testOrder() *model.Order {
	completion := time.Date(2026, time.October, 18, 14, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:           uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000001"),
		CustomerName: "Budi",
		Lines: []model.OrderLine{
			{Service: model.ServiceLine{Name: "Cuci Kering"}, LineTotal: decimal.NewFromInt(24000)},
		},
		DiscountAmount:      decimal.NewFromInt(4000),
		TotalAmount:         decimal.NewFromInt(20000),
		EstimatedCompletion: &completion,
		PaymentStatus:       model.PaymentPending,
	}
}

func TestMessage_OrderCreated(t *testing.T) {
	msg := Message(model.NotifyOrderCreated, testOrder(), time.UTC)

	assert.Contains(t, msg, "Halo Budi, pesanan #3F2A9C1E")
	assert.Contains(t, msg, "- Cuci Kering: Rp 24.000")
	assert.Contains(t, msg, "Diskon: Rp 4.000")
	assert.Contains(t, msg, "Total: Rp 20.000")
	assert.Contains(t, msg, "Perkiraan selesai: 18 Okt 2026 14:00")
	assert.True(t, strings.HasSuffix(msg, "Belum lunas"))
}

func TestMessage_ReadyAndCompleted(t *testing.T) {
	o := testOrder()

	ready := Message(model.NotifyOrderReady, o, time.UTC)
	assert.Contains(t, ready, "siap diambil")
	assert.Contains(t, ready, "Rp 20.000")

	o.PaymentStatus = model.PaymentCompleted
	o.PointsEarned = 3
	done := Message(model.NotifyOrderCompleted, o, time.UTC)
	assert.Contains(t, done, "sudah diambil")
	assert.Contains(t, done, "3 poin")
}

func TestMessage_Reminder(t *testing.T) {
	o := testOrder()
	o.CustomerName = ""

	msg := Message(model.NotifyPaymentReminder, o, time.UTC)
	assert.Contains(t, msg, "Halo Pelanggan")
	assert.Contains(t, msg, "Total tagihan: Rp 20.000")
}
