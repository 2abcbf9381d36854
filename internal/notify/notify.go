// Package notify формирует тексты уведомлений клиентам на индонезийском языке.
package notify

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// FormatRupiah форматирует сумму в виде "Rp 100.000". Дробная часть отбрасывается.
func FormatRupiah(amount decimal.Decimal) string {
	p := message.NewPrinter(language.Indonesian)
	if amount.IsNegative() {
		return p.Sprintf("-Rp %d", amount.Neg().IntPart())
	}
	return p.Sprintf("Rp %d", amount.IntPart())
}

// FormatTime форматирует момент времени в зоне loc, например "18 Okt 2026 14:00".
func FormatTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2") + " " + months[t.Month()-1] + " " + t.Format("2006 15:04")
}

// ShortID возвращает первые восемь символов идентификатора заказа.
func ShortID(o *model.Order) string {
	id := o.ID.String()
	return strings.ToUpper(id[:8])
}

func customerName(o *model.Order) string {
	if o.CustomerName == "" {
		return "Pelanggan"
	}
	return o.CustomerName
}

func paymentLine(o *model.Order) string {
	if o.PaymentStatus == model.PaymentCompleted {
		return "Status pembayaran: Lunas"
	}
	return "Status pembayaran: Belum lunas"
}

// Message формирует текст уведомления вида kind по заказу.
func Message(kind model.NotificationKind, o *model.Order, loc *time.Location) string {
	p := message.NewPrinter(language.Indonesian)
	var b strings.Builder

	switch kind {
	case model.NotifyOrderCreated:
		b.WriteString(p.Sprintf("Halo %s, pesanan #%s sudah kami terima.\n", customerName(o), ShortID(o)))
		for _, l := range o.Lines {
			b.WriteString(p.Sprintf("- %s: %s\n", l.Service.Name, FormatRupiah(l.LineTotal)))
		}
		if o.DiscountAmount.IsPositive() {
			b.WriteString(p.Sprintf("Diskon: %s\n", FormatRupiah(o.DiscountAmount)))
		}
		b.WriteString(p.Sprintf("Total: %s\n", FormatRupiah(o.TotalAmount)))
		if o.EstimatedCompletion != nil {
			b.WriteString(p.Sprintf("Perkiraan selesai: %s\n", FormatTime(*o.EstimatedCompletion, loc)))
		}
		b.WriteString(paymentLine(o))
	case model.NotifyOrderReady:
		b.WriteString(p.Sprintf("Halo %s, pesanan #%s sudah selesai dan siap diambil.\n", customerName(o), ShortID(o)))
		if o.PaymentStatus != model.PaymentCompleted {
			b.WriteString(p.Sprintf("Mohon siapkan pembayaran sebesar %s.", FormatRupiah(o.TotalAmount)))
		} else {
			b.WriteString("Terima kasih.")
		}
	case model.NotifyOrderCompleted:
		b.WriteString(p.Sprintf("Terima kasih %s, pesanan #%s sudah diambil.", customerName(o), ShortID(o)))
		if o.PointsEarned > 0 {
			b.WriteString(p.Sprintf("\nAnda mendapatkan %d poin.", o.PointsEarned))
		}
	case model.NotifyPaymentReminder:
		b.WriteString(p.Sprintf("Halo %s, pesanan #%s belum dibayar.\nTotal tagihan: %s",
			customerName(o), ShortID(o), FormatRupiah(o.TotalAmount)))
	}

	return b.String()
}
