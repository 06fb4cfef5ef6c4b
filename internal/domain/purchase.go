package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

// Stored codes match the ones written by the browser front-end.
const (
	PaymentCash PaymentMethod = "dinheiro"
	PaymentCard PaymentMethod = "cartao"
	PaymentPix  PaymentMethod = "pix"
)

var paymentAliases = map[string]PaymentMethod{
	"dinheiro":         PaymentCash,
	"cash":             PaymentCash,
	"cartao":           PaymentCard,
	"cartão":           PaymentCard,
	"card":             PaymentCard,
	"pix":              PaymentPix,
	"instant-transfer": PaymentPix,
	"instant_transfer": PaymentPix,
}

// ParsePaymentMethod accepts the stored codes and their English aliases.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m, ok := paymentAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix:
		return true
	}
	return false
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Dinheiro"
	case PaymentCard:
		return "Cartão"
	case PaymentPix:
		return "PIX"
	}
	return string(m)
}

type Purchase struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerID    string          `json:"customer_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PurchaseView is a purchase with its owner's current name, resolved at read time.
type PurchaseView struct {
	Purchase
	CustomerName string `json:"customer_name"`
}

type PurchaseInput struct {
	Date          time.Time
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod
	CustomerID    string
}

type PurchasePatch struct {
	Date          *time.Time
	Amount        *decimal.Decimal
	PaymentMethod *PaymentMethod
	CustomerID    *string
}

// DateOnly drops the time of day, keeping the calendar day as seen in t's location.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
