package httpserver

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
)

// Requests accept the same display forms the screens show, e.g.
// "123.456.789-00", "(11) 98765-4321", "R$ 1.234,56" or "01/05/2024".
type customerRequest struct {
	Name  *string `json:"name"`
	CPF   *string `json:"cpf"`
	Phone *string `json:"phone"`
}

func (r customerRequest) input() domain.CustomerInput {
	return domain.CustomerInput{Name: deref(r.Name), TaxID: deref(r.CPF), Phone: deref(r.Phone)}
}

func (r customerRequest) patch() domain.CustomerPatch {
	return domain.CustomerPatch{Name: r.Name, TaxID: r.CPF, Phone: r.Phone}
}

// purchaseRequest.Amount is either a JSON number or a string in the
// configured locale's currency format.
type purchaseRequest struct {
	Date          *string         `json:"date"`
	Amount        json.RawMessage `json:"amount"`
	PaymentMethod *string         `json:"payment_method"`
	CustomerID    *string         `json:"customer_id"`
}

func (r purchaseRequest) patch(loc format.Locale) (domain.PurchasePatch, error) {
	var p domain.PurchasePatch
	if r.Date != nil {
		d, err := loc.ParseDate(*r.Date)
		if err != nil {
			return p, domain.Invalid("date", "data inválida")
		}
		p.Date = &d
	}
	if raw := bytes.TrimSpace(r.Amount); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		amount, err := parseAmount(raw, loc)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if r.PaymentMethod != nil {
		m, ok := domain.ParsePaymentMethod(*r.PaymentMethod)
		if !ok {
			return p, domain.Invalid("payment_method", "forma de pagamento inválida")
		}
		p.PaymentMethod = &m
	}
	p.CustomerID = r.CustomerID
	return p, nil
}

func parseAmount(raw json.RawMessage, loc format.Locale) (decimal.Decimal, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, domain.Invalid("amount", "valor inválido")
		}
		return loc.ParseCurrency(s), nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, domain.Invalid("amount", "valor inválido")
	}
	return d, nil
}

// purchaseInput turns a fully decoded request into creation input; absent
// fields stay zero and fail validation downstream.
func purchaseInput(p domain.PurchasePatch) domain.PurchaseInput {
	var in domain.PurchaseInput
	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.PaymentMethod != nil {
		in.PaymentMethod = *p.PaymentMethod
	}
	if p.CustomerID != nil {
		in.CustomerID = *p.CustomerID
	}
	return in
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

type customerResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CPF          string    `json:"cpf"`
	CPFDisplay   string    `json:"cpf_display"`
	Phone        string    `json:"phone"`
	PhoneDisplay string    `json:"phone_display"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Server) customerDTO(c *domain.Customer) customerResponse {
	return customerResponse{
		ID:           c.ID,
		Name:         c.Name,
		CPF:          c.TaxID,
		CPFDisplay:   format.FormatTaxID(c.TaxID),
		Phone:        c.Phone,
		PhoneDisplay: format.FormatPhone(c.Phone),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type purchaseResponse struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"`
	DateDisplay        string    `json:"date_display"`
	Amount             string    `json:"amount"`
	AmountDisplay      string    `json:"amount_display"`
	PaymentMethod      string    `json:"payment_method"`
	PaymentMethodLabel string    `json:"payment_method_display"`
	CustomerID         string    `json:"customer_id"`
	CustomerName       string    `json:"customer_name"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (s *Server) purchaseDTO(v *domain.PurchaseView) purchaseResponse {
	return purchaseResponse{
		ID:                 v.ID,
		Date:               v.Date.Format("2006-01-02"),
		DateDisplay:        s.locale.FormatDate(v.Date),
		Amount:             v.Amount.StringFixed(2),
		AmountDisplay:      s.locale.FormatCurrency(v.Amount),
		PaymentMethod:      string(v.PaymentMethod),
		PaymentMethodLabel: v.PaymentMethod.Label(),
		CustomerID:         v.CustomerID,
		CustomerName:       v.CustomerName,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

type statsResponse struct {
	CustomerCount        int64  `json:"customer_count"`
	PurchaseCount        int64  `json:"purchase_count"`
	TotalRevenue         string `json:"total_revenue"`
	TotalRevenueDisplay  string `json:"total_revenue_display"`
	AverageTicket        string `json:"average_ticket"`
	AverageTicketDisplay string `json:"average_ticket_display"`
}

func (s *Server) statsDTO(st domain.Stats) statsResponse {
	return statsResponse{
		CustomerCount:        st.CustomerCount,
		PurchaseCount:        st.PurchaseCount,
		TotalRevenue:         st.TotalRevenue.StringFixed(2),
		TotalRevenueDisplay:  s.locale.FormatCurrency(st.TotalRevenue),
		AverageTicket:        st.AverageTicket.StringFixed(2),
		AverageTicketDisplay: s.locale.FormatCurrency(st.AverageTicket),
	}
}
