package domain

import "github.com/shopspring/decimal"

type Stats struct {
	CustomerCount int64           `json:"customer_count"`
	PurchaseCount int64           `json:"purchase_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

// NewStats derives the average ticket; it is zero when there are no purchases.
func NewStats(customers, purchases int64, revenue decimal.Decimal) Stats {
	avg := decimal.Zero
	if purchases > 0 {
		avg = revenue.Div(decimal.NewFromInt(purchases))
	}
	return Stats{
		CustomerCount: customers,
		PurchaseCount: purchases,
		TotalRevenue:  revenue,
		AverageTicket: avg,
	}
}
