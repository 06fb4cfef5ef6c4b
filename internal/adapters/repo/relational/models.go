package relational

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/comprarapida/internal/domain"
)

type customerRow struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"size:200;not null;index"`
	TaxID     string `gorm:"size:11;not null;uniqueIndex:idx_customers_tax_id"`
	Phone     string `gorm:"size:11;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (customerRow) TableName() string { return "customers" }

type purchaseRow struct {
	ID            string          `gorm:"type:varchar(36);primaryKey"`
	Date          time.Time       `gorm:"type:date;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_purchases_amount_positive,amount > 0"`
	PaymentMethod string          `gorm:"size:20;not null;index"`
	CustomerID    string          `gorm:"type:varchar(36);not null;index"`
	Customer      *customerRow    `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (purchaseRow) TableName() string { return "purchases" }

// purchaseViewRow is the projection of a purchase joined with its customer.
type purchaseViewRow struct {
	ID            string
	Date          time.Time
	Amount        decimal.Decimal
	PaymentMethod string
	CustomerID    string
	CustomerName  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Migrate creates or extends the tables with their constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&customerRow{}, &purchaseRow{}); err != nil {
		return domain.Unavailable("migrate", err)
	}
	return nil
}

func fromCustomer(c *domain.Customer) customerRow {
	return customerRow{
		ID:        c.ID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r customerRow) toDomain() domain.Customer {
	return domain.Customer{
		ID:        r.ID,
		Name:      r.Name,
		TaxID:     r.TaxID,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func fromPurchase(p *domain.Purchase) purchaseRow {
	return purchaseRow{
		ID:            p.ID,
		Date:          p.Date,
		Amount:        p.Amount,
		PaymentMethod: string(p.PaymentMethod),
		CustomerID:    p.CustomerID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r purchaseViewRow) toDomain() domain.PurchaseView {
	return domain.PurchaseView{
		Purchase: domain.Purchase{
			ID:            r.ID,
			Date:          domain.DateOnly(r.Date.UTC()),
			Amount:        r.Amount,
			PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
			CustomerID:    r.CustomerID,
			CreatedAt:     r.CreatedAt.UTC(),
			UpdatedAt:     r.UpdatedAt.UTC(),
		},
		CustomerName: r.CustomerName,
	}
}
