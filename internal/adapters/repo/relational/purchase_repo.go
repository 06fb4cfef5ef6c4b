package relational

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/comprarapida/internal/domain"
)

type PurchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepo(db *gorm.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// views selects purchases joined with the current customer name.
func (r *PurchaseRepo) views(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("purchases AS p").
		Select("p.id, p.date, p.amount, p.payment_method, p.customer_id, c.name AS customer_name, p.created_at, p.updated_at").
		Joins("JOIN customers AS c ON c.id = p.customer_id")
}

func (r *PurchaseRepo) List(ctx context.Context) ([]domain.PurchaseView, error) {
	var rows []purchaseViewRow
	if err := r.views(ctx).Order("p.date DESC, p.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, translate("list purchases", err, nil)
	}
	return toViews(rows), nil
}

func (r *PurchaseRepo) Search(ctx context.Context, term string) ([]domain.PurchaseView, error) {
	like := "%" + term + "%"
	var rows []purchaseViewRow
	err := r.views(ctx).
		Where("LOWER(p.payment_method) LIKE LOWER(?) OR LOWER(c.name) LIKE LOWER(?)", like, like).
		Order("p.date DESC, p.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("search purchases", err, nil)
	}
	return toViews(rows), nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, id string) (*domain.PurchaseView, error) {
	var rows []purchaseViewRow
	if err := r.views(ctx).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, translate("find purchase", err, nil)
	}
	if len(rows) == 0 {
		return nil, domain.ErrPurchaseNotFound
	}
	v := rows[0].toDomain()
	return &v, nil
}

func (r *PurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	row := fromPurchase(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, p.CustomerID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	return translate("create purchase", err, domain.ErrCustomerNotFound)
}

func (r *PurchaseRepo) Update(ctx context.Context, p *domain.Purchase) error {
	row := fromPurchase(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&purchaseRow{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPurchaseNotFound
		}
		if err := lockCustomer(tx, p.CustomerID); err != nil {
			return err
		}
		return tx.Model(&purchaseRow{ID: p.ID}).
			Omit(clause.Associations).
			Select("date", "amount", "payment_method", "customer_id", "updated_at").
			Updates(&row).Error
	})
	return translate("update purchase", err, domain.ErrCustomerNotFound)
}

func (r *PurchaseRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&purchaseRow{}, "id = ?", id)
	if res.Error != nil {
		return translate("delete purchase", res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPurchaseNotFound
	}
	return nil
}

func toViews(rows []purchaseViewRow) []domain.PurchaseView {
	out := make([]domain.PurchaseView, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
