package relational

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
)

type CustomerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	var rows []customerRow
	if err := r.db.WithContext(ctx).Order("LOWER(name) ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate("list customers", err, nil)
	}
	return toCustomers(rows), nil
}

func (r *CustomerRepo) Search(ctx context.Context, term string) ([]domain.Customer, error) {
	like := "%" + term + "%"
	cond := r.db.Where("LOWER(name) LIKE LOWER(?)", like)
	if d := format.Digits(term); d != "" {
		cond = cond.Or("tax_id LIKE ?", "%"+d+"%").Or("phone LIKE ?", "%"+d+"%")
	}
	var rows []customerRow
	if err := r.db.WithContext(ctx).Where(cond).Order("LOWER(name) ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate("search customers", err, nil)
	}
	return toCustomers(rows), nil
}

func (r *CustomerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var row customerRow
	if err := r.db.WithContext(ctx).Take(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, translate("find customer", err, nil)
	}
	c := row.toDomain()
	return &c, nil
}

// Create checks the tax id up front for a clean error; the unique index
// settles concurrent inserts.
func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	row := fromCustomer(c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTaxIDFree(tx, c.TaxID, ""); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	return translate("create customer", err, nil)
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	row := fromCustomer(c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, c.ID); err != nil {
			return err
		}
		if err := ensureTaxIDFree(tx, c.TaxID, c.ID); err != nil {
			return err
		}
		return tx.Model(&customerRow{ID: c.ID}).
			Select("name", "tax_id", "phone", "updated_at").
			Updates(&row).Error
	})
	return translate("update customer", err, nil)
}

// Delete refuses while purchases reference the customer. The foreign key
// (ON DELETE RESTRICT) rejects a purchase inserted after the count.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCustomer(tx, id); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&purchaseRow{}).Where("customer_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrCustomerHasPurchases
		}
		return tx.Delete(&customerRow{}, "id = ?", id).Error
	})
	return translate("delete customer", err, domain.ErrCustomerHasPurchases)
}

// lockCustomer takes a row lock on postgres and mysql; sqlite ignores the
// locking clause and serialises writers on its own.
func lockCustomer(tx *gorm.DB, id string) error {
	var row customerRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Take(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrCustomerNotFound
	}
	return err
}

func ensureTaxIDFree(tx *gorm.DB, taxID, exceptID string) error {
	q := tx.Model(&customerRow{}).Where("tax_id = ?", taxID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrDuplicateTaxID
	}
	return nil
}

func toCustomers(rows []customerRow) []domain.Customer {
	out := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
