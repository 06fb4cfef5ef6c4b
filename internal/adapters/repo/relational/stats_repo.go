package relational

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/comprarapida/internal/domain"
)

type StatsRepo struct{ db *gorm.DB }

func NewStatsRepo(db *gorm.DB) *StatsRepo { return &StatsRepo{db: db} }

// Stats reads all three aggregates in one statement so they describe the
// same snapshot. Stored amounts have two decimals, so the sum is rounded back
// to cents; sqlite adds NUMERIC columns as floats.
func (r *StatsRepo) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		customers int64
		purchases int64
		revenue   decimal.Decimal
	)
	row := r.db.WithContext(ctx).Raw(
		`SELECT (SELECT COUNT(*) FROM customers), COUNT(*), COALESCE(SUM(amount), 0) FROM purchases`,
	).Row()
	if err := row.Scan(&customers, &purchases, &revenue); err != nil {
		return domain.Stats{}, translate("stats", err, nil)
	}
	return domain.NewStats(customers, purchases, revenue.Round(2)), nil
}
