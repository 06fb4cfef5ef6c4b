package embedded

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/phenrril/comprarapida/internal/domain"
)

type StatsRepo struct{ db *DB }

func NewStatsRepo(db *DB) *StatsRepo { return &StatsRepo{db: db} }

func (r *StatsRepo) Stats(ctx context.Context) (domain.Stats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	customers, err := r.db.loadCustomers(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	purchases, err := r.db.loadPurchases(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	total := decimal.Zero
	for _, rec := range purchases {
		total = total.Add(rec.toPurchase().Amount)
	}
	return domain.NewStats(int64(len(customers)), int64(len(purchases)), total), nil
}
