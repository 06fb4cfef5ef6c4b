package embedded

import (
	"context"
	"slices"
	"strings"

	"github.com/phenrril/comprarapida/internal/domain"
)

type PurchaseRepo struct{ db *DB }

func NewPurchaseRepo(db *DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

func (r *PurchaseRepo) List(ctx context.Context) ([]domain.PurchaseView, error) {
	return r.filter(ctx, func(domain.PurchaseView) bool { return true })
}

func (r *PurchaseRepo) Search(ctx context.Context, term string) ([]domain.PurchaseView, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	return r.filter(ctx, func(v domain.PurchaseView) bool {
		return strings.Contains(string(v.PaymentMethod), needle) ||
			strings.Contains(strings.ToLower(v.CustomerName), needle)
	})
}

func (r *PurchaseRepo) filter(ctx context.Context, keep func(domain.PurchaseView) bool) ([]domain.PurchaseView, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	views, err := r.views(ctx)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.PurchaseView) int {
		if n := b.Date.Compare(a.Date); n != 0 {
			return n
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// views joins every purchase with the current name of its customer.
func (r *PurchaseRepo) views(ctx context.Context) ([]domain.PurchaseView, error) {
	purchases, err := r.db.loadPurchases(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := r.db.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Nome
	}
	out := make([]domain.PurchaseView, 0, len(purchases))
	for _, rec := range purchases {
		out = append(out, domain.PurchaseView{Purchase: rec.toPurchase(), CustomerName: names[rec.ClienteID]})
	}
	return out, nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, id string) (*domain.PurchaseView, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	views, err := r.views(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, domain.ErrPurchaseNotFound
}

func (r *PurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.requireCustomer(ctx, p.CustomerID); err != nil {
		return err
	}
	recs, err := r.db.loadPurchases(ctx)
	if err != nil {
		return err
	}
	recs = append(recs, toPurchaseRecord(p))
	return r.db.save(ctx, PurchasesKey, recs)
}

func (r *PurchaseRepo) Update(ctx context.Context, p *domain.Purchase) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadPurchases(ctx)
	if err != nil {
		return err
	}
	i := indexPurchase(recs, p.ID)
	if i < 0 {
		return domain.ErrPurchaseNotFound
	}
	if err := r.requireCustomer(ctx, p.CustomerID); err != nil {
		return err
	}
	rec := toPurchaseRecord(p)
	rec.CreatedAt = recs[i].CreatedAt
	recs[i] = rec
	return r.db.save(ctx, PurchasesKey, recs)
}

func (r *PurchaseRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadPurchases(ctx)
	if err != nil {
		return err
	}
	i := indexPurchase(recs, id)
	if i < 0 {
		return domain.ErrPurchaseNotFound
	}
	recs = slices.Delete(recs, i, i+1)
	return r.db.save(ctx, PurchasesKey, recs)
}

func (r *PurchaseRepo) requireCustomer(ctx context.Context, id string) error {
	customers, err := r.db.loadCustomers(ctx)
	if err != nil {
		return err
	}
	if indexCustomer(customers, id) < 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func indexPurchase(recs []purchaseRecord, id string) int {
	return slices.IndexFunc(recs, func(rec purchaseRecord) bool { return rec.ID == id })
}
