package embedded

import (
	"context"
	"slices"
	"strings"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
)

type CustomerRepo struct{ db *DB }

func NewCustomerRepo(db *DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	return r.filter(ctx, func(domain.Customer) bool { return true })
}

// Search matches the name case-insensitively and, when the term carries
// digits, the CPF and phone digits.
func (r *CustomerRepo) Search(ctx context.Context, term string) ([]domain.Customer, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	digits := format.Digits(term)
	return r.filter(ctx, func(c domain.Customer) bool {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return true
		}
		return digits != "" && (strings.Contains(c.TaxID, digits) || strings.Contains(c.Phone, digits))
	})
}

func (r *CustomerRepo) filter(ctx context.Context, keep func(domain.Customer) bool) ([]domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(recs))
	for _, rec := range recs {
		if c := rec.toCustomer(); keep(c) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Customer) int {
		if n := r.db.collator.CompareString(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *CustomerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	i := indexCustomer(recs, id)
	if i < 0 {
		return nil, domain.ErrCustomerNotFound
	}
	c := recs[i].toCustomer()
	return &c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadCustomers(ctx)
	if err != nil {
		return err
	}
	if taxIDTaken(recs, c.TaxID, "") {
		return domain.ErrDuplicateTaxID
	}
	recs = append(recs, toCustomerRecord(c))
	return r.db.save(ctx, CustomersKey, recs)
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadCustomers(ctx)
	if err != nil {
		return err
	}
	i := indexCustomer(recs, c.ID)
	if i < 0 {
		return domain.ErrCustomerNotFound
	}
	if taxIDTaken(recs, c.TaxID, c.ID) {
		return domain.ErrDuplicateTaxID
	}
	rec := toCustomerRecord(c)
	rec.CreatedAt = recs[i].CreatedAt
	recs[i] = rec
	return r.db.save(ctx, CustomersKey, recs)
}

// Delete refuses to remove a customer that still owns purchases. The check
// and the write happen under the same lock.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recs, err := r.db.loadCustomers(ctx)
	if err != nil {
		return err
	}
	i := indexCustomer(recs, id)
	if i < 0 {
		return domain.ErrCustomerNotFound
	}
	purchases, err := r.db.loadPurchases(ctx)
	if err != nil {
		return err
	}
	for _, p := range purchases {
		if p.ClienteID == id {
			return domain.ErrCustomerHasPurchases
		}
	}
	recs = slices.Delete(recs, i, i+1)
	return r.db.save(ctx, CustomersKey, recs)
}

func indexCustomer(recs []customerRecord, id string) int {
	return slices.IndexFunc(recs, func(rec customerRecord) bool { return rec.ID == id })
}

func taxIDTaken(recs []customerRecord, taxID, exceptID string) bool {
	want := format.Digits(taxID)
	for _, rec := range recs {
		if rec.ID != exceptID && format.Digits(rec.CPF) == want {
			return true
		}
	}
	return false
}
