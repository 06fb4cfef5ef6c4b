package domain

import "context"

// CustomerRepo is implemented by every storage backend. Implementations own
// the uniqueness and referential rules: Create and Update return
// ErrDuplicateTaxID, Delete returns ErrCustomerHasPurchases.
type CustomerRepo interface {
	List(ctx context.Context) ([]Customer, error)
	Search(ctx context.Context, term string) ([]Customer, error)
	FindByID(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id string) error
}

// PurchaseRepo returns ErrCustomerNotFound from Create and Update when the
// owning customer does not exist.
type PurchaseRepo interface {
	List(ctx context.Context) ([]PurchaseView, error)
	Search(ctx context.Context, term string) ([]PurchaseView, error)
	FindByID(ctx context.Context, id string) (*PurchaseView, error)
	Create(ctx context.Context, p *Purchase) error
	Update(ctx context.Context, p *Purchase) error
	Delete(ctx context.Context, id string) error
}

type StatsRepo interface {
	Stats(ctx context.Context) (Stats, error)
}
