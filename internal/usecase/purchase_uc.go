package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/comprarapida/internal/domain"
)

type PurchaseUC struct {
	Purchases domain.PurchaseRepo
	Reports   domain.StatsRepo
}

func (uc *PurchaseUC) List(ctx context.Context) ([]domain.PurchaseView, error) {
	return uc.Purchases.List(ctx)
}

// Search matches the payment method code or the customer name.
func (uc *PurchaseUC) Search(ctx context.Context, term string) ([]domain.PurchaseView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return uc.Purchases.List(ctx)
	}
	return uc.Purchases.Search(ctx, term)
}

func (uc *PurchaseUC) Get(ctx context.Context, id string) (*domain.PurchaseView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrPurchaseNotFound
	}
	return uc.Purchases.FindByID(ctx, id)
}

func (uc *PurchaseUC) Create(ctx context.Context, in domain.PurchaseInput) (*domain.Purchase, error) {
	p := &domain.Purchase{
		Date:          domain.DateOnly(in.Date),
		Amount:        in.Amount.Round(2),
		PaymentMethod: in.PaymentMethod,
		CustomerID:    strings.TrimSpace(in.CustomerID),
	}
	if err := validatePurchase(p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := uc.Purchases.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *PurchaseUC) Update(ctx context.Context, id string, patch domain.PurchasePatch) (*domain.Purchase, error) {
	v, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := v.Purchase
	if patch.Date != nil {
		p.Date = domain.DateOnly(*patch.Date)
	}
	if patch.Amount != nil {
		p.Amount = patch.Amount.Round(2)
	}
	if patch.PaymentMethod != nil {
		p.PaymentMethod = *patch.PaymentMethod
	}
	if patch.CustomerID != nil {
		p.CustomerID = strings.TrimSpace(*patch.CustomerID)
	}
	if err := validatePurchase(&p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := uc.Purchases.Update(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (uc *PurchaseUC) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrPurchaseNotFound
	}
	return uc.Purchases.Delete(ctx, id)
}

// Stats aggregates over the full data set on every call.
func (uc *PurchaseUC) Stats(ctx context.Context) (domain.Stats, error) {
	return uc.Reports.Stats(ctx)
}

func validatePurchase(p *domain.Purchase) error {
	if p.Date.IsZero() {
		return domain.Invalid("date", "data é obrigatória")
	}
	if !p.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !p.PaymentMethod.Valid() {
		return domain.Invalid("payment_method", "forma de pagamento inválida")
	}
	if p.CustomerID == "" {
		return domain.Invalid("customer_id", "cliente é obrigatório")
	}
	return nil
}
