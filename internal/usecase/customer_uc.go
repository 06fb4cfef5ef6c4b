package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
)

type CustomerUC struct {
	Customers domain.CustomerRepo
}

func (uc *CustomerUC) List(ctx context.Context) ([]domain.Customer, error) {
	return uc.Customers.List(ctx)
}

// Search matches term against the name and, when term carries digits, against
// the CPF and phone digits. A blank term lists everything.
func (uc *CustomerUC) Search(ctx context.Context, term string) ([]domain.Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return uc.Customers.List(ctx)
	}
	return uc.Customers.Search(ctx, term)
}

func (uc *CustomerUC) Get(ctx context.Context, id string) (*domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrCustomerNotFound
	}
	return uc.Customers.FindByID(ctx, id)
}

func (uc *CustomerUC) Create(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	c := &domain.Customer{
		Name:  strings.TrimSpace(in.Name),
		TaxID: format.Digits(in.TaxID),
		Phone: format.Digits(in.Phone),
	}
	if err := validateCustomer(c); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := uc.Customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *CustomerUC) Update(ctx context.Context, id string, patch domain.CustomerPatch) (*domain.Customer, error) {
	c, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.TaxID != nil {
		c.TaxID = format.Digits(*patch.TaxID)
	}
	if patch.Phone != nil {
		c.Phone = format.Digits(*patch.Phone)
	}
	if err := validateCustomer(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	if err := uc.Customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete fails with domain.ErrCustomerHasPurchases while any purchase still
// points at the customer.
func (uc *CustomerUC) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrCustomerNotFound
	}
	return uc.Customers.Delete(ctx, id)
}

func validateCustomer(c *domain.Customer) error {
	if c.Name == "" {
		return domain.Invalid("name", "nome é obrigatório")
	}
	switch {
	case c.TaxID == "":
		return domain.Invalid("cpf", "CPF é obrigatório")
	case len(c.TaxID) != 11:
		return domain.Invalid("cpf", "CPF deve ter 11 dígitos")
	}
	switch {
	case c.Phone == "":
		return domain.Invalid("phone", "telefone é obrigatório")
	case len(c.Phone) != 10 && len(c.Phone) != 11:
		return domain.Invalid("phone", "telefone deve ter 10 ou 11 dígitos")
	}
	return nil
}
