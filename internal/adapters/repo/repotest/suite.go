// Package repotest holds the behavioural suite every storage backend must
// pass. Backends call Run from their own tests with a constructor that
// returns a fresh, empty store.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/usecase"
)

type Backend struct {
	Customers domain.CustomerRepo
	Purchases domain.PurchaseRepo
	Stats     domain.StatsRepo
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	customers *usecase.CustomerUC
	purchases *usecase.PurchaseUC
}

func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	cases := []struct {
		name string
		fn   func(f *fixture)
	}{
		{"CreateThenList", testCreateThenList},
		{"DuplicateTaxIDIgnoresPunctuation", testDuplicateTaxID},
		{"UpdateKeepsTaxIDUnique", testUpdateTaxID},
		{"CustomerNotFound", testCustomerNotFound},
		{"SearchCustomers", testSearchCustomers},
		{"DeleteGuardedByPurchases", testDeleteGuarded},
		{"PurchaseRequiresCustomer", testPurchaseRequiresCustomer},
		{"RejectsNonPositiveAmounts", testNonPositiveAmounts},
		{"PurchaseViewUsesCurrentName", testViewName},
		{"PurchasesNewestFirst", testPurchaseOrder},
		{"SearchPurchases", testSearchPurchases},
		{"UpdateAndDeletePurchase", testUpdateDeletePurchase},
		{"StatsEmpty", testStatsEmpty},
		{"StatsAggregates", testStatsAggregates},
		{"StatsKeepCents", testStatsCents},
		{"SearchFoldsAccentedCase", testSearchAccentedCase},
		{"ListIgnoresCase", testListIgnoresCase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBackend(t)
			tc.fn(&fixture{
				t:         t,
				ctx:       context.Background(),
				customers: &usecase.CustomerUC{Customers: b.Customers},
				purchases: &usecase.PurchaseUC{Purchases: b.Purchases, Reports: b.Stats},
			})
		})
	}
}

func (f *fixture) customer(name, taxID, phone string) *domain.Customer {
	f.t.Helper()
	c, err := f.customers.Create(f.ctx, domain.CustomerInput{Name: name, TaxID: taxID, Phone: phone})
	if err != nil {
		f.t.Fatalf("create customer %q: %v", name, err)
	}
	return c
}

func (f *fixture) purchase(customerID, amount string, day time.Time, method domain.PaymentMethod) *domain.Purchase {
	f.t.Helper()
	p, err := f.purchases.Create(f.ctx, domain.PurchaseInput{
		Date:          day,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: method,
		CustomerID:    customerID,
	})
	if err != nil {
		f.t.Fatalf("create purchase %s: %v", amount, err)
	}
	return p
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCreateThenList(f *fixture) {
	t := f.t
	b := f.customer("Bruno Lima", "987.654.321-00", "(11) 3333-4444")
	a := f.customer("Ana Souza", "12345678900", "11987654321")

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	list, err := f.customers.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("expected list sorted by name, got %q, %q", list[0].Name, list[1].Name)
	}
	if list[1].TaxID != "98765432100" || list[1].Phone != "1133334444" {
		t.Errorf("expected canonical digits, got %q %q", list[1].TaxID, list[1].Phone)
	}

	got, err := f.customers.Get(f.ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Ana Souza" || got.TaxID != "12345678900" {
		t.Errorf("unexpected customer %+v", got)
	}
}

func testDuplicateTaxID(f *fixture) {
	t := f.t
	f.customer("Ana", "123.456.789-00", "11987654321")

	_, err := f.customers.Create(f.ctx, domain.CustomerInput{Name: "Outra", TaxID: "12345678900", Phone: "1133334444"})
	if !errors.Is(err, domain.ErrDuplicateTaxID) {
		t.Fatalf("expected ErrDuplicateTaxID, got %v", err)
	}
	if !errors.Is(err, domain.ErrDuplicate) || !errors.Is(err, domain.ErrConstraint) {
		t.Errorf("expected duplicate constraint classification, got %v", err)
	}
	list, err := f.customers.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected store unchanged, got %d customers", len(list))
	}
}

func testUpdateTaxID(f *fixture) {
	t := f.t
	a := f.customer("Ana", "12345678900", "11987654321")
	b := f.customer("Bruno", "98765432100", "1133334444")

	taken := "123.456.789-00"
	if _, err := f.customers.Update(f.ctx, b.ID, domain.CustomerPatch{TaxID: &taken}); !errors.Is(err, domain.ErrDuplicateTaxID) {
		t.Fatalf("expected ErrDuplicateTaxID, got %v", err)
	}

	own := "12345678900"
	name := "Ana Maria"
	got, err := f.customers.Update(f.ctx, a.ID, domain.CustomerPatch{TaxID: &own, Name: &name})
	if err != nil {
		t.Fatalf("update with own tax id: %v", err)
	}
	if got.Name != "Ana Maria" {
		t.Errorf("expected renamed customer, got %q", got.Name)
	}
	stored, err := f.customers.Get(f.ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Ana Maria" || stored.Phone != "11987654321" {
		t.Errorf("expected partial update to persist, got %+v", stored)
	}
}

func testCustomerNotFound(f *fixture) {
	t := f.t
	if _, err := f.customers.Get(f.ctx, "missing"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("get: expected ErrCustomerNotFound, got %v", err)
	}
	name := "X"
	if _, err := f.customers.Update(f.ctx, "missing", domain.CustomerPatch{Name: &name}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("update: expected ErrCustomerNotFound, got %v", err)
	}
	if err := f.customers.Delete(f.ctx, "missing"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("delete: expected ErrCustomerNotFound, got %v", err)
	}
}

func testSearchCustomers(f *fixture) {
	t := f.t
	ana := f.customer("Ana Souza", "12345678900", "11987654321")
	bruno := f.customer("Bruno Lima", "98765432100", "1133334444")

	cases := []struct {
		term string
		want []string
	}{
		{"souza", []string{ana.ID}},
		{"LIMA", []string{bruno.ID}},
		{"123.456", []string{ana.ID}},
		{"(11) 3333", []string{bruno.ID}},
		{"11", []string{ana.ID, bruno.ID}},
		{"zzz", nil},
		{"  ", []string{ana.ID, bruno.ID}},
	}
	for _, tc := range cases {
		got, err := f.customers.Search(f.ctx, tc.term)
		if err != nil {
			t.Fatalf("search %q: %v", tc.term, err)
		}
		if len(got) != len(tc.want) {
			t.Errorf("search %q: expected %d results, got %d", tc.term, len(tc.want), len(got))
			continue
		}
		for i, id := range tc.want {
			if got[i].ID != id {
				t.Errorf("search %q: result %d is %q, want %q", tc.term, i, got[i].ID, id)
			}
		}
	}
}

func testDeleteGuarded(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	p := f.purchase(c.ID, "10", day(2024, 5, 1), domain.PaymentPix)

	err := f.customers.Delete(f.ctx, c.ID)
	if !errors.Is(err, domain.ErrCustomerHasPurchases) {
		t.Fatalf("expected ErrCustomerHasPurchases, got %v", err)
	}
	if !errors.Is(err, domain.ErrReferential) || !errors.Is(err, domain.ErrConstraint) {
		t.Errorf("expected referential constraint classification, got %v", err)
	}
	if _, err := f.customers.Get(f.ctx, c.ID); err != nil {
		t.Fatalf("customer must survive a refused delete: %v", err)
	}

	if err := f.purchases.Delete(f.ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.customers.Delete(f.ctx, c.ID); err != nil {
		t.Fatalf("delete after purchases removed: %v", err)
	}
	list, err := f.customers.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no customers, got %d", len(list))
	}
}

func testPurchaseRequiresCustomer(f *fixture) {
	t := f.t
	_, err := f.purchases.Create(f.ctx, domain.PurchaseInput{
		Date:          day(2024, 5, 1),
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: domain.PaymentCash,
		CustomerID:    "missing",
	})
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("expected ErrCustomerNotFound, got %v", err)
	}
}

func testNonPositiveAmounts(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	for _, amount := range []string{"0", "-0.01", "-100"} {
		_, err := f.purchases.Create(f.ctx, domain.PurchaseInput{
			Date:          day(2024, 5, 1),
			Amount:        decimal.RequireFromString(amount),
			PaymentMethod: domain.PaymentCard,
			CustomerID:    c.ID,
		})
		if !errors.Is(err, domain.ErrInvalidAmount) || !errors.Is(err, domain.ErrValidation) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	list, err := f.purchases.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no purchases stored, got %d", len(list))
	}
}

func testViewName(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	p := f.purchase(c.ID, "25.50", day(2024, 5, 1), domain.PaymentCash)

	name := "Ana Paula"
	if _, err := f.customers.Update(f.ctx, c.ID, domain.CustomerPatch{Name: &name}); err != nil {
		t.Fatal(err)
	}
	v, err := f.purchases.Get(f.ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.CustomerName != "Ana Paula" {
		t.Errorf("expected current customer name, got %q", v.CustomerName)
	}
	if !v.Amount.Equal(decimal.RequireFromString("25.50")) {
		t.Errorf("expected amount 25.50, got %s", v.Amount)
	}
	if !v.Date.Equal(day(2024, 5, 1)) || v.PaymentMethod != domain.PaymentCash {
		t.Errorf("unexpected purchase %+v", v.Purchase)
	}
}

func testPurchaseOrder(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	older := f.purchase(c.ID, "1", day(2024, 1, 10), domain.PaymentCash)
	newer := f.purchase(c.ID, "2", day(2024, 3, 5), domain.PaymentCash)
	middle := f.purchase(c.ID, "3", day(2024, 2, 1), domain.PaymentCash)

	list, err := f.purchases.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{newer.ID, middle.ID, older.ID}
	if len(list) != len(want) {
		t.Fatalf("expected %d purchases, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, list[i].ID, id)
		}
	}
}

func testSearchPurchases(f *fixture) {
	t := f.t
	ana := f.customer("Ana Souza", "12345678900", "11987654321")
	bruno := f.customer("Bruno Lima", "98765432100", "1133334444")
	pix := f.purchase(ana.ID, "10", day(2024, 5, 2), domain.PaymentPix)
	card := f.purchase(bruno.ID, "20", day(2024, 5, 1), domain.PaymentCard)

	cases := []struct {
		term string
		want []string
	}{
		{"PIX", []string{pix.ID}},
		{"cart", []string{card.ID}},
		{"bruno", []string{card.ID}},
		{"a", []string{pix.ID, card.ID}},
		{"boleto", nil},
	}
	for _, tc := range cases {
		got, err := f.purchases.Search(f.ctx, tc.term)
		if err != nil {
			t.Fatalf("search %q: %v", tc.term, err)
		}
		if len(got) != len(tc.want) {
			t.Errorf("search %q: expected %d results, got %d", tc.term, len(tc.want), len(got))
			continue
		}
		for i, id := range tc.want {
			if got[i].ID != id {
				t.Errorf("search %q: result %d is %q, want %q", tc.term, i, got[i].ID, id)
			}
		}
	}
}

func testUpdateDeletePurchase(f *fixture) {
	t := f.t
	ana := f.customer("Ana", "12345678900", "11987654321")
	bruno := f.customer("Bruno", "98765432100", "1133334444")
	p := f.purchase(ana.ID, "10", day(2024, 5, 1), domain.PaymentPix)

	amount := decimal.RequireFromString("42.90")
	method := domain.PaymentCard
	owner := bruno.ID
	if _, err := f.purchases.Update(f.ctx, p.ID, domain.PurchasePatch{Amount: &amount, PaymentMethod: &method, CustomerID: &owner}); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, err := f.purchases.Get(f.ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Amount.Equal(amount) || v.PaymentMethod != domain.PaymentCard || v.CustomerName != "Bruno" {
		t.Errorf("update not persisted: %+v", v)
	}
	if !v.Date.Equal(day(2024, 5, 1)) {
		t.Errorf("untouched date changed to %s", v.Date)
	}

	missing := "missing"
	if _, err := f.purchases.Update(f.ctx, p.ID, domain.PurchasePatch{CustomerID: &missing}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("reassign to missing customer: expected ErrCustomerNotFound, got %v", err)
	}
	zero := decimal.Zero
	if _, err := f.purchases.Update(f.ctx, p.ID, domain.PurchasePatch{Amount: &zero}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.purchases.Update(f.ctx, "missing", domain.PurchasePatch{Amount: &amount}); !errors.Is(err, domain.ErrPurchaseNotFound) {
		t.Errorf("update missing: expected ErrPurchaseNotFound, got %v", err)
	}

	if err := f.purchases.Delete(f.ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.purchases.Delete(f.ctx, p.ID); !errors.Is(err, domain.ErrPurchaseNotFound) {
		t.Errorf("second delete: expected ErrPurchaseNotFound, got %v", err)
	}
}

func testStatsEmpty(f *fixture) {
	t := f.t
	s, err := f.purchases.Stats(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.CustomerCount != 0 || s.PurchaseCount != 0 || !s.TotalRevenue.IsZero() || !s.AverageTicket.IsZero() {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func testStatsAggregates(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	f.customer("Bruno", "98765432100", "1133334444")
	for _, amount := range []string{"100", "50", "150"} {
		f.purchase(c.ID, amount, day(2024, 5, 1), domain.PaymentPix)
	}
	s, err := f.purchases.Stats(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.CustomerCount != 2 || s.PurchaseCount != 3 {
		t.Errorf("unexpected counts %+v", s)
	}
	if !s.TotalRevenue.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected revenue 300, got %s", s.TotalRevenue)
	}
	if !s.AverageTicket.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected average 100, got %s", s.AverageTicket)
	}
}

func testStatsCents(f *fixture) {
	t := f.t
	c := f.customer("Ana", "12345678900", "11987654321")
	for _, amount := range []string{"0.10", "0.20", "10.10", "20.20"} {
		f.purchase(c.ID, amount, day(2024, 5, 1), domain.PaymentCash)
	}
	s, err := f.purchases.Stats(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("30.60"); !s.TotalRevenue.Equal(want) {
		t.Errorf("expected revenue %s, got %s", want, s.TotalRevenue)
	}
	if want := decimal.RequireFromString("7.65"); !s.AverageTicket.Equal(want) {
		t.Errorf("expected average %s, got %s", want, s.AverageTicket)
	}
}

func testSearchAccentedCase(f *fixture) {
	t := f.t
	joao := f.customer("JOÃO Érico", "12345678900", "11987654321")
	f.customer("Ana Souza", "98765432100", "1133334444")
	p := f.purchase(joao.ID, "10", day(2024, 5, 1), domain.PaymentPix)

	for _, term := range []string{"joão", "érico", "JOÃO É"} {
		got, err := f.customers.Search(f.ctx, term)
		if err != nil {
			t.Fatalf("search customers %q: %v", term, err)
		}
		if len(got) != 1 || got[0].ID != joao.ID {
			t.Errorf("search customers %q: expected only %s, got %d results", term, joao.Name, len(got))
		}

		views, err := f.purchases.Search(f.ctx, term)
		if err != nil {
			t.Fatalf("search purchases %q: %v", term, err)
		}
		if len(views) != 1 || views[0].ID != p.ID {
			t.Errorf("search purchases %q: expected the purchase of %s, got %d results", term, joao.Name, len(views))
		}
	}
}

func testListIgnoresCase(f *fixture) {
	t := f.t
	carla := f.customer("carla", "11111111111", "11987654321")
	bruno := f.customer("BRUNO", "22222222222", "11987654322")
	ana := f.customer("ana", "33333333333", "11987654323")

	list, err := f.customers.List(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{ana.ID, bruno.ID, carla.ID}
	if len(list) != len(want) {
		t.Fatalf("expected %d customers, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: got %q, want %s", i, list[i].Name, id)
		}
	}
}
