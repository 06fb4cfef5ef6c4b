package embedded

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/phenrril/comprarapida/internal/adapters/repo/repotest"
	"github.com/phenrril/comprarapida/internal/adapters/storage/memkv"
	"github.com/phenrril/comprarapida/internal/adapters/storage/sqlitekv"
	"github.com/phenrril/comprarapida/internal/domain"
)

func backend(ns Namespace) repotest.Backend {
	db := Open(ns)
	return repotest.Backend{
		Customers: NewCustomerRepo(db),
		Purchases: NewPurchaseRepo(db),
		Stats:     NewStatsRepo(db),
	}
}

func TestBackend_Memory(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Backend {
		return backend(memkv.New())
	})
}

func TestBackend_SQLite(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Backend {
		ns, err := sqlitekv.Open(filepath.Join(t.TempDir(), "store.db"), "compra-rapida")
		if err != nil {
			t.Fatalf("open sqlitekv: %v", err)
		}
		t.Cleanup(func() { ns.Close() })
		return backend(ns)
	})
}

type brokenNamespace struct{ err error }

func (b brokenNamespace) Get(context.Context, string) ([]byte, bool, error) { return nil, false, b.err }
func (b brokenNamespace) Put(context.Context, string, []byte) error         { return b.err }

func TestBackend_UnavailableNamespace(t *testing.T) {
	cause := errors.New("disk gone")
	b := backend(brokenNamespace{err: cause})
	ctx := context.Background()

	_, err := b.Customers.List(ctx)
	if !errors.Is(err, domain.ErrBackendUnavailable) || !errors.Is(err, cause) {
		t.Errorf("list: expected unavailable wrapping cause, got %v", err)
	}
	err = b.Customers.Create(ctx, &domain.Customer{ID: "1", Name: "Ana", TaxID: "12345678900", Phone: "11987654321"})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("create: expected unavailable, got %v", err)
	}
	if _, err := b.Stats.Stats(ctx); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("stats: expected unavailable, got %v", err)
	}
}

func TestBackend_CorruptDocument(t *testing.T) {
	ns := memkv.New()
	ctx := context.Background()
	if err := ns.Put(ctx, CustomersKey, []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCustomerRepo(Open(ns)).List(ctx); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected unavailable for corrupt document, got %v", err)
	}
}

func TestBackend_ReadsLegacyDocuments(t *testing.T) {
	ns := memkv.New()
	ctx := context.Background()
	customers := `[{"id":"1714571234567","nome":"Ana","cpf":"123.456.789-00","telefone":"(11) 98765-4321","createdAt":"2024-05-01T13:20:34.567Z"}]`
	purchases := `[{"id":"1714571299999","data":"2024-05-01","valorTotal":1234.5,"formaPagamento":"cartao","clienteId":"1714571234567","clienteNome":"Nome Antigo","createdAt":"2024-05-01T13:21:39.999Z"}]`
	if err := ns.Put(ctx, CustomersKey, []byte(customers)); err != nil {
		t.Fatal(err)
	}
	if err := ns.Put(ctx, PurchasesKey, []byte(purchases)); err != nil {
		t.Fatal(err)
	}
	db := Open(ns)

	cs, err := NewCustomerRepo(db).List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 1 || cs[0].TaxID != "12345678900" || cs[0].Phone != "11987654321" {
		t.Fatalf("expected canonicalised legacy customer, got %+v", cs)
	}
	if cs[0].CreatedAt.IsZero() || !cs[0].UpdatedAt.Equal(cs[0].CreatedAt) {
		t.Errorf("expected timestamps from createdAt, got %+v", cs[0])
	}

	v, err := NewPurchaseRepo(db).FindByID(ctx, "1714571299999")
	if err != nil {
		t.Fatal(err)
	}
	if v.CustomerName != "Ana" {
		t.Errorf("expected name resolved from customer, got %q", v.CustomerName)
	}
	if !v.Amount.Equal(decimal.RequireFromString("1234.5")) || v.PaymentMethod != domain.PaymentCard {
		t.Errorf("unexpected legacy purchase %+v", v.Purchase)
	}

	if err := NewCustomerRepo(db).Create(ctx, &domain.Customer{ID: "x", Name: "Dup", TaxID: "12345678900", Phone: "1133334444"}); !errors.Is(err, domain.ErrDuplicateTaxID) {
		t.Errorf("expected duplicate against punctuated legacy CPF, got %v", err)
	}
}

func TestBackend_SortsNamesWithCollation(t *testing.T) {
	db := Open(memkv.New())
	repo := NewCustomerRepo(db)
	ctx := context.Background()
	for i, name := range []string{"Zeca", "Érica", "bruno", "Ana"} {
		c := &domain.Customer{ID: name, Name: name, TaxID: "1234567890" + string(rune('0'+i)), Phone: "11987654321"}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Ana", "bruno", "Érica", "Zeca"}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestBackend_WritesLegacyFieldNames(t *testing.T) {
	ns := memkv.New()
	ctx := context.Background()
	b := backend(ns)
	if err := b.Customers.Create(ctx, &domain.Customer{ID: "c1", Name: "Ana", TaxID: "12345678900", Phone: "11987654321"}); err != nil {
		t.Fatal(err)
	}
	raw, ok, err := ns.Get(ctx, CustomersKey)
	if err != nil || !ok {
		t.Fatalf("expected customers document, ok=%v err=%v", ok, err)
	}
	want := `[{"id":"c1","nome":"Ana","cpf":"12345678900","telefone":"11987654321","createdAt":""}]`
	if string(raw) != want {
		t.Errorf("unexpected document\n got: %s\nwant: %s", raw, want)
	}
}
