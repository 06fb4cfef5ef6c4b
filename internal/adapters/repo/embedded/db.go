// Package embedded keeps customers and purchases as two JSON documents inside
// a key-value namespace, using the same keys and field names as the legacy
// browser front-end so existing exports can be loaded unchanged.
//
// Every write reads a whole collection, mutates it and writes it back. A
// single DB serialises those cycles with a mutex; two processes sharing the
// same namespace are not coordinated.
package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
)

const (
	CustomersKey = "compra-rapida-clientes"
	PurchasesKey = "compra-rapida-compras"
)

const dateLayout = "2006-01-02"

// Namespace is the storage handle the backend writes through. A Put must
// replace the value of one key atomically.
type Namespace interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

type DB struct {
	ns Namespace

	mu       sync.Mutex // guards every read-modify-write and the collator
	collator *collate.Collator
}

func Open(ns Namespace) *DB {
	return &DB{
		ns:       ns,
		collator: collate.New(language.BrazilianPortuguese, collate.IgnoreCase),
	}
}

type customerRecord struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	CPF       string `json:"cpf"`
	Telefone  string `json:"telefone"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// purchaseRecord omits the legacy clienteNome field; names are resolved on read.
type purchaseRecord struct {
	ID             string      `json:"id"`
	Data           string      `json:"data"`
	ValorTotal     json.Number `json:"valorTotal"`
	FormaPagamento string      `json:"formaPagamento"`
	ClienteID      string      `json:"clienteId"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt,omitempty"`
}

func (db *DB) loadCustomers(ctx context.Context) ([]customerRecord, error) {
	var out []customerRecord
	if err := db.load(ctx, CustomersKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) loadPurchases(ctx context.Context) ([]purchaseRecord, error) {
	var out []purchaseRecord
	if err := db.load(ctx, PurchasesKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) load(ctx context.Context, key string, dst any) error {
	raw, ok, err := db.ns.Get(ctx, key)
	if err != nil {
		return domain.Unavailable("read "+key, err)
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Unavailable("decode "+key, err)
	}
	return nil
}

func (db *DB) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := db.ns.Put(ctx, key, raw); err != nil {
		return domain.Unavailable("write "+key, err)
	}
	return nil
}

func toCustomerRecord(c *domain.Customer) customerRecord {
	return customerRecord{
		ID:        c.ID,
		Nome:      c.Name,
		CPF:       c.TaxID,
		Telefone:  c.Phone,
		CreatedAt: formatTimestamp(c.CreatedAt),
		UpdatedAt: formatTimestamp(c.UpdatedAt),
	}
}

// toCustomer canonicalises documents written by older clients, which stored
// CPF and phone with their display punctuation.
func (r customerRecord) toCustomer() domain.Customer {
	created := parseTimestamp(r.CreatedAt)
	updated := parseTimestamp(r.UpdatedAt)
	if updated.IsZero() {
		updated = created
	}
	return domain.Customer{
		ID:        r.ID,
		Name:      r.Nome,
		TaxID:     format.Digits(r.CPF),
		Phone:     format.Digits(r.Telefone),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func toPurchaseRecord(p *domain.Purchase) purchaseRecord {
	return purchaseRecord{
		ID:             p.ID,
		Data:           p.Date.Format(dateLayout),
		ValorTotal:     json.Number(p.Amount.StringFixed(2)),
		FormaPagamento: string(p.PaymentMethod),
		ClienteID:      p.CustomerID,
		CreatedAt:      formatTimestamp(p.CreatedAt),
		UpdatedAt:      formatTimestamp(p.UpdatedAt),
	}
}

func (r purchaseRecord) toPurchase() domain.Purchase {
	amount, err := decimal.NewFromString(r.ValorTotal.String())
	if err != nil {
		amount = decimal.Zero
	}
	method, ok := domain.ParsePaymentMethod(r.FormaPagamento)
	if !ok {
		method = domain.PaymentMethod(r.FormaPagamento)
	}
	created := parseTimestamp(r.CreatedAt)
	updated := parseTimestamp(r.UpdatedAt)
	if updated.IsZero() {
		updated = created
	}
	return domain.Purchase{
		ID:            r.ID,
		Date:          parseDay(r.Data),
		Amount:        amount,
		PaymentMethod: method,
		CustomerID:    r.ClienteID,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseDay(s string) time.Time {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return domain.DateOnly(t)
	}
	return time.Time{}
}
