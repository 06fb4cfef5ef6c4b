package domain

import "time"

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"cpf"`   // 11 digits, no punctuation
	Phone     string    `json:"phone"` // 10 or 11 digits, no punctuation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerInput struct {
	Name  string
	TaxID string
	Phone string
}

// CustomerPatch carries the fields of an edit; nil means unchanged.
type CustomerPatch struct {
	Name  *string
	TaxID *string
	Phone *string
}
