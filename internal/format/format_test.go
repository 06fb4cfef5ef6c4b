package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatTaxID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12345678900", "123.456.789-00"},
		{"123.456.789-00", "123.456.789-00"},
		{"123456789001234", "123.456.789-00"},
		{"", ""},
		{"abc", ""},
		{"123", "123"},
		{"1234", "123.4"},
		{"1234567", "123.456.7"},
		{"1234567890", "123.456.789-0"},
	}
	for _, tt := range tests {
		if got := FormatTaxID(tt.in); got != tt.want {
			t.Errorf("FormatTaxID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"11987654321", "(11) 98765-4321"},
		{"1134567890", "(11) 3456-7890"},
		{"(11) 98765-4321", "(11) 98765-4321"},
		{"", ""},
		{"1", "(1"},
		{"11987", "(11) 987"},
		{"1198765", "(11) 9876-5"},
		{"119876543210000", "(11) 98765-4321"},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.in); got != tt.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"R$ 1.234,56", "1234.56"},
		{"1234,56", "1234.56"},
		{"12,5", "12.5"},
		{",5", "0.5"},
		{"1.234", "1234"},
		{"1,2,3", "1.2"},
		{"", "0"},
		{"abc", "0"},
		{"R$", "0"},
	}
	for _, tt := range tests {
		want := decimal.RequireFromString(tt.want)
		if got := ParseCurrency(tt.in); !got.Equal(want) {
			t.Errorf("ParseCurrency(%q) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestParseCurrencyENUS(t *testing.T) {
	got := ENUS.ParseCurrency("$1,234.56")
	if !got.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected 1234.56, got %s", got)
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "R$ 1.234,56"},
		{"0", "R$ 0,00"},
		{"100", "R$ 100,00"},
		{"-50.5", "-R$ 50,50"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCurrencyRoundTrip(t *testing.T) {
	v := decimal.RequireFromString("98765.43")
	if got := ParseCurrency(FormatCurrency(v)); !got.Equal(v) {
		t.Errorf("round trip mismatch: got %s, want %s", got, v)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "03/05/2024" {
		t.Errorf("expected 03/05/2024, got %q", got)
	}
	if got := ENUS.FormatDate(d); got != "05/03/2024" {
		t.Errorf("expected 05/03/2024, got %q", got)
	}
	if got := FormatDate(time.Time{}); got != "" {
		t.Errorf("expected empty string for zero time, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-05-03", "03/05/2024", "2024-05-03T00:00:00Z"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDate("ontem"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestLocaleFor(t *testing.T) {
	if LocaleFor("en-US").Name != "en-US" {
		t.Error("expected en-US locale")
	}
	if LocaleFor("").Name != "pt-BR" {
		t.Error("expected pt-BR default")
	}
}
