// Package format converts between what people type and the canonical values
// kept in storage: digits-only CPF and phone numbers, decimal amounts and
// calendar dates. Nothing here fails on malformed input; parsers fall back to
// zero values and leave rejection to business validation.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale drives currency and date rendering.
type Locale struct {
	Name           string
	Tag            language.Tag
	CurrencySymbol string
	DecimalSep     rune
	DateLayout     string
}

var (
	PTBR = Locale{Name: "pt-BR", Tag: language.BrazilianPortuguese, CurrencySymbol: "R$", DecimalSep: ',', DateLayout: "02/01/2006"}
	ENUS = Locale{Name: "en-US", Tag: language.AmericanEnglish, CurrencySymbol: "$", DecimalSep: '.', DateLayout: "01/02/2006"}
)

// LocaleFor returns the locale matching name, defaulting to PTBR.
func LocaleFor(name string) Locale {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "en-us", "en_us", "en":
		return ENUS
	}
	return PTBR
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatTaxID masks a CPF as ###.###.###-##. Inputs with fewer than 11
// digits are grouped as far as they go, which is what a live input mask needs.
func FormatTaxID(s string) string {
	d := Digits(s)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}

// FormatPhone renders (##) #####-#### for 11 digits and (##) ####-####
// otherwise.
func FormatPhone(s string) string {
	d := Digits(s)
	if len(d) > 11 {
		d = d[:11]
	}
	if len(d) == 11 {
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return "(" + d
	case len(d) <= 6:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	}
}

func FormatCurrency(v decimal.Decimal) string { return PTBR.FormatCurrency(v) }

func ParseCurrency(s string) decimal.Decimal { return PTBR.ParseCurrency(s) }

func FormatDate(t time.Time) string { return PTBR.FormatDate(t) }

func ParseDate(s string) (time.Time, error) { return PTBR.ParseDate(s) }

func (l Locale) FormatCurrency(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	f, _ := v.Round(2).Float64()
	p := message.NewPrinter(l.Tag)
	return sign + l.CurrencySymbol + " " + p.Sprint(number.Decimal(f, number.Scale(2)))
}

// ParseCurrency keeps the digits and the locale's decimal separator and
// reads the result as an amount. Anything unreadable yields zero.
func (l Locale) ParseCurrency(s string) decimal.Decimal {
	var b strings.Builder
	seenSep := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == l.DecimalSep:
			if seenSep {
				return parseAmount(b.String())
			}
			seenSep = true
			b.WriteByte('.')
		}
	}
	return parseAmount(b.String())
}

func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "." {
		return decimal.Zero
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func (l Locale) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(l.DateLayout)
}

// ParseDate accepts ISO dates, the locale's short date and RFC 3339 timestamps.
func (l Locale) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range []string{"2006-01-02", l.DateLayout, time.RFC3339} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
