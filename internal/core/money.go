// Package core provides the transaction model and its pure operations.
//
// This file contains amount parsing and the locale-aware number formatting
// used by the summary cards and the transaction table.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Amount is a currency-agnostic magnitude kept at the precision it was entered with.
type Amount struct {
	decimal.Decimal
}

// displayLocale groups digits the Indian way (1,23,456).
var displayLocale = language.MustParse("en-IN")

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// ParseAmount converts user input to a positive amount.
//
// Surrounding whitespace is ignored; anything that is not a plain decimal
// number, or is zero or negative, is rejected with ErrInvalidAmount.
//
// Examples:
//   ParseAmount("100")    -> 100, nil
//   ParseAmount(" 40.5 ") -> 40.5, nil
//   ParseAmount("0")      -> ErrInvalidAmount
//   ParseAmount("NaN")    -> ErrInvalidAmount
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	a := Amount{Decimal: d}
	if err := a.Validate(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

func (a Amount) Validate() error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// FormatNumber renders d with en-IN digit grouping and at most three fraction digits.
func FormatNumber(d decimal.Decimal) string {
	f, _ := d.Float64()
	p := message.NewPrinter(displayLocale)
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}
