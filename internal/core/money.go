// Package core provides the domain types of the ingestion pipeline.
//
// This file contains amount parsing. Amounts are kept as exact decimals
// end to end; no thousands or decimal separator normalization is done.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal literal such as "-1234.56".
//
// Examples:
//   ParseAmount("5000000")  -> 5000000
//   ParseAmount("-150.5")   -> -150.5
//   ParseAmount("1.234,56") -> InvalidAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, InvalidAmount(raw, err)
	}
	return d, nil
}
