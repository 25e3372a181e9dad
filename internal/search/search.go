// Package search orders catalog lookup results the way a cashier expects
// them: a scanned or typed code that matches exactly always wins over a
// name that merely contains the query.
package search

import (
	"sort"
	"strings"

	"kadaipos/engine/internal/domain"
)

// Match tiers, best first. Within a tier results sort alphabetically by
// the primary (English) name.
const (
	tierExactCode = iota
	tierExactBarcode
	tierNamePrefix
	tierSubstring
	tierNone
)

// Rank filters products down to those matching the query (case-insensitive
// substring over code, barcode and both localized names) and orders them
// by tier, then name. The input slice is not modified.
func Rank(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type ranked struct {
		product domain.Product
		tier    int
	}

	matches := make([]ranked, 0, len(products))
	for _, p := range products {
		tier := tierOf(p, q)
		if tier == tierNone {
			continue
		}
		matches = append(matches, ranked{product: p, tier: tier})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].tier != matches[j].tier {
			return matches[i].tier < matches[j].tier
		}
		return strings.ToLower(matches[i].product.NameEN) < strings.ToLower(matches[j].product.NameEN)
	})

	result := make([]domain.Product, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.product)
	}
	return result
}

func tierOf(p domain.Product, q string) int {
	code := strings.ToLower(p.ProductCode)
	barcode := strings.ToLower(p.Barcode)
	nameEN := strings.ToLower(p.NameEN)
	nameTA := strings.ToLower(p.NameTA)

	switch {
	case code == q:
		return tierExactCode
	case barcode == q:
		return tierExactBarcode
	case strings.HasPrefix(nameEN, q) || strings.HasPrefix(nameTA, q):
		return tierNamePrefix
	case strings.Contains(code, q) || strings.Contains(barcode, q) ||
		strings.Contains(nameEN, q) || strings.Contains(nameTA, q):
		return tierSubstring
	default:
		return tierNone
	}
}

// Matches reports whether a product would appear at all for the query.
// Store implementations use it to pre-filter candidates before ranking.
func Matches(p domain.Product, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return tierOf(p, q) != tierNone
}
