package moysklad

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one remote object as МойСклад sent it. Only a handful of fields
// are ever projected into typed columns; the map itself is preserved verbatim
// as the raw_data blob.
type Record map[string]any

// ID returns the remote identifier, or "" when the record has none.
func (r Record) ID() string { return r.Str("id") }

func (r Record) Name() string { return r.Str("name") }

func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// SalePrice projects the first salePrices entry from minor currency units to
// a decimal amount. No entries means price 0.
func (r Record) SalePrice() decimal.Decimal {
	prices, _ := r["salePrices"].([]any)
	if len(prices) == 0 {
		return decimal.Zero
	}
	first, _ := prices[0].(map[string]any)
	return minorUnits(first["value"])
}

// BuyPrice projects buyPrice.value the same way.
func (r Record) BuyPrice() decimal.Decimal {
	buy, _ := r["buyPrice"].(map[string]any)
	return minorUnits(buy["value"])
}

// Sum projects the order total ("sum", minor units).
func (r Record) Sum() decimal.Decimal {
	return minorUnits(r["sum"])
}

// Barcode returns the first barcode value, whatever its symbology
// (barcodes is a list like [{"ean13": "4600..."}]).
func (r Record) Barcode() string {
	codes, _ := r["barcodes"].([]any)
	if len(codes) == 0 {
		return ""
	}
	first, _ := codes[0].(map[string]any)
	for _, v := range first {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Href returns meta.href, or "" when absent.
func (r Record) Href() string {
	meta, _ := r["meta"].(map[string]any)
	href, _ := meta["href"].(string)
	return href
}

// Moment parses a МойСклад timestamp field ("2006-01-02 15:04:05.000",
// Moscow time by API contract). Zero time on absence or parse failure.
func (r Record) Moment(key string) time.Time {
	s := r.Str(key)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func minorUnits(v any) decimal.Decimal {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		f, _ = n.Float64()
	default:
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Div(decimal.NewFromInt(100))
}

// IDFromHref pulls an entity id out of a meta reference, e.g.
// ".../entity/product/8a5b..." with entity "product" -> "8a5b...". ok is
// false when the href does not point at that entity.
func IDFromHref(href, entity string) (string, bool) {
	marker := "/" + entity + "/"
	i := strings.LastIndex(href, marker)
	if i < 0 {
		return "", false
	}
	id := href[i+len(marker):]
	// Query strings show up on some report hrefs.
	if j := strings.IndexByte(id, '?'); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// ProductIDFromHref is IDFromHref for the stock report's product references.
func ProductIDFromHref(href string) (string, bool) {
	return IDFromHref(href, "product")
}
