package moysklad

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalePriceProjection(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "p1",
		"salePrices": [{"value": 150000, "currency": {"name": "RUB"}}, {"value": 999}]
	}`), &rec))

	assert.Equal(t, "1500.00", rec.SalePrice().StringFixed(2))
}

func TestSalePriceDefaultsToZero(t *testing.T) {
	assert.True(t, Record{}.SalePrice().IsZero())
	assert.True(t, Record{"salePrices": []any{}}.SalePrice().IsZero())
	assert.True(t, Record{"salePrices": "garbage"}.SalePrice().IsZero())
}

func TestBuyPriceAndSum(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"buyPrice": {"value": 12345}, "sum": 200050}`), &rec))
	assert.Equal(t, "123.45", rec.BuyPrice().StringFixed(2))
	assert.Equal(t, "2000.50", rec.Sum().StringFixed(2))
}

func TestBarcode(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"barcodes": [{"ean13": "4601234567890"}]}`), &rec))
	assert.Equal(t, "4601234567890", rec.Barcode())
	assert.Equal(t, "", Record{}.Barcode())
}

func TestMoment(t *testing.T) {
	rec := Record{"moment": "2024-03-15 10:30:00.000"}
	parsed := rec.Moment("moment")
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, 15, parsed.Day())

	assert.True(t, Record{}.Moment("moment").IsZero())
	assert.True(t, Record{"moment": "not a date"}.Moment("moment").IsZero())
}

func TestProductIDFromHref(t *testing.T) {
	id, ok := ProductIDFromHref("https://api.moysklad.ru/api/remap/1.2/entity/product/8a5b2c3d-1111")
	require.True(t, ok)
	assert.Equal(t, "8a5b2c3d-1111", id)

	id, ok = ProductIDFromHref("https://api.moysklad.ru/api/remap/1.2/entity/product/8a5b?expand=images")
	require.True(t, ok)
	assert.Equal(t, "8a5b", id)

	_, ok = ProductIDFromHref("https://api.moysklad.ru/api/remap/1.2/entity/service/8a5b")
	assert.False(t, ok)

	_, ok = ProductIDFromHref("https://api.moysklad.ru/api/remap/1.2/entity/product/")
	assert.False(t, ok)

	_, ok = ProductIDFromHref("")
	assert.False(t, ok)
}

func TestIDFromHrefOtherEntities(t *testing.T) {
	id, ok := IDFromHref(".../entity/productfolder/f-42", "productfolder")
	require.True(t, ok)
	assert.Equal(t, "f-42", id)
}
