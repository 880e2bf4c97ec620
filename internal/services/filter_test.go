package services

import (
	"testing"

	"chatcart/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []pkg.Product {
	return append(MockElectronics(), MockFashion()...)
}

func ids(products []pkg.Product) []pkg.ProductID {
	out := make([]pkg.ProductID, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFilterElectronicsSortedByRating(t *testing.T) {
	var filters pkg.Filters
	got := FilterProducts(catalog(), pkg.IntentElectronics, "show me electronics", &filters, 5)

	// 105 and 101 tie on 4.8 and keep catalog order
	assert.Equal(t, []pkg.ProductID{"103", "101", "105", "104", "102"}, ids(got))
	assert.True(t, filters.IsZero())
}

func TestFilterPriceQueryPersistsThreshold(t *testing.T) {
	var filters pkg.Filters
	got := FilterProducts(catalog(), pkg.IntentPriceFilter, "phones under 50000", &filters, 5)

	require.NotNil(t, filters.MaxPrice)
	assert.InDelta(t, 50000, *filters.MaxPrice, 1e-9)
	assert.Equal(t, "electronics", filters.Category)
	assert.Equal(t, []pkg.ProductID{"105", "104"}, ids(got))

	// threshold applies to later turns
	later := FilterProducts(catalog(), pkg.IntentRecommendation, "what do you recommend", &filters, 5)
	for _, p := range later {
		assert.LessOrEqual(t, p.Price, 50000.0)
		assert.Equal(t, "electronics", p.Category)
	}
}

func TestFilterPriceQueryWithoutThresholdListsCheapestFirst(t *testing.T) {
	var filters pkg.Filters
	got := FilterProducts(catalog(), pkg.IntentPriceFilter, "something cheap", &filters, 5)

	assert.Nil(t, filters.MaxPrice)
	assert.Equal(t, []pkg.ProductID{"201", "202", "204", "203", "205"}, ids(got))
}

func TestFilterCategoryIntentOverridesStickyCategory(t *testing.T) {
	filters := pkg.Filters{Category: "electronics"}
	got := FilterProducts(catalog(), pkg.IntentFashion, "show me dresses", &filters, 5)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.Equal(t, "fashion", p.Category)
	}
}

func TestFilterGiftPredicate(t *testing.T) {
	got := FilterProducts(catalog(), pkg.IntentGift, "birthday gift", &pkg.Filters{}, 10)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.Rating.Rate, GiftMinRating)
		assert.GreaterOrEqual(t, p.DiscountPct, GiftMinDiscount)
	}
}

func TestFilterKeywords(t *testing.T) {
	got := FilterProducts(catalog(), pkg.IntentSpecificProduct, "tell me about apple", &pkg.Filters{}, 5)
	assert.Equal(t, []pkg.ProductID{"103", "101"}, ids(got))

	got = FilterProducts(catalog(), pkg.IntentGeneral, "hello there", &pkg.Filters{}, 5)
	assert.Empty(t, got)
}

func TestFilterDedupesAndTruncates(t *testing.T) {
	dup := append(catalog(), MockElectronics()...)
	got := FilterProducts(dup, pkg.IntentRecommendation, "recommend something", nil, 3)
	assert.Len(t, got, 3)
	assert.Equal(t, []pkg.ProductID{"103", "101", "105"}, ids(got))
}

func TestExcludeCart(t *testing.T) {
	inCart := map[pkg.ProductID]bool{"101": true}
	got := ExcludeCart(MockElectronics(), func(id pkg.ProductID) bool { return inCart[id] })
	assert.NotContains(t, ids(got), pkg.ProductID("101"))
	assert.Len(t, got, 4)
}
