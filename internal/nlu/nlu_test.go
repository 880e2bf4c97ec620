package nlu

import (
	"testing"

	"chatcart/pkg"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		utterance string
		want      pkg.Intent
	}{
		{"add the first one", pkg.IntentAddToCart},
		{"Add 2 units of the iPhone to my cart", pkg.IntentAddToCart},
		{"put it in my cart", pkg.IntentAddToCart},
		{"show my cart", pkg.IntentViewCart},
		{"what's in my cart?", pkg.IntentViewCart},
		{"show me electronics", pkg.IntentElectronics},
		{"I need a new laptop", pkg.IntentElectronics},
		{"any nice dresses?", pkg.IntentFashion},
		{"phones under 50000", pkg.IntentPriceFilter},
		{"something cheap please", pkg.IntentPriceFilter},
		{"tell me about apple products", pkg.IntentSpecificProduct},
		{"anything from sony?", pkg.IntentSpecificProduct},
		{"birthday gift for my sister", pkg.IntentGift},
		{"what do you recommend", pkg.IntentRecommendation},
		{"hello there", pkg.IntentGeneral},
		{"", pkg.IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.utterance))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, pkg.IntentAddToCart, Classify("add the gift from the electronics list"))
	}
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		utterance string
		want      int
	}{
		{"add the iphone", 1},
		{"add 3 units", 3},
		{"add the 3rd one", 1},
		{"add the second one", 1},
		{"2x of the first", 2},
		{"quantity 4 please", 4},
		{"add 2 more", 2},
		{"6 items of number 2", 6},
		{"add 5 pcs", 5},
		{"add item 4", 1},
		{"add 0 units", 1},
		{"add 500 units", MaxQuantity},
		{"add 55 inch tv", 1},
		{"add 2 of the 2nd one", 2},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := ExtractQuantity(tt.utterance)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

func product(id, title, category string) pkg.Product {
	return pkg.Product{ID: pkg.ProductID(id), Title: title, Category: category}
}

func TestResolve(t *testing.T) {
	a := product("101", "iPhone 15 Pro", "electronics")
	b := product("102", "Samsung Galaxy S24", "electronics")
	c := product("104", "Sony WH-1000XM5", "electronics")
	tv := product("106", "Sony Bravia 55 TV", "electronics")
	displayed := []pkg.Product{a, b, c}

	tests := []struct {
		name      string
		utterance string
		list      []pkg.Product
		category  string
		want      pkg.ProductID
		kind      MatchKind
	}{
		{"ordinal digit", "add the 2nd one", displayed, "", "102", MatchOrdinal},
		{"ordinal word", "add the third", displayed, "", "104", MatchOrdinal},
		{"last", "add the last one", displayed, "", "104", MatchOrdinal},
		{"position phrase", "add number 1", displayed, "", "101", MatchOrdinal},
		{"exact title", "add iphone 15 pro please", displayed, "", "101", MatchTitle},
		{"fuzzy word", "i'll take the galaxy", displayed, "", "102", MatchFuzzy},
		{"category keyword", "add the tv", []pkg.Product{a, tv}, "electronics", "106", MatchCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind, ok := Resolve(tt.utterance, tt.list, tt.category)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.ID)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestResolveOrdinalIgnoresCatalogOrder(t *testing.T) {
	a := product("1", "Alpha Widget", "electronics")
	b := product("2", "Bravo Widget", "electronics")
	c := product("3", "Charlie Widget", "electronics")

	got, _, ok := Resolve("add the 2nd one", []pkg.Product{a, b, c}, "")
	assert.True(t, ok)
	assert.Equal(t, b, got)

	got, _, ok = Resolve("add the 2nd one", []pkg.Product{c, a, b}, "")
	assert.True(t, ok)
	assert.Equal(t, a, got)
}

func TestResolveNone(t *testing.T) {
	displayed := []pkg.Product{product("101", "iPhone 15 Pro", "electronics")}

	_, _, ok := Resolve("add the first one", nil, "")
	assert.False(t, ok, "empty list")

	_, _, ok = Resolve("add the fourth one", displayed, "")
	assert.False(t, ok, "ordinal out of range")

	_, _, ok = Resolve("add something nice", displayed, "")
	assert.False(t, ok)

	_, _, ok = Resolve("add the tv", displayed, "fashion")
	assert.False(t, ok)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		utterance string
		want      float64
		ok        bool
	}{
		{"phones under 50000", 50000, true},
		{"below ₹20k", 20000, true},
		{"budget of rs 1,500", 1500, true},
		{"less than 999.50", 999.5, true},
		{"something around 3000 rupees", 3000, true},
		{"show me phones", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got, ok := ParsePrice(tt.utterance)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, CategoryElectronics, CategoryFor("cheap headphones"))
	assert.Equal(t, CategoryFashion, CategoryFor("a leather jacket"))
	assert.Equal(t, "", CategoryFor("phone and a dress"))
	assert.Equal(t, "", CategoryFor("hello"))
}
