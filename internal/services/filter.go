package services

import (
	"sort"
	"strings"

	"chatcart/internal/nlu"
	"chatcart/pkg"
)

// DefaultDisplayLimit is the number of products shown per list.
const DefaultDisplayLimit = 5

// Gift predicate thresholds.
const (
	GiftMinRating   = 4.0
	GiftMinDiscount = 10.0
)

var keywordStopList = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "any": true, "are": true, "can": true,
	"show": true, "tell": true, "about": true, "some": true, "what": true, "have": true, "with": true,
	"from": true, "anything": true, "something": true, "looking": true, "details": true, "more": true,
	"product": true, "products": true, "item": true, "items": true, "sell": true, "there": true,
	"please": true, "want": true, "need": true, "like": true, "this": true, "that": true,
}

// FilterProducts applies session filters and the intent predicate to the
// catalog and returns at most limit products ranked by rating, or by
// ascending price for a price query without a threshold. Cart exclusion is
// left to the caller.
//
// For a price filter query the parsed threshold, and the category the
// utterance names, are written into filters so they apply to later turns.
func FilterProducts(catalog []pkg.Product, intent pkg.Intent, utterance string, filters *pkg.Filters, limit int) []pkg.Product {
	if limit <= 0 {
		limit = DefaultDisplayLimit
	}
	if filters == nil {
		filters = &pkg.Filters{}
	}

	if intent == pkg.IntentPriceFilter {
		if maxPrice, ok := nlu.ParsePrice(utterance); ok {
			filters.MaxPrice = &maxPrice
		}
		if cat := nlu.CategoryFor(utterance); cat != "" {
			filters.Category = cat
		}
	}

	predicate := intentPredicate(intent, utterance)
	categoryIntent := intent == pkg.IntentElectronics || intent == pkg.IntentFashion

	var out []pkg.Product
	for _, p := range Dedupe(catalog) {
		if filters.MaxPrice != nil && p.Price > *filters.MaxPrice {
			continue
		}
		if !categoryIntent && filters.Category != "" && !strings.EqualFold(p.Category, filters.Category) {
			continue
		}
		if predicate != nil && !predicate(p) {
			continue
		}
		out = append(out, p)
	}

	// A price query with no number to go on ("something cheap") lists the
	// cheapest products first.
	if intent == pkg.IntentPriceFilter && filters.MaxPrice == nil {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Price < out[j].Price
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Rating.Rate > out[j].Rating.Rate
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func intentPredicate(intent pkg.Intent, utterance string) func(pkg.Product) bool {
	switch intent {
	case pkg.IntentElectronics:
		return inCategory(nlu.CategoryElectronics)
	case pkg.IntentFashion:
		return inCategory(nlu.CategoryFashion)
	case pkg.IntentGift:
		return func(p pkg.Product) bool {
			return p.Rating.Rate >= GiftMinRating && p.DiscountPct >= GiftMinDiscount
		}
	case pkg.IntentSpecificProduct, pkg.IntentGeneral:
		keywords := Keywords(utterance)
		return func(p pkg.Product) bool {
			return MatchesKeywords(p, keywords)
		}
	}
	return nil
}

func inCategory(category string) func(pkg.Product) bool {
	return func(p pkg.Product) bool {
		return strings.EqualFold(p.Category, category)
	}
}

// Keywords returns the content words of an utterance.
func Keywords(utterance string) []string {
	var out []string
	for _, tok := range nlu.Tokens(utterance) {
		if len(tok) < 3 || keywordStopList[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// MatchesKeywords reports whether any keyword names a word of the product's
// title or brand. Words of four letters or more also match by prefix so that
// plurals hit.
func MatchesKeywords(p pkg.Product, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	words := append(nlu.Tokens(p.Title), nlu.Tokens(p.Brand)...)
	for _, kw := range keywords {
		for _, w := range words {
			if kw == w {
				return true
			}
			if len(kw) >= 4 && len(w) >= 4 && (strings.HasPrefix(kw, w) || strings.HasPrefix(w, kw)) {
				return true
			}
		}
	}
	return false
}

// ExcludeCart drops products that already have a cart line.
func ExcludeCart(products []pkg.Product, inCart func(pkg.ProductID) bool) []pkg.Product {
	out := make([]pkg.Product, 0, len(products))
	for _, p := range products {
		if inCart(p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}
