package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// Category names as emitted by the catalog provider.
const (
	CategoryElectronics = "electronics"
	CategoryFashion     = "fashion"
)

// CategoryKeywords maps a catalog category to the words that name it.
var CategoryKeywords = map[string][]string{
	CategoryElectronics: {
		"electronics", "electronic", "phone", "phones", "smartphone", "iphone", "samsung", "galaxy",
		"laptop", "laptops", "macbook", "headphone", "headphones", "earbuds", "gadget", "gadgets",
		"playstation", "console", "gaming", "tv", "camera", "tablet",
	},
	CategoryFashion: {
		"fashion", "clothes", "clothing", "shirt", "shirts", "dress", "dresses", "jacket", "jackets",
		"shoes", "shoe", "sneakers", "handbag", "handbags", "bag", "bags", "apparel", "wear", "outfit",
	},
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokens lowercases s and splits it into letter/digit words.
func Tokens(s string) []string {
	return wordRE.FindAllString(strings.ToLower(s), -1)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

func hasAnyToken(set map[string]struct{}, words ...string) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// CategoryFor returns the category whose keywords appear in the utterance,
// or "" when none or both do.
func CategoryFor(utterance string) string {
	set := tokenSet(utterance)
	electronics := hasAnyToken(set, CategoryKeywords[CategoryElectronics]...)
	fashion := hasAnyToken(set, CategoryKeywords[CategoryFashion]...)
	switch {
	case electronics && !fashion:
		return CategoryElectronics
	case fashion && !electronics:
		return CategoryFashion
	}
	return ""
}

// SharedCategoryKeyword reports whether a keyword of category appears in
// both the utterance and the title.
func SharedCategoryKeyword(category, utterance, title string) bool {
	u := tokenSet(utterance)
	t := tokenSet(title)
	for _, kw := range CategoryKeywords[strings.ToLower(category)] {
		_, inU := u[kw]
		_, inT := t[kw]
		if inU && inT {
			return true
		}
	}
	return false
}

var (
	priceRE    = regexp.MustCompile(`(?i)(?:under|below|less than|within|upto|up to|max|maximum|budget(?: of)?|cheaper than|around)\s*(?:rs\.?|inr|₹|\$)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?\b`)
	currencyRE = regexp.MustCompile(`(?i)(?:\brs\.?|\binr|₹)\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?\b|([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?\s*(?:rs|rupees|inr)\b`)
)

// ParsePrice extracts a maximum price (in rupees) from phrases such as
// "under 50000", "below ₹20k" or "budget of rs 1,500".
func ParsePrice(utterance string) (float64, bool) {
	if m := priceRE.FindStringSubmatch(utterance); m != nil {
		return parseAmount(m[1], m[2])
	}
	if m := currencyRE.FindStringSubmatch(utterance); m != nil {
		if m[1] != "" {
			return parseAmount(m[1], m[2])
		}
		return parseAmount(m[3], m[4])
	}
	return 0, false
}

func parseAmount(num, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if suffix != "" {
		v *= 1000
	}
	return v, true
}
