package nlu

import (
	"regexp"
	"strings"

	"chatcart/pkg"
)

var (
	addRE       = regexp.MustCompile(`\badd\b|\bput\b.*\b(cart|basket)\b|\bi'?ll take\b|\b(buy|purchase|order) (the|this|that|it)\b`)
	viewCartRE  = regexp.MustCompile(`\b(view|show|see|check|open|display)\b.*\b(cart|basket)\b|\bwhat'?s in (my|the) (cart|basket)\b|\bmy (cart|basket)\b|^(cart|basket)$`)
	specificRE  = regexp.MustCompile(`\b(tell me about|details (of|about|on)|more about|specs? (of|for)|do you (have|sell)|looking for|is there|how much (is|does))\b`)
	giftRE      = regexp.MustCompile(`\b(gift|gifts|present|presents|birthday|anniversary|wedding|surprise)\b`)
	recommendRE = regexp.MustCompile(`\b(recommend|recommendation|recommendations|suggest|suggestion|suggestions|best|popular|top|trending|deal|deals|offers?|show me|what should i)\b`)
)

// Classify maps an utterance to exactly one intent tag. Groups are tested in
// priority order and the first match wins; IntentGeneral is the default.
func Classify(utterance string) pkg.Intent {
	u := strings.ToLower(strings.TrimSpace(utterance))

	switch {
	case u == "":
		return pkg.IntentGeneral
	case addRE.MatchString(u):
		return pkg.IntentAddToCart
	case viewCartRE.MatchString(u):
		return pkg.IntentViewCart
	case hasPricePhrase(u):
		return pkg.IntentPriceFilter
	}

	switch CategoryFor(u) {
	case CategoryElectronics:
		return pkg.IntentElectronics
	case CategoryFashion:
		return pkg.IntentFashion
	}

	switch {
	case specificRE.MatchString(u) || mentionsBrand(u):
		return pkg.IntentSpecificProduct
	case giftRE.MatchString(u):
		return pkg.IntentGift
	case recommendRE.MatchString(u):
		return pkg.IntentRecommendation
	}
	return pkg.IntentGeneral
}

func hasPricePhrase(u string) bool {
	if _, ok := ParsePrice(u); ok {
		return true
	}
	return containsAny(u, "cheap", "affordable", "budget", "inexpensive")
}

var brands = []string{"apple", "sony", "nike", "adidas", "puma", "levis", "dell", "hp", "lenovo", "oneplus"}

func mentionsBrand(u string) bool {
	return hasAnyToken(tokenSet(u), brands...)
}
