package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"chatcart/pkg"
)

// MatchKind records which rule resolved a reference.
type MatchKind string

const (
	MatchNone     MatchKind = ""
	MatchOrdinal  MatchKind = "ordinal"
	MatchTitle    MatchKind = "title"
	MatchFuzzy    MatchKind = "fuzzy"
	MatchCategory MatchKind = "category"
)

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
}

var (
	ordinalRE     = regexp.MustCompile(`\b(first|second|third|fourth|fifth|last)\b|\b([1-5])(?:st|nd|rd|th)\b|(?:\b(?:number|no\.?|item|option|product)\s*|#)\s*([1-5])\b`)
	fuzzyStopList = map[string]bool{"with": true, "from": true, "that": true, "this": true, "inch": true}
)

// ordinalIndex returns the zero-based position named by the utterance.
// "last" resolves against n.
func ordinalIndex(u string, n int) (int, bool) {
	m := ordinalRE.FindStringSubmatch(u)
	if m == nil {
		return -1, false
	}
	switch {
	case m[1] == "last":
		return n - 1, true
	case m[1] != "":
		return ordinalWords[m[1]] - 1, true
	case m[2] != "":
		i, _ := strconv.Atoi(m[2])
		return i - 1, true
	default:
		i, _ := strconv.Atoi(m[3])
		return i - 1, true
	}
}

// Resolve maps a reference phrase in the utterance to one of the displayed
// products. Rules are tried in order: ordinal position, exact title
// substring, fuzzy title word, category keyword. An ordinal outside the
// displayed list resolves to nothing rather than falling through.
func Resolve(utterance string, displayed []pkg.Product, currentCategory string) (pkg.Product, MatchKind, bool) {
	if len(displayed) == 0 {
		return pkg.Product{}, MatchNone, false
	}
	u := strings.ToLower(utterance)

	if idx, ok := ordinalIndex(u, len(displayed)); ok {
		if idx < 0 || idx >= len(displayed) {
			return pkg.Product{}, MatchNone, false
		}
		return displayed[idx], MatchOrdinal, true
	}

	for _, p := range displayed {
		if title := strings.ToLower(strings.TrimSpace(p.Title)); title != "" && strings.Contains(u, title) {
			return p, MatchTitle, true
		}
	}

	words := tokenSet(u)
	for _, p := range displayed {
		for _, w := range Tokens(p.Title) {
			if len(w) <= 3 || fuzzyStopList[w] {
				continue
			}
			if _, ok := words[w]; ok {
				return p, MatchFuzzy, true
			}
		}
	}

	if currentCategory != "" {
		for _, p := range displayed {
			if !strings.EqualFold(p.Category, currentCategory) {
				continue
			}
			if SharedCategoryKeyword(p.Category, u, p.Title) {
				return p, MatchCategory, true
			}
		}
	}

	return pkg.Product{}, MatchNone, false
}
