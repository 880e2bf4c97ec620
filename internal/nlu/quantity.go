package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxQuantity caps a single extracted quantity.
const MaxQuantity = 99

var (
	ordinalWordRE = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last)\b`)
	ordinalNumRE  = regexp.MustCompile(`\b\d+(st|nd|rd|th)\b`)
	positionRE    = regexp.MustCompile(`(\b(number|no\.?|item|option|product)\s*|#)\s*\d+\b`)

	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)\s*x\b`),
		regexp.MustCompile(`\bx\s*(\d+)\b`),
		regexp.MustCompile(`\b(\d+)\s*(?:quantity|qty)\b`),
		regexp.MustCompile(`\b(?:quantity|qty)\s*(?:of\s*)?(\d+)\b`),
		regexp.MustCompile(`\b(\d+)\s*items?\b`),
		regexp.MustCompile(`\badd\s+(\d+)\s+more\b`),
		regexp.MustCompile(`\b(\d+)\s*units?\b`),
		regexp.MustCompile(`\b(\d+)\s*(?:pieces|piece|pcs|pc)\b`),
		regexp.MustCompile(`\badd\s+(\d+)\s+of\b`),
	}
)

// stripPositions removes ordinal and position phrases so that "2nd" or
// "item 3" are never read as quantities.
func stripPositions(u string) string {
	u = ordinalNumRE.ReplaceAllString(u, " ")
	u = positionRE.ReplaceAllString(u, " ")
	return ordinalWordRE.ReplaceAllString(u, " ")
}

// ExtractQuantity returns the quantity requested in the utterance, always in
// [1, MaxQuantity]. It defaults to 1.
func ExtractQuantity(utterance string) int {
	u := stripPositions(strings.ToLower(utterance))
	for _, re := range quantityPatterns {
		m := re.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if n > MaxQuantity {
			n = MaxQuantity
		}
		return n
	}
	return 1
}
