package llm

import (
	"regexp"
	"strconv"
	"strings"

	"chatcart/pkg"

	"github.com/bytedance/sonic"
)

// ActionKind is the action requested by a generative reply.
type ActionKind string

const (
	ActionAddToCart ActionKind = "add_to_cart"
	ActionRecommend ActionKind = "recommend"
	ActionNone      ActionKind = "none"
)

// Reply is a parsed generative reply. Product ids are not yet validated
// against the catalog.
type Reply struct {
	Action     ActionKind
	ProductIDs []pkg.ProductID
	Quantities []int
	Message    string
	// Malformed is set when the text could not be parsed even after repair;
	// Message then carries the raw text.
	Malformed bool
}

// QuantityAt returns the quantity aligned with product index i, defaulting to 1.
func (r Reply) QuantityAt(i int) int {
	if i < len(r.Quantities) && r.Quantities[i] > 0 {
		return r.Quantities[i]
	}
	return 1
}

type rawReply struct {
	Action     string          `json:"action"`
	ProductIDs []pkg.ProductID `json:"product_ids"`
	Quantities []any           `json:"quantities"`
	Message    string          `json:"message"`
}

var (
	trailingObjectComma = regexp.MustCompile(`,\s*}`)
	trailingArrayComma  = regexp.MustCompile(`,\s*]`)
)

// ParseReply extracts the JSON object between the first '{' and the last
// '}', retries once with trailing commas stripped, and otherwise degrades to
// a free-form message with ActionNone. It never fails.
func ParseReply(text string) Reply {
	trimmed := strings.TrimSpace(text)
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return Reply{Action: ActionNone, Message: trimmed, Malformed: true}
	}
	candidate := trimmed[start : end+1]

	raw, ok := decodeReply(candidate)
	if !ok {
		repaired := trailingObjectComma.ReplaceAllString(candidate, "}")
		repaired = trailingArrayComma.ReplaceAllString(repaired, "]")
		raw, ok = decodeReply(repaired)
	}
	if !ok {
		return Reply{Action: ActionNone, Message: trimmed, Malformed: true}
	}

	reply := Reply{
		Action:     normalizeAction(raw.Action),
		ProductIDs: raw.ProductIDs,
		Message:    strings.TrimSpace(raw.Message),
	}
	for _, q := range raw.Quantities {
		reply.Quantities = append(reply.Quantities, toQuantity(q))
	}
	return reply
}

func decodeReply(s string) (rawReply, bool) {
	var raw rawReply
	if err := sonic.UnmarshalString(s, &raw); err != nil {
		return rawReply{}, false
	}
	return raw, true
}

func normalizeAction(s string) ActionKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add_to_cart", "add-to-cart", "add":
		return ActionAddToCart
	case "recommend", "recommendation", "recommendations":
		return ActionRecommend
	}
	return ActionNone
}

func toQuantity(v any) int {
	var n int
	switch q := v.(type) {
	case float64:
		n = int(q)
	case int64:
		n = int(q)
	case int:
		n = q
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(q))
	}
	if n < 1 {
		return 1
	}
	return n
}
