package llm

import (
	"fmt"
	"strconv"
	"strings"

	"chatcart/pkg"

	"github.com/bytedance/sonic"
)

const instructionTemplate = `You are ChatFit, a precise e-commerce assistant. You MUST respond WITH ONLY a single JSON object and nothing else.
SCHEMA:
{
  "action": "add_to_cart" | "recommend" | "none",
  "product_ids": [],
  "quantities": [],
  "message": "Short human-friendly reply to display to the user"
}
product_ids must come from PRODUCT_CATALOG. quantities is optional and aligns with product_ids.

RULES:
1) Return "add_to_cart" only for an explicit add request ("add", "add to cart", "put", or an ordinal such as "1st", "second").
2) For "add_to_cart", reference products from LAST_BOT_RESPONSE lists or PRODUCT_CATALOG. A product already in CURRENT_CART gets its quantity increased.
3) For "recommend", choose up to 4 items from PRODUCT_CATALOG, exclude CURRENT_CART items, order by rating and relevance, no duplicates.
4) If ambiguous, return {"action":"none","product_ids":[],"message":"I couldn't identify which product to add or recommend. Could you clarify?"}
5) Never invent product ids.
6) Use LAST_USER_QUERY and LAST_BOT_RESPONSE for context but prioritize the current message.
7) Respond ONLY with valid JSON, no extra commentary.

SESSION DATA:
- CURRENT_CART: %s
- LAST_USER_QUERY: %s
- LAST_BOT_RESPONSE: %s
- ACTIVE_FILTERS: %s

User's message: %s
`

// PromptInput is everything the fallback prompt embeds.
type PromptInput struct {
	// Catalog is the compact catalog text, or a pre-filtered subset of it.
	Catalog            string
	CartIDs            []pkg.ProductID
	LastUserUtterance  string
	LastAssistantReply string
	Filters            pkg.Filters
	Utterance          string
}

// BuildPrompt renders the full prompt: catalog, SESSION_METADATA block and
// the schema-constrained instruction under USER_PROMPT.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	if in.Catalog != "" {
		b.WriteString(in.Catalog)
	}

	cartIDs := "none"
	if len(in.CartIDs) > 0 {
		ids := make([]string, len(in.CartIDs))
		for i, id := range in.CartIDs {
			ids[i] = string(id)
		}
		cartIDs = strings.Join(ids, ",")
	}
	fmt.Fprintf(&b, "\n\nSESSION_METADATA:\n- CART_IDS: %s\n- LAST_USER_QUERY: %s\n- LAST_BOT_RESPONSE: %s\n",
		cartIDs, orNone(in.LastUserUtterance), orNone(in.LastAssistantReply))

	b.WriteString("\n\nUSER_PROMPT:\n")
	fmt.Fprintf(&b, instructionTemplate,
		quoteIDs(in.CartIDs),
		quote(in.LastUserUtterance),
		quote(in.LastAssistantReply),
		describeFilters(in.Filters),
		quote(in.Utterance),
	)
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func quote(s string) string {
	out, err := sonic.MarshalString(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return out
}

func quoteIDs(ids []pkg.ProductID) string {
	if len(ids) == 0 {
		return "[]"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = quote(string(id))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func describeFilters(f pkg.Filters) string {
	if f.IsZero() {
		return "none"
	}
	var parts []string
	if f.MaxPrice != nil {
		parts = append(parts, "max price ₹"+strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Category != "" {
		parts = append(parts, "category "+f.Category)
	}
	return strings.Join(parts, ", ")
}
