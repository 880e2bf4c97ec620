package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chatcart/internal/cart"
	"chatcart/internal/services"
	"chatcart/pkg"
)

const (
	clarifyMessage    = "I couldn't identify which product to add or recommend. Could you clarify?"
	referMessage      = `I couldn't tell which product you mean. Please refer to a displayed product, for example "add the first one".`
	upstreamMessage   = "I couldn't talk to the recommender right now — please try again later."
	noMatchMessage    = "I couldn't find products matching that. Try another category or a higher budget."
	helpMessage       = `I can help you shop electronics and fashion. Try "show me electronics" or "gifts under ₹5000".`
	allInCartMessage  = "No recommended items available (they may already be in your cart)."
	defaultRecMessage = "Here are some recommendations."
)

// Effect is what executing an action did to the cart and what the turn must
// record.
type Effect struct {
	Reply string
	// Added lists every product added to the cart, merged or new.
	Added []pkg.ProductRef
	// Mentioned lists products shown to the user.
	Mentioned []pkg.ProductRef
	// Displayed replaces the session's last displayed list when non-nil.
	Displayed []pkg.Product
}

// Execute applies the action to the cart. It never fails: unresolved and
// empty actions end in a message.
func Execute(a Action, c *cart.Cart, now time.Time) Effect {
	switch act := a.(type) {
	case AddToCart:
		return executeAdd(act, c, now)
	case Recommend:
		return executeRecommend(act, c)
	case NoAction:
		msg := act.Message
		if msg == "" {
			msg = clarifyMessage
		}
		return Effect{Reply: msg}
	}
	return Effect{Reply: clarifyMessage}
}

func executeAdd(act AddToCart, c *cart.Cart, now time.Time) Effect {
	if len(act.Items) == 0 {
		return Effect{Reply: clarifyMessage}
	}

	var added, updated []string
	eff := Effect{}
	for _, item := range act.Items {
		res := c.Add(item.Product, item.Quantity, true, now)
		label := fmt.Sprintf("%dx %q", max(item.Quantity, 1), item.Product.Title)
		if res.Merged {
			updated = append(updated, fmt.Sprintf("%s (now %d)", label, res.Line.Quantity))
		} else {
			added = append(added, label)
		}
		eff.Added = append(eff.Added, item.Product.Ref())
	}

	var b strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&b, "✅ Added to cart: %s.", strings.Join(added, ", "))
	}
	if len(updated) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "⚠️ Already in your cart — updated quantity: %s.", strings.Join(updated, ", "))
	}
	eff.Reply = b.String()
	return eff
}

func executeRecommend(act Recommend, c *cart.Cart) Effect {
	msg := act.Message
	if msg == "" {
		msg = defaultRecMessage
	}

	visible := services.ExcludeCart(act.Products, c.Contains)
	if len(visible) == 0 {
		return Effect{Reply: msg + "\n\n" + allInCartMessage}
	}

	eff := Effect{
		Reply:     msg + "\n\n" + FormatProductList(visible),
		Displayed: visible,
	}
	for _, p := range visible {
		eff.Mentioned = append(eff.Mentioned, p.Ref())
	}
	return eff
}

// FormatProductList renders products as an enumerated list.
func FormatProductList(products []pkg.Product) string {
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = fmt.Sprintf("%d. %s - ₹%s ⭐%s", i+1, p.Title, services.FormatPrice(p.Price), formatRate(p.Rating.Rate))
	}
	return strings.Join(lines, "\n")
}

func formatRate(rate float64) string {
	if rate <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// DescribeCart renders the cart contents for a view-cart turn.
func DescribeCart(c *cart.Cart) string {
	if c == nil || c.Len() == 0 {
		return "🛒 Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("🛒 Your cart:\n")
	for i, l := range c.Lines() {
		fmt.Fprintf(&b, "%d. %dx %s - ₹%s\n", i+1, l.Quantity, l.Title, services.FormatPrice(l.Price*float64(l.Quantity)))
	}
	fmt.Fprintf(&b, "Total: ₹%s (%d items)", services.FormatPrice(c.Total()), c.ItemCount())
	return b.String()
}
