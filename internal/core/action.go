package core

import (
	"chatcart/internal/llm"
	"chatcart/internal/logger"
	"chatcart/internal/nlu"
	"chatcart/pkg"
)

// Action is the resolved outcome of a turn: AddToCart, Recommend or NoAction.
type Action interface {
	Kind() llm.ActionKind
	isAction()
}

// CartItem is one validated product and quantity to add.
type CartItem struct {
	Product  pkg.Product
	Quantity int
}

type AddToCart struct {
	Items   []CartItem
	Message string
}

type Recommend struct {
	Products []pkg.Product
	Message  string
}

type NoAction struct {
	Message string
}

func (AddToCart) Kind() llm.ActionKind { return llm.ActionAddToCart }
func (Recommend) Kind() llm.ActionKind { return llm.ActionRecommend }
func (NoAction) Kind() llm.ActionKind  { return llm.ActionNone }

func (AddToCart) isAction() {}
func (Recommend) isAction() {}
func (NoAction) isAction()  {}

// ActionFromReply turns a parsed generative reply into an Action. Every id is
// looked up in the real catalog and unknown ids are dropped. An add that
// keeps no product becomes a clarification.
func ActionFromReply(reply llm.Reply, lookup func(pkg.ProductID) (pkg.Product, bool)) Action {
	switch reply.Action {
	case llm.ActionAddToCart:
		var items []CartItem
		for i, id := range reply.ProductIDs {
			p, ok := lookup(id)
			if !ok {
				logger.Debug().Str("product_id", id.String()).Msg("Dropping unknown product id from reply")
				continue
			}
			items = append(items, CartItem{Product: p, Quantity: min(reply.QuantityAt(i), nlu.MaxQuantity)})
		}
		if len(items) == 0 {
			return NoAction{Message: clarifyMessage}
		}
		return AddToCart{Items: items, Message: reply.Message}

	case llm.ActionRecommend:
		var products []pkg.Product
		seen := make(map[pkg.ProductID]bool)
		for _, id := range reply.ProductIDs {
			p, ok := lookup(id)
			if !ok || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			products = append(products, p)
		}
		return Recommend{Products: products, Message: reply.Message}
	}

	if reply.Message == "" {
		return NoAction{Message: clarifyMessage}
	}
	return NoAction{Message: reply.Message}
}
