package core

import (
	"testing"
	"time"

	"chatcart/internal/cart"
	"chatcart/internal/llm"
	"chatcart/internal/services"
	"chatcart/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogLookup() func(pkg.ProductID) (pkg.Product, bool) {
	byID := make(map[pkg.ProductID]pkg.Product)
	for _, p := range append(services.MockElectronics(), services.MockFashion()...) {
		byID[p.ID] = p
	}
	return func(id pkg.ProductID) (pkg.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

func TestActionFromReply(t *testing.T) {
	lookup := catalogLookup()

	a := ActionFromReply(llm.Reply{
		Action:     llm.ActionAddToCart,
		ProductIDs: []pkg.ProductID{"999", "101", "204"},
		Quantities: []int{1, 500, 2},
	}, lookup)
	add, ok := a.(AddToCart)
	require.True(t, ok)
	require.Len(t, add.Items, 2)
	assert.Equal(t, pkg.ProductID("101"), add.Items[0].Product.ID)
	assert.Equal(t, 99, add.Items[0].Quantity)
	assert.Equal(t, 2, add.Items[1].Quantity)

	a = ActionFromReply(llm.Reply{Action: llm.ActionAddToCart, ProductIDs: []pkg.ProductID{"nope"}}, lookup)
	assert.Equal(t, NoAction{Message: clarifyMessage}, a)

	a = ActionFromReply(llm.Reply{Action: llm.ActionRecommend, ProductIDs: []pkg.ProductID{"202", "202", "x", "105"}}, lookup)
	rec, ok := a.(Recommend)
	require.True(t, ok)
	assert.Len(t, rec.Products, 2)

	a = ActionFromReply(llm.Reply{Action: llm.ActionNone}, lookup)
	assert.Equal(t, llm.ActionNone, a.Kind())
	assert.Equal(t, NoAction{Message: clarifyMessage}, a)
}

func TestExecuteAddMergesQuantities(t *testing.T) {
	c := cart.New(nil)
	p := services.MockElectronics()[0]
	now := time.Now()

	eff := Execute(AddToCart{Items: []CartItem{{Product: p, Quantity: 2}}}, c, now)
	assert.Equal(t, `✅ Added to cart: 2x "iPhone 15 Pro".`, eff.Reply)
	assert.Equal(t, []pkg.ProductRef{p.Ref()}, eff.Added)

	eff = Execute(AddToCart{Items: []CartItem{{Product: p, Quantity: 3}}}, c, now)
	assert.Equal(t, `⚠️ Already in your cart — updated quantity: 3x "iPhone 15 Pro" (now 5).`, eff.Reply)

	require.Equal(t, 1, c.Len())
	line, _ := c.Line(p.ID)
	assert.Equal(t, 5, line.Quantity)
}

func TestExecuteAddMixed(t *testing.T) {
	fashion := services.MockFashion()
	c := cart.New(nil)
	c.Add(fashion[0], 1, false, time.Now())

	eff := Execute(AddToCart{Items: []CartItem{
		{Product: fashion[1], Quantity: 1},
		{Product: fashion[0], Quantity: 1},
	}}, c, time.Now())
	assert.Equal(t,
		`✅ Added to cart: 1x "Women's Summer Dress". ⚠️ Already in your cart — updated quantity: 1x "Men's Casual Shirt" (now 2).`,
		eff.Reply)

	line, _ := c.Line(fashion[0].ID)
	assert.False(t, line.AddedViaAssistant)
}

func TestExecuteRecommendNeverShowsCartItems(t *testing.T) {
	electronics := services.MockElectronics()
	c := cart.New(nil)
	c.Add(electronics[1], 1, true, time.Now())

	eff := Execute(Recommend{Products: electronics[:3], Message: "Picks:"}, c, time.Now())
	assert.Equal(t, "Picks:\n\n1. iPhone 15 Pro - ₹84999 ⭐4.8\n2. MacBook Pro 16-inch - ₹199999 ⭐4.9", eff.Reply)
	for _, p := range eff.Displayed {
		assert.False(t, c.Contains(p.ID))
	}
	assert.Len(t, eff.Mentioned, 2)
	assert.Empty(t, eff.Added)
}

func TestExecuteNoActionLeavesCart(t *testing.T) {
	c := cart.New(nil)
	eff := Execute(NoAction{}, c, time.Now())
	assert.Equal(t, clarifyMessage, eff.Reply)
	assert.Zero(t, c.Len())
}

func TestFormatRateUnknown(t *testing.T) {
	assert.Equal(t, "1. Mystery - ₹10 ⭐N/A", FormatProductList([]pkg.Product{{ID: "1", Title: "Mystery", Price: 10}}))
}
