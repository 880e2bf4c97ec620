package cart

import (
	"time"

	"chatcart/pkg"
)

// Cart is an insertion-ordered set of lines with at most one line per
// product. It is not safe for concurrent use; the owning session serializes
// access.
type Cart struct {
	lines []pkg.CartLine
	index map[pkg.ProductID]int
}

// AddResult describes the effect of one Add.
type AddResult struct {
	Line    pkg.CartLine
	Merged  bool
	Product pkg.Product
}

// New builds a cart from existing lines, merging any duplicates.
func New(lines []pkg.CartLine) *Cart {
	c := &Cart{index: make(map[pkg.ProductID]int)}
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := c.index[l.ProductID]; ok {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.index[l.ProductID] = len(c.lines)
		c.lines = append(c.lines, l)
	}
	return c
}

// Add merges quantity into the product's line or inserts a new one. A line
// that already exists keeps its provenance flag, so a manual line stays
// manual after an assistant add.
func (c *Cart) Add(p pkg.Product, quantity int, viaAssistant bool, now time.Time) AddResult {
	if quantity < 1 {
		quantity = 1
	}
	if i, ok := c.index[p.ID]; ok {
		c.lines[i].Quantity += quantity
		return AddResult{Line: c.lines[i], Merged: true, Product: p}
	}
	line := pkg.CartLine{
		ProductID:         p.ID,
		Title:             p.Title,
		Price:             p.Price,
		Category:          p.Category,
		Quantity:          quantity,
		AddedViaAssistant: viaAssistant,
		AddedAt:           now.UTC(),
	}
	c.index[p.ID] = len(c.lines)
	c.lines = append(c.lines, line)
	return AddResult{Line: line, Product: p}
}

// Contains reports whether the product has a line.
func (c *Cart) Contains(id pkg.ProductID) bool {
	_, ok := c.index[id]
	return ok
}

// Line returns the line for a product.
func (c *Cart) Line(id pkg.ProductID) (pkg.CartLine, bool) {
	i, ok := c.index[id]
	if !ok {
		return pkg.CartLine{}, false
	}
	return c.lines[i], true
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []pkg.CartLine {
	out := make([]pkg.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// IDs returns the product ids in insertion order.
func (c *Cart) IDs() []pkg.ProductID {
	out := make([]pkg.ProductID, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.ProductID
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// ItemCount is the sum of all quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c *Cart) Total() float64 {
	var t float64
	for _, l := range c.lines {
		t += l.Price * float64(l.Quantity)
	}
	return t
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[pkg.ProductID]int)
}
