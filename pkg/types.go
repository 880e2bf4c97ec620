package pkg

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Shared value types for the shopping assistant

// ProductID identifies a catalog product. Upstream catalogs emit both numeric
// (101) and string ("dummy-7") ids, so both decode into the same type.
type ProductID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	*id = ProductID(string(data))
	return nil
}

func (id ProductID) String() string {
	return string(id)
}

// Rating is the aggregate customer rating of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is an immutable catalog record supplied by the catalog provider.
type Product struct {
	ID            ProductID `json:"id"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice"`
	DiscountPct   float64   `json:"discountPct"`
	Category      string    `json:"category"`
	Rating        Rating    `json:"rating"`
	Brand         string    `json:"brand"`
	Description   string    `json:"description,omitempty"`
}

// Ref returns the compact reference stored in memory ring buffers.
func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Title: p.Title, Category: p.Category}
}

// ProductRef is a denormalized product pointer kept in the memory record.
type ProductRef struct {
	ID       ProductID `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
}

// CartLine is one product entry in a cart. At most one line exists per product.
type CartLine struct {
	ProductID         ProductID `json:"productId"`
	Title             string    `json:"title"`
	Price             float64   `json:"price"`
	Category          string    `json:"category"`
	Quantity          int       `json:"quantity"`
	AddedViaAssistant bool      `json:"addedViaAssistant"`
	AddedAt           time.Time `json:"addedAt"`
}

// Intent is the closed set of utterance purposes.
type Intent string

const (
	IntentAddToCart       Intent = "add_to_cart"
	IntentViewCart        Intent = "view_cart"
	IntentElectronics     Intent = "electronics_query"
	IntentFashion         Intent = "fashion_query"
	IntentSpecificProduct Intent = "specific_product_query"
	IntentPriceFilter     Intent = "price_filter_query"
	IntentGift            Intent = "gift_query"
	IntentRecommendation  Intent = "recommendation_query"
	IntentGeneral         Intent = "general_query"
)

// Filters are the sticky session filters applied to every product listing.
type Filters struct {
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	Category string   `json:"category,omitempty"`
}

// IsZero reports whether no filter is active.
func (f Filters) IsZero() bool {
	return f.MaxPrice == nil && f.Category == ""
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := Filters{Category: f.Category}
	if f.MaxPrice != nil {
		v := *f.MaxPrice
		out.MaxPrice = &v
	}
	return out
}

// ChatEntry is one user/assistant exchange in the durable chat history.
type ChatEntry struct {
	Utterance string    `json:"utterance"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// CategoryCount counts product interactions per category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
