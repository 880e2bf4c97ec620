package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatcart/internal/config"
	"chatcart/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestProductServiceMockOnly(t *testing.T) {
	ps := NewProductService(config.CatalogConfig{CacheTTL: time.Minute}, nil)

	products := ps.Products(context.Background())
	require.Len(t, products, 10)
	assert.Equal(t, pkg.ProductID("101"), products[0].ID)

	p, ok := ps.Lookup(context.Background(), "203")
	require.True(t, ok)
	assert.Equal(t, "Leather Jacket", p.Title)

	_, ok = ps.Lookup(context.Background(), "999")
	assert.False(t, ok)
}

func TestProductServiceRemoteSourcesAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/array":
			w.Write([]byte(`[
				{"id": 1, "title": "Budget Phone", "priceINR": 9999, "discount": 20, "category": "smartphones", "rating": {"rate": 4.1, "count": 12}},
				{"id": 1, "title": "Duplicate Phone", "priceINR": 1, "category": "smartphones"},
				{"id": 101, "title": "Shadowed iPhone", "priceINR": 1}
			]`))
		case "/wrapped":
			w.Write([]byte(`{"products": [{"id": "dj-7", "title": "Linen Shirt", "price": 1299, "discountPercentage": 12.5, "rating": 4.2, "brand": "Weave"}]}`))
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ps := NewProductService(config.CatalogConfig{
		SourceURLs: []string{
			"electronics=" + srv.URL + "/array",
			"fashion=" + srv.URL + "/wrapped",
			srv.URL + "/broken",
		},
		CacheTTL:    time.Minute,
		IncludeMock: boolPtr(true),
	}, srv.Client())

	products := ps.Products(context.Background())
	require.Len(t, products, 12, "10 mock + 2 unique remote")
	assert.Equal(t, int32(3), hits.Load())

	phone, ok := ps.Lookup(context.Background(), "1")
	require.True(t, ok)
	assert.Equal(t, "Budget Phone", phone.Title)
	assert.Equal(t, "electronics", phone.Category)
	assert.InDelta(t, 9999, phone.Price, 1e-9)
	assert.InDelta(t, 20, phone.DiscountPct, 1e-9)

	shirt, ok := ps.Lookup(context.Background(), "dj-7")
	require.True(t, ok)
	assert.Equal(t, "fashion", shirt.Category)
	assert.InDelta(t, 4.2, shirt.Rating.Rate, 1e-9)

	iphone, _ := ps.Lookup(context.Background(), "101")
	assert.Equal(t, "iPhone 15 Pro", iphone.Title, "first occurrence wins")

	ps.Products(context.Background())
	assert.Equal(t, int32(3), hits.Load(), "served from cache")

	assert.Equal(t, 12, ps.Refresh(context.Background()))
	assert.Equal(t, int32(6), hits.Load())
}

func TestProductServiceConcurrentRebuildFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`[{"id": "r-1", "title": "Desk Lamp", "price": 1499}]`))
	}))
	defer srv.Close()

	ps := NewProductService(config.CatalogConfig{
		SourceURLs: []string{srv.URL},
		CacheTTL:   time.Minute,
	}, srv.Client())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps.Products(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	_, ok := ps.Lookup(context.Background(), "r-1")
	assert.True(t, ok)
}

func TestProductServiceCacheExpiry(t *testing.T) {
	ps := NewProductService(config.CatalogConfig{CacheTTL: time.Minute}, nil)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	ps.now = func() time.Time { return now }

	ps.Products(context.Background())
	built := ps.builtAt

	now = now.Add(30 * time.Second)
	ps.Products(context.Background())
	assert.Equal(t, built, ps.builtAt)

	now = now.Add(time.Minute)
	ps.Products(context.Background())
	assert.True(t, ps.builtAt.After(built))
}

func TestCompactCatalog(t *testing.T) {
	text := CompactCatalog(MockElectronics()[:2], 0)
	assert.Equal(t, "PRODUCT_CATALOG\nCount: 2\n\n"+
		"101 | iPhone 15 Pro | ₹84999 | electronics | 4.8\n"+
		"102 | Samsung Galaxy S24 | ₹74999 | electronics | 4.6", text)
}

func TestCompactCatalogTruncatesAtLineBoundary(t *testing.T) {
	all := append(MockElectronics(), MockFashion()...)
	full := CompactCatalog(all, 0)

	limit := len(full) / 2
	text := CompactCatalog(all, limit)
	assert.True(t, strings.HasSuffix(text, "[TRUNCATED: catalog too large to include fully]"))

	body := strings.TrimSuffix(text, truncatedMarker)
	assert.LessOrEqual(t, len(body), limit)
	assert.True(t, strings.HasPrefix(full, body+"\n"), "cut on a whole line")
}

func TestParseSources(t *testing.T) {
	got := ParseSources([]string{" Electronics=https://a.example/x ", "https://b.example/y?q=1", ""})
	assert.Equal(t, []Source{
		{Category: "electronics", URL: "https://a.example/x"},
		{URL: "https://b.example/y?q=1"},
	}, got)
}
