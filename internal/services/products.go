package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"chatcart/internal/config"
	"chatcart/internal/logger"
	"chatcart/pkg"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const truncatedMarker = "\n\n[TRUNCATED: catalog too large to include fully]"

// Source is a remote JSON product feed. When Category is set every record
// from the feed is filed under it.
type Source struct {
	Category string
	URL      string
}

// ParseSources reads "category=url" or bare "url" entries.
func ParseSources(entries []string) []Source {
	out := make([]Source, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if cat, url, ok := strings.Cut(e, "="); ok && !strings.Contains(cat, "://") {
			out = append(out, Source{Category: strings.ToLower(strings.TrimSpace(cat)), URL: strings.TrimSpace(url)})
			continue
		}
		out = append(out, Source{URL: e})
	}
	return out
}

// ProductService is the catalog provider. It merges the built-in catalog
// with remote feeds, de-duplicates by id and caches the result for a TTL.
type ProductService struct {
	client         *http.Client
	sources        []Source
	includeMock    bool
	ttl            time.Duration
	maxPromptChars int
	now            func() time.Time
	rebuilds       singleflight.Group

	mu       sync.RWMutex
	products []pkg.Product
	byID     map[pkg.ProductID]pkg.Product
	text     string
	builtAt  time.Time
}

// NewProductService creates the catalog provider. A nil client uses a
// client with a 15s timeout.
func NewProductService(cfg config.CatalogConfig, client *http.Client) *ProductService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ProductService{
		client:         client,
		sources:        ParseSources(cfg.SourceURLs),
		includeMock:    cfg.MockEnabled(),
		ttl:            cfg.CacheTTL,
		maxPromptChars: cfg.MaxPromptChars,
		now:            time.Now,
	}
}

// Products returns the de-duplicated catalog, rebuilding it when the cache
// has expired. Feed failures are logged and never fatal.
func (ps *ProductService) Products(ctx context.Context) []pkg.Product {
	ps.mu.RLock()
	fresh := ps.products != nil && ps.ttl > 0 && ps.now().Sub(ps.builtAt) < ps.ttl
	products := ps.products
	ps.mu.RUnlock()
	if fresh {
		return products
	}
	ps.rebuildShared(ctx)

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.products
}

// Lookup returns the catalog product with the given id.
func (ps *ProductService) Lookup(ctx context.Context, id pkg.ProductID) (pkg.Product, bool) {
	ps.Products(ctx)
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.byID[id]
	return p, ok
}

// Refresh drops the cache and rebuilds the catalog.
func (ps *ProductService) Refresh(ctx context.Context) int {
	ps.rebuildShared(ctx)
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.products)
}

// CatalogText returns the compact prompt rendering of the catalog.
func (ps *ProductService) CatalogText(ctx context.Context) string {
	ps.Products(ctx)
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.text
}

// SearchProducts searches for products by query
func (ps *ProductService) SearchProducts(ctx context.Context, query string) []pkg.Product {
	products := ps.Products(ctx)
	if query == "" {
		return products
	}

	var results []pkg.Product
	queryLower := strings.ToLower(query)
	for _, product := range products {
		if strings.Contains(strings.ToLower(product.Title), queryLower) ||
			strings.Contains(strings.ToLower(product.Brand), queryLower) ||
			strings.Contains(strings.ToLower(product.Category), queryLower) {
			results = append(results, product)
		}
	}
	return results
}

// rebuildShared collapses concurrent rebuilds into one round of feed fetches.
func (ps *ProductService) rebuildShared(ctx context.Context) {
	_, _, _ = ps.rebuilds.Do("catalog", func() (any, error) {
		ps.rebuild(ctx)
		return nil, nil
	})
}

func (ps *ProductService) rebuild(ctx context.Context) {
	start := ps.now()

	fetched := make([][]pkg.Product, len(ps.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range ps.sources {
		g.Go(func() error {
			products, err := ps.fetch(gctx, src)
			if err != nil {
				logger.Warn().Err(err).Str("url", src.URL).Msg("Catalog source failed")
				return nil
			}
			fetched[i] = products
			return nil
		})
	}
	_ = g.Wait()

	var all []pkg.Product
	if ps.includeMock {
		all = append(all, MockElectronics()...)
		all = append(all, MockFashion()...)
	}
	for _, products := range fetched {
		all = append(all, products...)
	}

	products := Dedupe(all)
	byID := make(map[pkg.ProductID]pkg.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	text := CompactCatalog(products, ps.maxPromptChars)

	ps.mu.Lock()
	ps.products = products
	ps.byID = byID
	ps.text = text
	ps.builtAt = ps.now()
	ps.mu.Unlock()

	logger.Info().
		Int("products", len(products)).
		Int("sources", len(ps.sources)).
		Dur("took", ps.now().Sub(start)).
		Msg("Catalog rebuilt")
}

// remoteProduct accepts the field spellings used by common product feeds.
type remoteProduct struct {
	ID                 pkg.ProductID `json:"id"`
	Title              string        `json:"title"`
	Name               string        `json:"name"`
	Price              float64       `json:"price"`
	PriceINR           float64       `json:"priceINR"`
	OriginalPrice      float64       `json:"originalPrice"`
	Discount           float64       `json:"discount"`
	DiscountPct        float64       `json:"discountPct"`
	DiscountPercentage float64       `json:"discountPercentage"`
	Category           string        `json:"category"`
	Rating             remoteRating  `json:"rating"`
	Brand              string        `json:"brand"`
	Description        string        `json:"description"`
}

type remoteRating pkg.Rating

// UnmarshalJSON accepts either {"rate":4.5,"count":10} or a bare number.
func (r *remoteRating) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] != '{' {
		rate, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("rating: %w", err)
		}
		r.Rate = rate
		return nil
	}
	var full pkg.Rating
	if err := sonic.UnmarshalString(s, &full); err != nil {
		return err
	}
	*r = remoteRating(full)
	return nil
}

func (rp remoteProduct) toProduct(category string) pkg.Product {
	p := pkg.Product{
		ID:            rp.ID,
		Title:         rp.Title,
		Price:         rp.Price,
		OriginalPrice: rp.OriginalPrice,
		DiscountPct:   rp.DiscountPct,
		Category:      strings.ToLower(rp.Category),
		Rating:        pkg.Rating(rp.Rating),
		Brand:         rp.Brand,
		Description:   rp.Description,
	}
	if p.Title == "" {
		p.Title = rp.Name
	}
	if rp.PriceINR > 0 {
		p.Price = rp.PriceINR
	}
	if p.DiscountPct == 0 {
		p.DiscountPct = rp.Discount
	}
	if p.DiscountPct == 0 {
		p.DiscountPct = rp.DiscountPercentage
	}
	if p.OriginalPrice == 0 {
		p.OriginalPrice = p.Price
	}
	if category != "" {
		p.Category = category
	}
	return p
}

// fetch downloads one feed. Both a bare array and {"products":[...]} are accepted.
func (ps *ProductService) fetch(ctx context.Context, src Source) ([]pkg.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ps.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog source returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog source: %w", err)
	}

	var items []remoteProduct
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := sonic.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode catalog source: %w", err)
		}
	} else {
		var wrapped struct {
			Products []remoteProduct `json:"products"`
		}
		if err := sonic.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode catalog source: %w", err)
		}
		items = wrapped.Products
	}

	products := make([]pkg.Product, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		products = append(products, item.toProduct(src.Category))
	}
	return products, nil
}

// Dedupe keeps the first product for every id, preserving order.
func Dedupe(products []pkg.Product) []pkg.Product {
	seen := make(map[pkg.ProductID]struct{}, len(products))
	out := make([]pkg.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CompactCatalog renders one "id | title | ₹price | category | rating" line
// per product under a PRODUCT_CATALOG header. Output longer than maxChars is
// cut back to the last full line and marked as truncated.
func CompactCatalog(products []pkg.Product, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT_CATALOG\nCount: %d\n\n", len(products))
	for i, p := range products {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s | %s | ₹%s | %s | %s",
			p.ID, p.Title, FormatPrice(p.Price), p.Category, strconv.FormatFloat(p.Rating.Rate, 'f', -1, 64))
	}

	text := b.String()
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + truncatedMarker
}

// FormatPrice prints whole rupees without decimals.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
