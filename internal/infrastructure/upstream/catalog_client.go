package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// flexNumber accepts both JSON numbers and numeric strings, since the
// catalog is exported from a spreadsheet.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = flexNumber(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")))
		return nil
	}
	*n = flexNumber(b)
	return nil
}

func (n flexNumber) decimal() decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (n flexNumber) int64() (int64, bool) {
	if n == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v, true
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return d.IntPart(), true
}

type catalogProduct struct {
	ID       flexNumber `json:"id"`
	Name     string     `json:"name"`
	Price    flexNumber `json:"price"`
	Image    string     `json:"image"`
	Category string     `json:"category"`
	Weight   flexNumber `json:"weight"`
	Cube     flexNumber `json:"cube"`
}

// CatalogClient fetches the product list. The response is an object keyed
// by category name, each holding an array of products.
type CatalogClient struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewCatalogClient creates a client with the given request timeout
func NewCatalogClient(url string, timeout time.Duration, logger *zap.Logger) *CatalogClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogClient{
		url:    url,
		client: newHTTPClient(timeout),
		logger: logger,
	}
}

// FetchProducts downloads and flattens the catalog. Records without a
// positive integer id are skipped.
func (c *CatalogClient) FetchProducts(ctx context.Context) (map[int64]fulfillment.Product, error) {
	if c.url == "" {
		return nil, errors.New("catalog url is not configured")
	}
	body, err := getJSON(ctx, c.client, c.url, nil)
	if err != nil {
		return nil, err
	}
	return parseCatalog(body, c.logger)
}

func parseCatalog(body []byte, logger *zap.Logger) (map[int64]fulfillment.Product, error) {
	var groups map[string][]catalogProduct
	if err := json.Unmarshal(body, &groups); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog: %v", ErrUnavailable, err)
	}

	products := make(map[int64]fulfillment.Product)
	skipped := 0
	for group, items := range groups {
		for _, it := range items {
			id, ok := it.ID.int64()
			if !ok || id <= 0 {
				skipped++
				continue
			}
			category := it.Category
			if category == "" {
				category = group
			}
			products[id] = fulfillment.Product{
				ID:       id,
				Name:     strings.TrimSpace(it.Name),
				Price:    it.Price.decimal(),
				Weight:   it.Weight.decimal(),
				Cube:     it.Cube.decimal(),
				Image:    strings.TrimSpace(it.Image),
				Category: category,
			}
		}
	}
	if skipped > 0 {
		logger.Debug("Catalog records without id skipped", zap.Int("count", skipped))
	}
	return products, nil
}
