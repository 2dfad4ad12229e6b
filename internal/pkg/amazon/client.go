// Package amazon is the product-data collaborator. It talks to an upstream
// product API over HTTP and can be wrapped with a Redis product cache.
package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrNotFound means the provider confirmed the identifier does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrProviderUnavailable covers transport failures and unexpected responses.
	ErrProviderUnavailable = errors.New("product provider unavailable")
	ErrUnknownMarketplace  = errors.New("unknown marketplace")
)

// Lookup is implemented by Client and CachedClient.
type Lookup interface {
	GetProduct(ctx context.Context, asin, marketplace string) (*Product, error)
	ResolveFNSKU(ctx context.Context, fnsku, marketplace string) (string, error)
}

// Product is the subset of provider product data the API exposes.
type Product struct {
	ASIN         string   `json:"asin"`
	Marketplace  string   `json:"marketplace"`
	Title        string   `json:"title"`
	Brand        string   `json:"brand,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  int      `json:"review_count,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("PRODUCT_API_BASE_URL", "http://localhost:8081"),
		env.GetEnv("PRODUCT_API_KEY", ""),
		env.GetEnvDuration("PRODUCT_API_TIMEOUT", defaultTimeout),
	)
}

// GetProduct fetches product data for asin. A 404 from the provider maps to
// ErrNotFound; every other failure wraps ErrProviderUnavailable.
func (c *Client) GetProduct(ctx context.Context, asin, marketplace string) (*Product, error) {
	var out Product
	if err := c.get(ctx, "/products/"+url.PathEscape(asin), marketplace, &out); err != nil {
		return nil, err
	}
	if out.ASIN == "" {
		out.ASIN = asin
	}
	if out.Marketplace == "" {
		out.Marketplace = marketplace
	}
	return &out, nil
}

// ResolveFNSKU asks the provider for the ASIN behind an FNSKU.
func (c *Client) ResolveFNSKU(ctx context.Context, fnsku, marketplace string) (string, error) {
	var out struct {
		ASIN string `json:"asin"`
	}
	if err := c.get(ctx, "/fnsku/"+url.PathEscape(fnsku), marketplace, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ASIN) == "" {
		return "", ErrNotFound
	}
	return strings.ToUpper(strings.TrimSpace(out.ASIN)), nil
}

func (c *Client) get(ctx context.Context, path, marketplace string, out any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("%w: invalid PRODUCT_API_BASE_URL: %v", ErrProviderUnavailable, err)
	}
	q := u.Query()
	q.Set("marketplace", marketplace)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// keep context errors visible so callers can tell a timeout apart
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	return nil
}
