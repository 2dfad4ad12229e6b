package amazon

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMarketplace is used when a caller does not name one.
const DefaultMarketplace = "US"

// Marketplace describes an Amazon storefront.
type Marketplace struct {
	Code     string `json:"code"`
	Domain   string `json:"domain"`
	Currency string `json:"currency"`
}

var marketplaces = map[string]Marketplace{
	"US": {Code: "US", Domain: "amazon.com", Currency: "USD"},
	"CA": {Code: "CA", Domain: "amazon.ca", Currency: "CAD"},
	"MX": {Code: "MX", Domain: "amazon.com.mx", Currency: "MXN"},
	"UK": {Code: "UK", Domain: "amazon.co.uk", Currency: "GBP"},
	"DE": {Code: "DE", Domain: "amazon.de", Currency: "EUR"},
	"FR": {Code: "FR", Domain: "amazon.fr", Currency: "EUR"},
	"IT": {Code: "IT", Domain: "amazon.it", Currency: "EUR"},
	"ES": {Code: "ES", Domain: "amazon.es", Currency: "EUR"},
	"JP": {Code: "JP", Domain: "amazon.co.jp", Currency: "JPY"},
	"IN": {Code: "IN", Domain: "amazon.in", Currency: "INR"},
	"AU": {Code: "AU", Domain: "amazon.com.au", Currency: "AUD"},
}

// NormalizeMarketplace upper-cases code, defaults it to US and checks that
// the storefront is supported.
func NormalizeMarketplace(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultMarketplace, nil
	}
	if _, ok := marketplaces[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarketplace, code)
	}
	return code, nil
}

// LookupMarketplace returns the storefront for code.
func LookupMarketplace(code string) (Marketplace, bool) {
	m, ok := marketplaces[strings.ToUpper(code)]
	return m, ok
}

// MarketplaceCodes returns all supported codes in alphabetical order.
func MarketplaceCodes() []string {
	codes := make([]string, 0, len(marketplaces))
	for code := range marketplaces {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
