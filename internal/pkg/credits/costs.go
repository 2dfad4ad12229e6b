package credits

import (
	"fmt"
	"sort"
)

// Metered operations.
const (
	OperationProductLookup     = "product_lookup"
	OperationProductLookupBulk = "product_lookup_bulk"
	OperationProductSearch     = "product_search"
	OperationFNSKUToASIN       = "fnsku_to_asin"
	OperationFNSKUToASINBulk   = "fnsku_to_asin_bulk"
	OperationUPCToASIN         = "upc_to_asin"
	OperationPriceMonitor      = "price_monitor"
)

// CostRule prices one operation. Exactly one of Flat, PerUnit or
// BulkDivisor is set.
type CostRule struct {
	Operation   string `json:"operation"`
	Flat        int    `json:"flat,omitempty"`
	PerUnit     int    `json:"per_unit,omitempty"`
	BulkDivisor int    `json:"bulk_divisor,omitempty"`
	Description string `json:"description"`
}

// Conversions cost twice a plain lookup; UPC conversions ten times.
var costRules = map[string]CostRule{
	OperationProductLookup:     {Operation: OperationProductLookup, Flat: 1, Description: "Single product lookup by ASIN"},
	OperationProductLookupBulk: {Operation: OperationProductLookupBulk, BulkDivisor: 10, Description: "Bulk product lookup, 1 credit per 10 items (minimum 1)"},
	OperationProductSearch:     {Operation: OperationProductSearch, PerUnit: 1, Description: "Product search, 1 credit per result page"},
	OperationFNSKUToASIN:       {Operation: OperationFNSKUToASIN, Flat: 2, Description: "Single FNSKU to ASIN conversion"},
	OperationFNSKUToASINBulk:   {Operation: OperationFNSKUToASINBulk, PerUnit: 2, Description: "Bulk FNSKU to ASIN conversion, 2 credits per FNSKU"},
	OperationUPCToASIN:         {Operation: OperationUPCToASIN, Flat: 10, Description: "UPC/EAN to ASIN conversion"},
	OperationPriceMonitor:      {Operation: OperationPriceMonitor, Flat: 1, Description: "Create a price monitor"},
}

// Cost returns the price of the rule for count units. count below 1 is
// treated as 1.
func (r CostRule) Cost(count int) int {
	if count < 1 {
		count = 1
	}
	switch {
	case r.PerUnit > 0:
		return r.PerUnit * count
	case r.BulkDivisor > 0:
		return max(1, count/r.BulkDivisor)
	default:
		return r.Flat
	}
}

// UnitCost is the refundable price of a single unit of a per-unit operation.
func (r CostRule) UnitCost() int {
	if r.PerUnit > 0 {
		return r.PerUnit
	}
	return r.Flat
}

// CalculateCost prices an operation for count units.
func CalculateCost(operation string, count int) (int, error) {
	rule, ok := costRules[operation]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return rule.Cost(count), nil
}

// Rule returns the cost rule for an operation.
func Rule(operation string) (CostRule, error) {
	rule, ok := costRules[operation]
	if !ok {
		return CostRule{}, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return rule, nil
}

// CostTable lists every cost rule sorted by operation name.
func CostTable() []CostRule {
	rules := make([]CostRule, 0, len(costRules))
	for _, r := range costRules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Operation < rules[j].Operation })
	return rules
}
