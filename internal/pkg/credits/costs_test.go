package credits

import (
	"testing"
)

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		op    string
		count int
		want  int
	}{
		{op: OperationProductLookup, count: 1, want: 1},
		{op: OperationProductLookup, count: 7, want: 1},
		{op: OperationFNSKUToASIN, count: 1, want: 2},
		{op: OperationFNSKUToASINBulk, count: 25, want: 50},
		{op: OperationFNSKUToASINBulk, count: 0, want: 2},
		{op: OperationProductSearch, count: 3, want: 3},
		{op: OperationProductLookupBulk, count: 5, want: 1},
		{op: OperationProductLookupBulk, count: 25, want: 2},
		{op: OperationUPCToASIN, count: 1, want: 10},
	}

	for _, tt := range tests {
		got, err := CalculateCost(tt.op, tt.count)
		if err != nil {
			t.Fatalf("CalculateCost(%q, %d) unexpected error: %v", tt.op, tt.count, err)
		}
		if got != tt.want {
			t.Fatalf("CalculateCost(%q, %d) = %d, want %d", tt.op, tt.count, got, tt.want)
		}
	}
}

func TestCalculateCost_UnknownOperation(t *testing.T) {
	if _, err := CalculateCost("teleport", 1); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestConversionCostsMoreThanLookup(t *testing.T) {
	lookup, _ := CalculateCost(OperationProductLookup, 1)
	conversion, _ := CalculateCost(OperationFNSKUToASIN, 1)
	if conversion != 2*lookup {
		t.Fatalf("expected conversion to cost twice a lookup, got %d vs %d", conversion, lookup)
	}
}

func TestCostTableSorted(t *testing.T) {
	table := CostTable()
	if len(table) != len(costRules) {
		t.Fatalf("expected %d rules, got %d", len(costRules), len(table))
	}
	for i := 1; i < len(table); i++ {
		if table[i-1].Operation >= table[i].Operation {
			t.Fatalf("cost table not sorted at %d: %q >= %q", i, table[i-1].Operation, table[i].Operation)
		}
	}
}

func TestUnitCost(t *testing.T) {
	rule, err := Rule(OperationFNSKUToASINBulk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.UnitCost() != 2 {
		t.Fatalf("expected unit cost 2, got %d", rule.UnitCost())
	}
}
