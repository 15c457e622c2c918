package bond

import (
	"sort"
	"testing"
)

func TestInventoryOrderingAndLookup(t *testing.T) {
	inv := Inventory{
		{Name: "bond2", Index: 30},
		{Name: "bond0", Index: 10},
		{Name: "bond1", Index: 20},
	}
	sort.Sort(inv)

	for i := 0; i+1 < len(inv); i++ {
		if inv[i].Index >= inv[i+1].Index {
			t.Fatalf("inventory not strictly increasing at %d: %d >= %d", i, inv[i].Index, inv[i+1].Index)
		}
	}

	if s := inv.ByIndex(20); s == nil || s.Name != "bond1" {
		t.Fatalf("ByIndex(20) = %v, want bond1", s)
	}
	if s := inv.ByIndex(99); s != nil {
		t.Fatalf("ByIndex(99) = %v, want nil", s)
	}
}
